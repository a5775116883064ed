package httpapi

import (
	"context"
	"strings"
	"time"

	"expense_api/internal/analytics"
	"expense_api/internal/auth"
	"expense_api/internal/chat"
	"expense_api/internal/ledger"
	"expense_api/internal/ledger/models"

	"expense_api/internal/ai/gemini"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// ReceiptExtractor is the AI extraction oracle boundary. nil when no API key
// is configured; the upload endpoint then reports the oracle as unavailable
// instead of crashing the ingestion flow.
type ReceiptExtractor interface {
	ExtractReceipt(ctx context.Context, document []byte, mimeType string) (*gemini.ReceiptFields, error)
}

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the thin HTTP adapter over the core services. It holds no
// business logic; every rule lives behind the services it calls.
type Server struct {
	auth      *auth.Service
	ledger    *ledger.Service
	engine    *analytics.Engine
	agent     *chat.Agent
	extractor ReceiptExtractor
	db        Pinger
}

// NewServer creates the HTTP adapter.
func NewServer(
	authSvc *auth.Service,
	ledgerSvc *ledger.Service,
	engine *analytics.Engine,
	agent *chat.Agent,
	extractor ReceiptExtractor,
	db Pinger,
) *Server {
	return &Server{
		auth:      authSvc,
		ledger:    ledgerSvc,
		engine:    engine,
		agent:     agent,
		extractor: extractor,
		db:        db,
	}
}

// App builds the fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
			return errorJSON(c, status, err.Error())
		},
		BodyLimit: 10 * 1024 * 1024, // receipt uploads
	})

	app.Use(recover.New())
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return errorJSON(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		},
	}))

	app.Get("/health", s.handleHealth)

	app.Post("/users/register", s.handleRegister)
	app.Post("/users/login", s.handleLogin)
	app.Get("/users/me", s.requireAuth, s.handleMe)
	app.Delete("/users/me", s.requireAuth, s.handleDeleteMe)
	app.Put("/users/budget", s.requireAuth, s.handleSetBudget)

	app.Post("/expenses/", s.requireAuth, s.handleCreateExpense)
	app.Get("/expenses/", s.requireAuth, s.handleListExpenses)
	app.Post("/expenses/upload", s.requireAuth, s.handleUploadReceipt)
	app.Get("/expenses/transactions", s.requireAuth, s.handleListTransactions)
	app.Post("/expenses/transactions", s.requireAuth, s.handleCreateTransaction)
	app.Delete("/expenses/:id", s.requireAuth, s.handleDeleteExpense)

	app.Get("/summary/dashboard", s.requireAuth, s.handleDashboard)
	app.Get("/summary/spending", s.requireAuth, s.handleSpending)
	app.Get("/summary/categories", s.requireAuth, s.handleCategories)
	app.Get("/summary/trends", s.requireAuth, s.handleTrends)
	app.Get("/summary/recent", s.requireAuth, s.handleRecent)
	app.Post("/summary/chat", s.requireAuth, s.handleChat)
	app.Delete("/summary/chat", s.requireAuth, s.handleClearChat)

	return app
}

const userLocalKey = "current_user"

// requireAuth resolves the bearer token into a user and stashes it on the
// request context. Every route behind it can trust currentUser.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return errorJSON(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	user, err := s.auth.ResolveToken(c.Context(), strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "invalid or expired token")
	}

	c.Locals(userLocalKey, user)
	return c.Next()
}

// currentUser returns the authenticated user set by requireAuth.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocalKey).(*models.User)
	return user
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	dbStatus := "connected"
	if s.db != nil {
		if err := s.db.Ping(c.Context()); err != nil {
			dbStatus = "disconnected"
		}
	}

	status := "healthy"
	httpStatus := fiber.StatusOK
	if dbStatus != "connected" {
		status = "unhealthy"
		httpStatus = fiber.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"database":  dbStatus,
		"timestamp": time.Now().UTC(),
	})
}
