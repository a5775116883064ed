package httpapi

import (
	"expense_api/internal/analytics"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) handleDashboard(c *fiber.Ctx) error {
	user := currentUser(c)
	dashboard, err := s.engine.Dashboard(c.Context(), user)
	if err != nil {
		return domainErrorJSON(c, err)
	}
	return c.JSON(dashboard)
}

func (s *Server) handleSpending(c *fiber.Ctx) error {
	user := currentUser(c)
	summary, err := s.engine.Summary(c.Context(), user)
	if err != nil {
		return domainErrorJSON(c, err)
	}
	return c.JSON(summary)
}

func (s *Server) handleCategories(c *fiber.Ctx) error {
	user := currentUser(c)
	topN := c.QueryInt("limit", analytics.DefaultTopN)

	breakdown, err := s.engine.CategoryBreakdown(c.Context(), user.ID, topN)
	if err != nil {
		return domainErrorJSON(c, err)
	}
	return c.JSON(fiber.Map{"categories": breakdown})
}

func (s *Server) handleTrends(c *fiber.Ctx) error {
	user := currentUser(c)
	months := c.QueryInt("months", analytics.DefaultTrendMonths)

	trends, err := s.engine.MonthlyTrend(c.Context(), user.ID, months)
	if err != nil {
		return domainErrorJSON(c, err)
	}
	return c.JSON(fiber.Map{"trends": trends})
}

func (s *Server) handleRecent(c *fiber.Ctx) error {
	user := currentUser(c)
	limit := int64(c.QueryInt("limit", analytics.DefaultRecentLimit))

	transactions, err := s.engine.RecentTransactions(c.Context(), user.ID, limit)
	if err != nil {
		return domainErrorJSON(c, err)
	}
	return c.JSON(fiber.Map{"transactions": transactions})
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	if s.agent == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "chat assistant is not configured")
	}

	req, err := parseBody[ChatRequest](c)
	if req == nil {
		return err
	}

	user := currentUser(c)
	reply, err := s.agent.Ask(c.Context(), user, req.Message)
	if err != nil {
		return errorJSON(c, fiber.StatusBadGateway, "chat assistant is unavailable")
	}
	return c.JSON(fiber.Map{"response": reply})
}

// handleClearChat drops the caller's conversation history. Clearing an
// already-empty conversation succeeds the same way.
func (s *Server) handleClearChat(c *fiber.Ctx) error {
	user := currentUser(c)
	if s.agent != nil {
		s.agent.ClearHistory(user.ID.Hex())
	}
	return c.JSON(fiber.Map{"message": "chat history cleared"})
}
