package app

import (
	"context"
	"fmt"

	"expense_api/internal/ai/gemini"
	"expense_api/internal/analytics"
	"expense_api/internal/auth"
	"expense_api/internal/chat"
	"expense_api/internal/config"
	"expense_api/internal/httpapi"
	"expense_api/internal/ledger"
	"expense_api/internal/ledger/repository"
	"expense_api/internal/logger"
	"expense_api/internal/mongo"
)

// App is the service container. It owns every long-lived component and their
// shutdown order.
type App struct {
	MongoDB    *mongo.Client
	Ledger     *ledger.Service
	Engine     *analytics.Engine
	Auth       *auth.Service
	Reconciler *ledger.Reconciler
	Server     *httpapi.Server
}

// New initializes the application and all of its services. Any failure during
// initialization returns an error with whatever was already started torn down.
func New(cfg *config.Config) (*App, error) {
	app := &App{}

	mongoClient, err := mongo.NewClient(mongo.Config{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDBName,
	})
	if err != nil {
		return nil, fmt.Errorf("init MongoDB failed: %w", err)
	}
	app.MongoDB = mongoClient
	logger.L().Info("MongoDB initialized successfully")

	db := mongoClient.Database()
	users := repository.NewMongoUserRepository(db)
	expenses := repository.NewMongoExpenseRepository(db)
	transactions := repository.NewMongoTransactionRepository(db)

	ctx := context.Background()
	for name, ensure := range map[string]func(context.Context) error{
		"users":        users.EnsureIndexes,
		"expenses":     expenses.EnsureIndexes,
		"transactions": transactions.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			app.Close(ctx)
			return nil, fmt.Errorf("ensure %s indexes failed: %w", name, err)
		}
	}

	budget := ledger.NewBudgetTracker(users, expenses)
	app.Ledger = ledger.NewService(users, expenses, transactions, budget)
	app.Engine = analytics.NewEngine(users, expenses, transactions)
	app.Auth = auth.NewService(users, cfg.JWTSecret, cfg.TokenExpiry)
	app.Reconciler = ledger.NewReconciler(users, budget, cfg.ReconcileInterval)

	// AI features are optional: without an API key the receipt oracle and the
	// chat assistant stay nil and their endpoints report unavailable.
	var (
		extractor httpapi.ReceiptExtractor
		agent     *chat.Agent
	)
	if cfg.AI.APIKey != "" {
		aiClient, err := gemini.NewClient(cfg.AI)
		if err != nil {
			app.Close(ctx)
			return nil, fmt.Errorf("init AI client failed: %w", err)
		}
		extractor = aiClient
		agent = chat.NewAgent(
			aiClient,
			chat.NewContextBuilder(app.Engine),
			chat.NewHistory(cfg.ChatHistoryLimit),
		)
		logger.L().Info("AI client initialized successfully")
	} else {
		logger.L().Warn("GOOGLE_API_KEY not set, receipt extraction and chat disabled")
	}

	app.Server = httpapi.NewServer(app.Auth, app.Ledger, app.Engine, agent, extractor, mongoClient)

	return app, nil
}

// Close shuts down all services. Safe to call on a partially initialized App.
func (a *App) Close(ctx context.Context) error {
	if a.Reconciler != nil {
		a.Reconciler.Stop()
	}
	if a.MongoDB != nil {
		if err := a.MongoDB.Close(ctx); err != nil {
			return fmt.Errorf("close MongoDB failed: %w", err)
		}
	}
	return nil
}
