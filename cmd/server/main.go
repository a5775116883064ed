package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense_api/internal/app"
	"expense_api/internal/config"
	"expense_api/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatalf("Config load failed: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		logger.L().Fatalf("Application init failed: %v", err)
	}

	application.Reconciler.Start()

	fiberApp := application.Server.App()
	go func() {
		logger.L().Infof("HTTP server listening on %s", cfg.ListenAddr)
		if err := fiberApp.Listen(cfg.ListenAddr); err != nil {
			logger.L().Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L().Info("Shutting down...")

	if err := fiberApp.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.L().Errorf("HTTP shutdown failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := application.Close(ctx); err != nil {
		logger.L().Errorf("Shutdown cleanup failed: %v", err)
	}

	logger.L().Info("Server stopped")
}
