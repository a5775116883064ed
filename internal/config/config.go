package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string // HTTP listen address, e.g. ":8000"

	MongoURI    string // MongoDB connection URI
	MongoDBName string // MongoDB database name

	JWTSecret   string        // secret used to sign access tokens
	TokenExpiry time.Duration // access token lifetime

	AI AIConfig

	ChatHistoryLimit  int           // max retained chat turns per user
	ReconcileInterval time.Duration // total_spent reconciliation sweep interval, 0 disables
}

// AIConfig configures the generative AI collaborator used for receipt
// extraction and the chat assistant.
type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbName := os.Getenv("DATABASE_NAME")
	if dbName == "" {
		dbName = "expense_manager"
	}

	cfg := &Config{
		ListenAddr:        ":8000",
		MongoURI:          os.Getenv("DATABASE_URL"),
		MongoDBName:       dbName,
		JWTSecret:         os.Getenv("SECRET_KEY"),
		TokenExpiry:       24 * time.Hour,
		ChatHistoryLimit:  20,
		ReconcileInterval: time.Hour,
	}

	if cfg.MongoURI == "" {
		cfg.MongoURI = "mongodb://localhost:27017"
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("SECRET_KEY environment variable is required")
	}

	if addr := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); addr != "" {
		cfg.ListenAddr = addr
	}

	if expiryStr := strings.TrimSpace(os.Getenv("TOKEN_EXPIRY_HOURS")); expiryStr != "" {
		hours, err := strconv.Atoi(expiryStr)
		if err != nil || hours < 1 {
			return nil, fmt.Errorf("invalid TOKEN_EXPIRY_HOURS: %s", expiryStr)
		}
		cfg.TokenExpiry = time.Duration(hours) * time.Hour
	}

	if limitStr := strings.TrimSpace(os.Getenv("CHAT_HISTORY_LIMIT")); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return nil, fmt.Errorf("invalid CHAT_HISTORY_LIMIT: %s", limitStr)
		}
		cfg.ChatHistoryLimit = limit
	}

	if intervalStr := strings.TrimSpace(os.Getenv("RECONCILE_INTERVAL_MINUTES")); intervalStr != "" {
		minutes, err := strconv.Atoi(intervalStr)
		if err != nil || minutes < 0 {
			return nil, fmt.Errorf("invalid RECONCILE_INTERVAL_MINUTES: %s", intervalStr)
		}
		cfg.ReconcileInterval = time.Duration(minutes) * time.Minute
	}

	aiCfg, err := loadAIConfig()
	if err != nil {
		return nil, err
	}
	cfg.AI = aiCfg

	return cfg, nil
}

func loadAIConfig() (AIConfig, error) {
	var cfg AIConfig

	cfg.APIKey = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
	cfg.BaseURL = strings.TrimSpace(os.Getenv("AI_BASE_URL"))
	cfg.Model = strings.TrimSpace(os.Getenv("AI_MODEL"))

	if timeoutStr := strings.TrimSpace(os.Getenv("AI_TIMEOUT_SECONDS")); timeoutStr != "" {
		seconds, err := strconv.Atoi(timeoutStr)
		if err != nil || seconds <= 0 {
			return AIConfig{}, fmt.Errorf("invalid AI_TIMEOUT_SECONDS: %s", timeoutStr)
		}
		cfg.Timeout = time.Duration(seconds) * time.Second
	} else {
		cfg.Timeout = 30 * time.Second
	}

	return cfg, nil
}
