// Package main is the entry point for the code review server.
//
// main stays minimal: load configuration, build the dependencies that need
// process-level context (logger, model client), hand everything to
// internal/server. All actual logic lives in the imported packages.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/code-reviewer/internal/llm"
	"github.com/sakif/code-reviewer/internal/server"
)

func main() {
	// .env is a convenience for local development; missing is fine, real
	// deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/reviewer.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Sessions can't be issued or verified without the signing secret, so
	// this one is fatal. Generate one with: openssl rand -hex 32
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	// The Gemini client is optional: without a key the server still serves
	// auth, users, and history — only /api/analyze returns errors.
	var client llm.Client
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		gemini, err := llm.NewGemini(context.Background(), apiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			logger.Error("failed to create Gemini client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		client = gemini
		logger.Info("Gemini client ready", slog.String("model", gemini.Model()))
	} else {
		logger.Warn("GEMINI_API_KEY not set — /api/analyze will return errors")
	}

	var analyzeTimeout time.Duration
	if v := os.Getenv("ANALYZE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			logger.Error("invalid ANALYZE_TIMEOUT value", slog.String("value", v))
			os.Exit(1)
		}
		analyzeTimeout = d
	}

	quotaLimit := 0 // zero keeps the quota package default
	if v := os.Getenv("ANON_QUOTA_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			logger.Error("invalid ANON_QUOTA_LIMIT value", slog.String("value", v))
			os.Exit(1)
		}
		quotaLimit = n
	}

	cfg := server.Config{
		Port:           port,
		DBPath:         dbPath,
		JWTSecret:      jwtSecret,
		AnalyzeTimeout: analyzeTimeout,
		QuotaLimit:     quotaLimit,
		GitHub: server.OAuthCredentials{
			ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			CallbackURL:  callbackURL("GITHUB_CALLBACK_URL", "github", port),
		},
		Google: server.OAuthCredentials{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			CallbackURL:  callbackURL("GOOGLE_CALLBACK_URL", "google", port),
		},
	}

	srv, err := server.New(cfg, client, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until shutdown (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// callbackURL reads the provider's callback override, defaulting to the
// local development URL.
func callbackURL(envVar, provider string, port int) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fmt.Sprintf("http://localhost:%d/auth/%s/callback", port, provider)
}
