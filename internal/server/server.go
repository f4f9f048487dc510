// Package server sets up the HTTP server, the router, and all routes.
//
// This is the composition root: every dependency chain in the app —
// database → repository → service → handler — is assembled here, in one
// place, instead of scattered across the codebase. main.go only loads
// config and calls New/Start.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/code-reviewer/internal/auth"
	"github.com/sakif/code-reviewer/internal/handler"
	"github.com/sakif/code-reviewer/internal/llm"
	"github.com/sakif/code-reviewer/internal/middleware"
	"github.com/sakif/code-reviewer/internal/model"
	"github.com/sakif/code-reviewer/internal/quota"
	sqliteRepo "github.com/sakif/code-reviewer/internal/repository/sqlite"
	"github.com/sakif/code-reviewer/internal/service"
)

// OAuthCredentials holds one provider's client registration.
type OAuthCredentials struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Configured reports whether the provider can be enabled.
func (c OAuthCredentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Config holds server configuration, loaded from the environment by main.
type Config struct {
	Port           int
	DBPath         string
	JWTSecret      string
	AnalyzeTimeout time.Duration // zero means the service default
	QuotaLimit     int           // free analyses per anonymous visitor; zero means the quota default
	GitHub         OAuthCredentials
	Google         OAuthCredentials
}

// Server owns the router and the resources that must be released on
// shutdown (the database connection).
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain and wires the routes.
//
// The model client is injected rather than constructed here: building it
// needs a context and an API key, both of which belong to main. A nil
// client is allowed — analyze requests then fail with 500 instead of the
// whole server refusing to start, which keeps history and auth usable
// without a Gemini key.
func New(cfg Config, client llm.Client, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	s.setupRoutes(tokens, client)
	return s, nil
}

// setupRoutes configures middleware and routes.
//
// ROUTE STRUCTURE:
//
//	POST   /api/analyze            → run code through the review model (quota for anonymous)
//	GET    /api/me                 → session user's profile            (auth)
//	POST   /api/history            → save a review session             (auth)
//	GET    /api/history            → paginated history                 (auth)
//	GET    /api/history/{id}       → single record, owner only         (auth)
//	GET    /api/users              → list users
//	POST   /api/users              → create-or-return user by email
//	GET    /api/users/{id}         → single user
//	PUT    /api/users/{id}         → update own profile                (auth)
//	DELETE /api/users/{id}         → delete own account + history      (auth)
//	GET    /auth/{provider}/login  → start OAuth flow
//	GET    /auth/{provider}/callback → finish OAuth flow, set session cookie
//	POST   /auth/logout            → clear session cookie
//
// Middleware order matters: RequestID and RealIP first so the logger sees
// them, Recoverer before anything that might panic, then request logging.
func (s *Server) setupRoutes(tokens *auth.TokenService, client llm.Client) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Services. The SQLite DB implements all three repository interfaces
	// (users, history, quota counters) on the one connection.
	userService := service.NewUserService(s.db, s.logger)
	reviewService := service.NewReviewService(s.db, s.logger)
	authService := service.NewAuthService(userService, tokens, s.logger)
	analysisService := service.NewAnalysisService(client, s.config.AnalyzeTimeout, s.logger)
	gate := quota.NewGate(s.db, s.config.QuotaLimit)

	// OAuth providers: only the configured ones are registered.
	providers := make(map[string]*auth.Provider)
	if s.config.GitHub.Configured() {
		providers[model.ProviderGitHub] = auth.NewGitHubProvider(
			s.config.GitHub.ClientID, s.config.GitHub.ClientSecret, s.config.GitHub.CallbackURL)
	}
	if s.config.Google.Configured() {
		providers[model.ProviderGoogle] = auth.NewGoogleProvider(
			s.config.Google.ClientID, s.config.Google.ClientSecret, s.config.Google.CallbackURL)
	}
	if len(providers) == 0 {
		s.logger.Warn("no OAuth providers configured, sign-in is unavailable")
	}

	analyzeHandler := handler.NewAnalyzeHandler(analysisService, gate, s.logger)
	historyHandler := handler.NewHistoryHandler(reviewService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	authHandler := handler.NewAuthHandler(providers, authService, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		// Analyze is open to anonymous visitors, but a valid session — if
		// present — identifies the user and bypasses the demo quota.
		r.With(auth.OptionalAuth(tokens)).Post("/analyze", analyzeHandler.HandleAnalyze)

		r.Get("/users", userHandler.HandleList)
		r.Post("/users", userHandler.HandleCreate)
		r.Get("/users/{id}", userHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)

			r.Post("/history", historyHandler.HandleCreate)
			r.Get("/history", historyHandler.HandleList)
			r.Get("/history/{id}", historyHandler.HandleGet)

			r.Put("/users/{id}", userHandler.HandleUpdate)
			r.Delete("/users/{id}", userHandler.HandleDelete)
		})
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/{provider}/login", authHandler.HandleLogin)
		r.Get("/{provider}/callback", authHandler.HandleCallback)
		r.Post("/logout", authHandler.HandleLogout)
	})
}

// Router exposes the configured router, mainly for httptest servers.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until a shutdown signal arrives, then drains
// in-flight requests and closes the database.
func (s *Server) Start() error {
	// Closing the DB flushes the WAL and releases the file lock; skipping
	// it can leave the database file needing recovery on next open.
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // analyze responses wait on the model
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
