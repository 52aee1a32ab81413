// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "start the server")
//
// DEPENDENCY INJECTION FLOW:
// main.go creates a Config from the environment and passes it here.
// New() then assembles the whole chain:
//   sqlite.DB → repositories → services → handlers → routes
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
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

	"github.com/promptdeck/promptdeck/internal/auth"
	"github.com/promptdeck/promptdeck/internal/handler"
	"github.com/promptdeck/promptdeck/internal/middleware"
	sqliteRepo "github.com/promptdeck/promptdeck/internal/repository/sqlite"
	"github.com/promptdeck/promptdeck/internal/service"
)

// Config holds server configuration.
// Using a struct for config (instead of individual parameters) makes it easy to:
// - Add new config options without changing function signatures
// - Pass config around as a single value
// - Load config from files/env vars in one place
type Config struct {
	Port   int
	DBPath string

	// JWTSecret signs access tokens. Must be non-empty and stable across
	// restarts, or every session dies on deploy.
	JWTSecret string

	// GitHub OAuth app credentials. Leave empty to disable GitHub sign-in;
	// email/password login keeps working either way.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// UncategorizedName overrides the display name of the reserved fallback
	// category. Empty means the built-in default.
	UncategorizedName string
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection (db). When the server shuts down,
// we must close this connection to flush any pending writes and release the
// file lock. This is handled in Start() during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
// This is where the entire dependency chain is assembled:
//  1. Create the database connection (sqlite.New)
//  2. Create per-entity repositories over it
//  3. Create the service layer with repository interfaces
//  4. Create handlers with services, wire them to routes
//
// Each layer only receives what it needs:
// - Services get repository interfaces (not the concrete sqlite types)
// - Handlers get services (not repositories or the DB)
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package. Import aliases are common in Go when
// package names would otherwise collide or be unclear.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	// === CREATE DATABASE ===
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

	// Set up middleware and routes
	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware, services and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /auth/register                      → create local account
//	POST   /auth/login                         → email/password login
//	GET    /auth/github/login                  → start GitHub OAuth
//	GET    /auth/github/callback               → finish GitHub OAuth
//	POST   /auth/logout                        → clear session cookie
//	GET    /api/me                             → current user profile
//	GET    /api/categories                     → grouped visible categories (auth optional)
//	GET    /api/categories/my                  → flat visible category list
//	GET    /api/categories/team/{teamID}       → one team's categories
//	POST   /api/categories                     → create category
//	PUT    /api/categories/{id}                → rename/restyle category
//	DELETE /api/categories/{id}                → soft-delete category
//	GET    /api/categories/{id}/can-use        → usability check
//	GET    /api/categories/{id}/prompts        → prompts in a category
//	CRUD   /api/prompts[/{id}]                 → prompt management
//	POST   /api/teams                          → create team
//	GET    /api/teams                          → my teams
//	POST   /api/teams/{teamID}/members         → add/change member
//	DELETE /api/teams/{teamID}/members/{userID} → remove member
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. Logger — logs each request with timing info
func (s *Server) setupRoutes() error {
	// === Global Middleware ===
	// These run on EVERY request, in order
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500

	// Our custom logging middleware
	s.router.Use(middleware.Logger(s.logger))

	// === Auth Infrastructure ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	github := auth.NewGitHubProvider(
		s.config.GitHubClientID,
		s.config.GitHubClientSecret,
		s.config.GitHubCallbackURL,
	)

	// === Repositories ===
	users := sqliteRepo.NewUserRepo(s.db)
	teams := sqliteRepo.NewTeamRepo(s.db)
	categories := sqliteRepo.NewCategoryRepo(s.db)
	prompts := sqliteRepo.NewPromptRepo(s.db)

	// === Services ===
	// TeamRepo doubles as the membership oracle for the category service.
	authService := service.NewAuthService(users, tokens, passwords, s.logger)
	teamService := service.NewTeamService(teams, s.logger)
	categoryService := service.NewCategoryService(categories, prompts, teams, s.logger, s.config.UncategorizedName)
	promptService := service.NewPromptService(prompts, categoryService, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	categoryHandler := handler.NewCategoryHandler(categoryService, s.logger)
	promptHandler := handler.NewPromptHandler(promptService, s.logger)
	teamHandler := handler.NewTeamHandler(teamService, s.logger)

	// === Auth Routes (no auth required) ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/logout", authHandler.HandleLogout)
	})

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		// Read-only browsing works logged-out too: optional auth resolves
		// the viewer when a valid cookie is present. Anonymous viewers get
		// empty category groups and see only public prompts.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))
			r.Get("/categories", categoryHandler.HandleList)
			r.Get("/prompts", promptHandler.HandleList)
			r.Get("/prompts/{id}", promptHandler.HandleGet)
		})

		// Everything else requires a session.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)

			r.Get("/categories/my", categoryHandler.HandleListMine)
			r.Get("/categories/team/{teamID}", categoryHandler.HandleListForTeam)
			r.Post("/categories", categoryHandler.HandleCreate)
			r.Put("/categories/{id}", categoryHandler.HandleUpdate)
			r.Delete("/categories/{id}", categoryHandler.HandleDelete)
			r.Get("/categories/{id}/can-use", categoryHandler.HandleCanUse)
			r.Get("/categories/{id}/prompts", promptHandler.HandleListByCategory)

			r.Post("/prompts", promptHandler.HandleCreate)
			r.Put("/prompts/{id}", promptHandler.HandleUpdate)
			r.Delete("/prompts/{id}", promptHandler.HandleDelete)

			r.Post("/teams", teamHandler.HandleCreate)
			r.Get("/teams", teamHandler.HandleListMine)
			r.Post("/teams/{teamID}/members", teamHandler.HandleAddMember)
			r.Delete("/teams/{teamID}/members/{userID}", teamHandler.HandleRemoveMember)
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
//
// If we skip step 3, the database file might be left in an inconsistent state.
// The `defer s.db.Close()` ensures this happens even if something panics.
func (s *Server) Start() error {
	// Ensure the database is closed when the server stops.
	// This runs AFTER everything else in this function finishes.
	defer s.db.Close()

	// Create the HTTP server with sensible timeouts
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine (so it doesn't block)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		// Server failed to start
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		// Received shutdown signal
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
