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
// main.go reads config and creates the Gemini client (the one dependency
// that talks to the outside world at startup), then Server.New wires:
//   sqlite.DB → GenerationService / AuthService → handlers → routes
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
	"github.com/go-chi/cors"

	"github.com/sakif/opm-codegen/internal/auth"
	"github.com/sakif/opm-codegen/internal/handler"
	"github.com/sakif/opm-codegen/internal/middleware"
	"github.com/sakif/opm-codegen/internal/oracle"
	sqliteRepo "github.com/sakif/opm-codegen/internal/repository/sqlite"
	"github.com/sakif/opm-codegen/internal/service"
	"github.com/sakif/opm-codegen/internal/upload"
)

// Config holds server configuration.
// Using a struct for config (instead of individual parameters) makes it easy to:
// - Add new config options without changing function signatures
// - Pass config around as a single value
// - Load config from files/env vars in one place
type Config struct {
	Port         int
	DBPath       string            // path to the SQLite database file
	JWTSecret    string            // HMAC secret for signing access tokens
	UploadFamily string            // "pdf" (default) or "image" — what diagrams look like
	Languages    map[string]string // target language → output filename; nil = stock four
	CORSOrigins  []string          // allowed browser origins; empty = allow all (dev mode)
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns a database connection (db). When the server shuts down,
// we must close this connection to flush any pending writes and release the
// file lock. This is handled in Start() during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB // database connection (owned by server, closed on shutdown)
}

// New creates a new Server with the given config.
//
// The oracle.Client is passed in rather than constructed here: building it
// uploads the knowledge PDFs to the Files API, which is main's job (it
// decides whether a failed upload is fatal). Tests pass a stub instead.
//
// DEPENDENCY INJECTION & WIRING:
// This is where the dependency chain is assembled:
//  1. Create the database connection (sqlite.New)
//  2. Create the services (GenerationService, AuthService) with the DB
//  3. Create the handlers with the services
//  4. Wire handlers to routes
//
// Each layer only receives what it needs:
// - Services get the repository interfaces (not the concrete sqlite.DB)
// - Handlers get the services (not the repositories or DB)
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package. Import aliases are common in Go when
// package names would otherwise collide or be unclear.
func New(cfg Config, ai oracle.Client, logger *slog.Logger) (*Server, error) {
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
	if err := s.setupRoutes(ai); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// POST   /auth/signup                → register an account (JSON)
// POST   /auth/login                 → verify credentials, issue JWT cookie
// POST   /auth/logout                → clear the JWT cookie
// POST   /opm/generate-code          → diagram upload → generated code (multipart)
// POST   /opm/refine-code            → rework an existing generation (multipart)
// GET    /projects?user_email=       → list one owner's projects
// GET    /projects/{generationID}       → single project (no diagram bytes)
// GET    /projects/{generationID}/pdf   → download the original diagram
// GET    /projects/{generationID}/stats → derived metrics
// DELETE /projects/{generationID}?user_email= → delete (owner only)
// GET    /healthz                    → liveness probe
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. CORS — lets the browser frontend call us from another origin
// 5. Logger — logs each request with timing info
func (s *Server) setupRoutes(ai oracle.Client) error {
	// === Global Middleware ===
	// These run on EVERY request, in order

	// Chi's built-in middleware
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500

	// CORS — the frontend is served from a different origin (a dev server
	// or a static host), so the browser preflights our endpoints.
	// AllowCredentials is required for the JWT cookie to travel.
	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"} // dev mode — lock this down in production
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300, // cache preflight responses for 5 minutes
	}))

	// Our custom logging middleware
	s.router.Use(middleware.Logger(s.logger))

	// === UPLOAD POLICY ===
	validator, err := upload.ForFamily(s.config.UploadFamily)
	if err != nil {
		return fmt.Errorf("configuring upload policy: %w", err)
	}

	// === AUTH SERVICES ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	// === SERVICES AND HANDLERS ===
	// DEPENDENCY CHAIN:
	//   s.db (sqlite.DB) → implements both repository interfaces
	//   GenerationService receives the repo, the AI client, the validator
	//   Handlers receive the services
	//
	// Notice: the handlers never touch the database directly.
	// The services never touch HTTP. Clean separation!
	generationService := service.NewGenerationService(s.db, ai, validator, s.config.Languages, s.logger)
	authService := service.NewAuthService(s.db, passwords, tokens, s.logger)

	opmHandler := handler.NewOPMHandler(generationService, validator, s.logger)
	projectHandler := handler.NewProjectHandler(generationService, validator, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)

	// === ROUTES ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/opm", func(r chi.Router) {
		r.Post("/generate-code", opmHandler.HandleGenerate)
		r.Post("/refine-code", opmHandler.HandleRefine)
	})

	// OptionalAuth attaches the user identity when a valid JWT cookie is
	// present; ownership still arrives via user_email today.
	s.router.Route("/projects", func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/", projectHandler.HandleList)
		r.Get("/{generationID}", projectHandler.HandleGet)
		r.Get("/{generationID}/pdf", projectHandler.HandleDiagram)
		r.Get("/{generationID}/stats", projectHandler.HandleStats)
		r.Delete("/{generationID}", projectHandler.HandleDelete)
	})

	// Liveness probe for deployment health checks.
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return nil
}

// Router exposes the configured chi router. Used by httptest-based tests
// to drive the full middleware + routing stack without a real listener.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the server's resources without going through Start's
// signal loop. Tests use this; production shutdown happens inside Start.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// The database connection makes shutdown order matter:
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

	// Create the HTTP server with sensible timeouts.
	// ReadTimeout is generous because diagram uploads can be megabytes
	// arriving over slow links.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 180 * time.Second, // must outlast the model call timeout
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
