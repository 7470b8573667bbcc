// Package main is the entry point for the diagram-to-code server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal — its job is to:
// 1. Read configuration (from env vars, flags, or config files)
// 2. Create dependencies (logger, AI client, etc.)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
// This separation makes the app testable and its components reusable.
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points.
// A project might have multiple executables (e.g., cmd/server, cmd/migrate, cmd/cli).
// Each gets its own directory with its own main.go.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sakif/opm-codegen/internal/oracle"
	"github.com/sakif/opm-codegen/internal/server"
)

func main() {
	// === 1. SET UP LOGGING ===
	// slog.New creates a structured logger. slog.NewTextHandler outputs human-readable logs.
	// os.Stdout means logs go to the terminal. slog.LevelDebug enables all log levels.
	//
	// Log levels (from least to most severe): Debug → Info → Warn → Error
	// In production, you'd use LevelInfo or LevelWarn to reduce noise.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// === 2. READ CONFIGURATION ===
	// We read the port from the PORT environment variable, defaulting to 8080.
	// os.Getenv returns "" if the variable isn't set, so we check and provide a default.
	//
	// In a larger app, you'd use a config library (like viper) or a config struct
	// loaded from a YAML/TOML file. For learning, env vars are simple and standard.
	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr) // Atoi = ASCII to Integer
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	// === 3. DATABASE PATH ===
	// Default to "data/opm.db" in the project root.
	// The "data" directory will be created automatically by os.MkdirAll if it doesn't exist.
	//
	// DB_PATH env var allows overriding for production deployments.
	// Example: DB_PATH=/var/lib/opm-codegen/prod.db
	dbPath := "data/opm.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}

	// Ensure the data directory exists.
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	// 0755 = owner can read/write/execute, others can read/execute.
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 4. AUTH CONFIGURATION ===
	// JWT_SECRET must be a long random string. Use:
	//   JWT_SECRET=$(openssl rand -hex 32)
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	// === 5. KNOWLEDGE BASE ===
	// The OPM reference PDFs (methodology manual, lecture notes) live in a
	// directory and are uploaded to the Gemini Files API once at startup.
	// KNOWLEDGE_DIR overrides the default location.
	knowledgeDir := "knowledge"
	if envDir := os.Getenv("KNOWLEDGE_DIR"); envDir != "" {
		knowledgeDir = envDir
	}

	knowledgePaths, err := filepath.Glob(filepath.Join(knowledgeDir, "*.pdf"))
	if err != nil {
		logger.Error("failed to scan knowledge directory", slog.String("error", err.Error()))
		os.Exit(1)
	}
	// Glob order is filesystem-dependent — sort for a stable prompt layout.
	sort.Strings(knowledgePaths)

	// === 6. CREATE THE AI CLIENT ===
	// This is the one startup step that talks to the outside world: it
	// verifies the API key and uploads the knowledge PDFs. A failure here
	// is fatal — a server that can't reach the model can't do its job.
	aiCfg := oracle.Config{
		APIKey:         os.Getenv("GEMINI_API_KEY"),
		Model:          os.Getenv("GEMINI_MODEL"), // empty = oracle.DefaultModel
		KnowledgePaths: knowledgePaths,
	}

	ai, err := oracle.NewGemini(context.Background(), aiCfg, logger)
	if err != nil {
		logger.Error("failed to initialize AI client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 7. CORS ORIGINS ===
	// Comma-separated list of allowed browser origins. Empty means allow
	// all — fine for local dev, lock it down in production:
	//   CORS_ORIGINS=https://app.example.com,https://staging.example.com
	var corsOrigins []string
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				corsOrigins = append(corsOrigins, origin)
			}
		}
	}

	// === 8. CREATE AND START THE SERVER ===
	cfg := server.Config{
		Port:         port,
		DBPath:       dbPath,
		JWTSecret:    jwtSecret,
		UploadFamily: os.Getenv("UPLOAD_FAMILY"), // "" or "pdf" = PDF diagrams, "image" = JPG/PNG
		CORSOrigins:  corsOrigins,
	}

	srv, err := server.New(cfg, ai, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
