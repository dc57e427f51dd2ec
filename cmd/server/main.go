// Package main is the entry point for the vaccine portal server.
//
// The main package stays minimal: read configuration, build the logger,
// hand both to internal/server and block until shutdown. All actual logic
// lives in the internal packages.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/vaccine-portal/internal/config"
	"github.com/sakif/vaccine-portal/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// .env is optional; real environment variables win over it.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if cfg.IsDevelopment() {
		logger.Warn("development mode: session cookies are sent without Secure")
	}
	if !cfg.GitHubEnabled() && !cfg.GoogleEnabled() {
		logger.Info("no OAuth providers configured, only email sign-in is available")
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM and closes the store on the way out.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
