// Package main is the entry point for the cmsmini API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cmsmini/internal/auth"
	"cmsmini/internal/cache"
	"cmsmini/internal/config"
	"cmsmini/internal/database"
	"cmsmini/internal/handlers"
	"cmsmini/internal/middleware"
	"cmsmini/internal/router"
	"cmsmini/internal/session"
	"cmsmini/internal/store"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: JSON in production, text elsewhere.
	slog.SetDefault(newLogger(cfg))
	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	ctx := context.Background()

	// Connect to PostgreSQL.
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Create the first admin on an empty database.
	if cfg.SeedAdmin {
		err := database.Seed(ctx, db, database.AdminAccount{
			Email:    cfg.AdminEmail,
			Username: cfg.AdminUsername,
			Password: cfg.AdminPassword,
		})
		if err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (session registry + response cache).
	valkeyClient, err := cache.Connect(ctx, cfg.ValkeyAddr(), cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	sessions := session.NewStore(valkeyClient)
	responses := cache.NewResponseCache(valkeyClient, cfg.CacheTTL)

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	postStore := store.NewPostStore(db)
	categoryStore := store.NewCategoryStore(db)

	// Token signing and verification.
	keys, active := cfg.SigningKeys()
	ring, err := auth.NewKeyRing(keys, active, cfg.JWTRevokedKeys)
	if err != nil {
		slog.Error("failed to build signing key ring", "error", err)
		os.Exit(1)
	}
	tokens := auth.NewTokens(ring, cfg.JWTIssuer, cfg.JWTTTL)
	verifier := auth.NewVerifier(tokens, sessions, userStore)
	slog.Info("token signing ready", "active_key", ring.ActiveKeyID(), "ttl", cfg.JWTTTL)

	limiter := middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst)
	defer limiter.Stop()

	// Set up the Chi router with all middleware and routes.
	r := router.New(verifier, limiter, router.Handlers{
		Auth:       handlers.NewAuth(userStore, sessions, tokens),
		Posts:      handlers.NewPosts(postStore, categoryStore),
		Categories: handlers.NewCategories(categoryStore, responses),
		Users:      handlers.NewUsers(userStore, sessions),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// newLogger builds the process logger from LOG_LEVEL and APP_ENV. An
// unknown level falls back to info.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
