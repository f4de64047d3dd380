package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/verdicthq/verdict/internal/api"
	"github.com/verdicthq/verdict/internal/cleanup"
	"github.com/verdicthq/verdict/internal/collab"
	"github.com/verdicthq/verdict/internal/config"
	"github.com/verdicthq/verdict/internal/content"
	"github.com/verdicthq/verdict/internal/qualification"
	"github.com/verdicthq/verdict/internal/ratelimit"
	"github.com/verdicthq/verdict/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting verdictd",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("database connected successfully")

	// Rate limiter and in-flight guard: Redis when configured,
	// in-memory otherwise (single-instance deployments)
	var limiter ratelimit.Limiter
	var guard ratelimit.Guard
	if cfg.Redis.Address != "" {
		redisLimiter, err := ratelimit.NewRedisLimiter(
			cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB,
			cfg.Flow.QuizRateLimit, cfg.Flow.QuizRateWindow,
		)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisLimiter.Close()
		limiter = redisLimiter
		guard = ratelimit.NewRedisGuard(redisLimiter.Client(), 0)
		slog.Info("redis connected successfully", "address", cfg.Redis.Address)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.Flow.QuizRateLimit, cfg.Flow.QuizRateWindow)
		guard = ratelimit.NewMemoryGuard()
		slog.Warn("redis not configured, using in-memory rate limiting")
	}

	// Load quiz questions and guideline sections
	contentLoader := content.NewLoader()
	if err := contentLoader.LoadFromDir(cfg.Content.Dir); err != nil {
		slog.Error("failed to load content", "dir", cfg.Content.Dir, "error", err)
		os.Exit(1)
	}
	slog.Info("content loaded",
		"questions", len(contentLoader.Questions()),
		"guidelines", len(contentLoader.Guidelines()),
	)

	// Remote collaborators
	grading := collab.NewGradingClient(cfg.Collaborators.GradingBaseURL, cfg.Collaborators.Timeout)
	profiles := collab.NewProfileClient(cfg.Collaborators.ProfileBaseURL, cfg.Collaborators.Timeout)

	// Initialize flow orchestrator
	flow := qualification.New(
		qualification.Config{
			SessionTTL:      cfg.Flow.SessionTTL,
			QuizAckDelay:    cfg.Flow.QuizAckDelay,
			CompletionDelay: cfg.Flow.CompletionDelay,
			JudgeHomeURL:    cfg.Flow.JudgeHomeURL,
		},
		repo, profiles, grading, contentLoader, limiter, guard,
	)

	// Initialize cleanup worker
	cleaner := cleanup.NewCleaner(repo, flow, cfg.Cleanup.Interval)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start cleanup worker
	cleaner.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, flow, repo, api.NewAuthMiddleware(cfg.Auth.JWTSecret))
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("verdictd stopped")
}
