// Package main is the entrypoint for the GuestPulse API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guestpulse/guestpulse/internal/analysis"
	"github.com/guestpulse/guestpulse/internal/api"
	"github.com/guestpulse/guestpulse/internal/api/handler"
	mw "github.com/guestpulse/guestpulse/internal/api/middleware"
	"github.com/guestpulse/guestpulse/internal/api/response"
	"github.com/guestpulse/guestpulse/internal/cache"
	"github.com/guestpulse/guestpulse/internal/classify"
	"github.com/guestpulse/guestpulse/internal/config"
	"github.com/guestpulse/guestpulse/internal/insights"
	"github.com/guestpulse/guestpulse/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "classify_mode", cfg.Classify.Mode, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create classifier
	classifier, err := classify.NewClassifier(cfg.Classify)
	if err != nil {
		return fmt.Errorf("create classifier: %w", err)
	}
	slog.Info("classifier initialized", "backend", classifier.Name())

	// 6. Create store and services
	pgStore := store.NewPostgresStore(pool)
	pipeline := analysis.NewService(classifier, pgStore)
	insightsSvc := insights.NewService(pgStore, redisCache)

	// 7. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, 60)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: healthHandler(pgStore, redisCache, classifierInfo(classifier.Name(), cfg.Classify)),

		IngestReviewsHandler: handler.NewIngestReviewsHandler(pgStore),
		ListReviewsHandler:   handler.NewListReviewsHandler(pgStore),

		AnalyzeHandler: handler.NewAnalyzeHandler(pipeline),

		ReplyQueueHandler:     handler.NewReplyQueueHandler(pgStore),
		ApproveRepliesHandler: handler.NewApproveRepliesHandler(pgStore),
		ExportRepliesHandler:  handler.NewExportRepliesHandler(pgStore),

		InsightsHandler: handler.NewInsightsHandler(insightsSvc),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// backendInfo describes the active classification backend so operators can
// see which session is answering without reading startup logs.
type backendInfo struct {
	Backend string `json:"backend"`
	Mode    string `json:"mode"`
	Model   string `json:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

func classifierInfo(name string, cfg config.ClassifyConfig) backendInfo {
	info := backendInfo{Backend: name, Mode: cfg.Mode}
	if cfg.Mode == "llm" {
		info.Model = cfg.LLM.Model
		info.BaseURL = cfg.LLM.BaseURL
	}
	return info
}

// healthHandler checks database and cache connectivity and reports the
// active classification backend.
func healthHandler(s store.Store, c cache.Cache, info backendInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":     "ok",
			"services":   checks,
			"classifier": info,
		})
	}
}
