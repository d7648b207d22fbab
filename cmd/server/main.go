// Package main is the entrypoint for the FashionVista API server.
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

	"github.com/fashionvista/fashionvista/internal/analyzer"
	"github.com/fashionvista/fashionvista/internal/api"
	"github.com/fashionvista/fashionvista/internal/api/handler"
	mw "github.com/fashionvista/fashionvista/internal/api/middleware"
	"github.com/fashionvista/fashionvista/internal/api/response"
	"github.com/fashionvista/fashionvista/internal/auth"
	"github.com/fashionvista/fashionvista/internal/cache"
	"github.com/fashionvista/fashionvista/internal/config"
	"github.com/fashionvista/fashionvista/internal/history"
	"github.com/fashionvista/fashionvista/internal/logging"
	"github.com/fashionvista/fashionvista/internal/store"
	"github.com/fashionvista/fashionvista/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	shutdownTimeout  = 30 * time.Second
	bootstrapKeyName = "bootstrap"
	minPruneInterval = 10 * time.Millisecond
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Install the zap-backed slog default
	flush, err := logging.Setup(cfg.Log.Level, cfg.IsDevelopment())
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer flush()
	slog.Info("config loaded", "env", cfg.Server.Env, "analyzer_url", cfg.Analyzer.URL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 4. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 5. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 6. Create store and ensure the bootstrap admin key
	pgStore := store.NewPostgresStore(pool)
	if cfg.Auth.BootstrapKey != "" {
		if err := ensureBootstrapKey(ctx, pgStore, cfg.Auth.BootstrapKey); err != nil {
			return fmt.Errorf("bootstrap api key: %w", err)
		}
	}

	// 7. Start the history recorder. It outlives ctx so outcomes that settle
	// during shutdown are still written.
	recorder := history.NewRecorder(pgStore, cfg.History.Buffer)
	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()
	recorderDone := make(chan struct{})
	go func() {
		recorder.Run(recorderCtx)
		close(recorderDone)
	}()

	// 8. Build the per-session analysis controllers
	analyzerClient := analyzer.NewHTTPClient(cfg.Analyzer.URL, cfg.Analyzer.Timeout)
	registry := analyzer.NewRegistry(func(sessionID string) *analyzer.Controller {
		return analyzer.NewController(analyzerClient,
			analyzer.WithSession(sessionID),
			analyzer.WithTimeout(cfg.Analyzer.Timeout),
			analyzer.WithObserver(recorder),
		)
	})
	go pruneIdle(ctx, registry, cfg.Auth.IdleTimeout)

	sessions := auth.NewSessions(
		auth.NewClient(cfg.Auth.LoginURL, cfg.Auth.Timeout),
		auth.NewRedisTokenStore(redisCache),
		cfg.Auth.SessionTTL,
	)

	// 9. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, cfg.RateLimit.PerMinute),

		HealthHandler: healthHandler(pgStore, redisCache),

		SubmitHandler:  handler.NewSubmitHandler(registry),
		CurrentHandler: handler.NewCurrentHandler(registry),

		LoginHandler:   handler.NewLoginHandler(sessions),
		LogoutHandler:  handler.NewLogoutHandler(sessions),
		SessionHandler: handler.NewSessionHandler(sessions),

		ListAnalysesHandler: handler.NewListAnalysesHandler(pgStore),
		GetAnalysisHandler:  handler.NewGetAnalysisHandler(pgStore),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 10. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Long polls on GET /analyze hold the response for up to handler.MaxWait.
		WriteTimeout: handler.MaxWait + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := registry.Drain(shutdownCtx); err != nil {
		slog.Warn("in-flight analyses did not settle before shutdown timeout", "error", err)
	}
	stopRecorder()

	select {
	case <-recorderDone:
	case <-shutdownCtx.Done():
		slog.Warn("history recorder did not drain before shutdown timeout")
	}

	slog.Info("server stopped gracefully")
	return nil
}

// ensureBootstrapKey makes rawKey a valid admin key. An existing key with
// the same secret is left untouched.
func ensureBootstrapKey(ctx context.Context, s store.Store, rawKey string) error {
	existing, err := s.GetAPIKeyByPrefix(ctx, rawKey[:mw.KeyPrefixLen])
	if err != nil {
		return err
	}
	for _, k := range existing {
		if bcrypt.CompareHashAndPassword([]byte(k.KeyHash), []byte(rawKey)) == nil {
			return nil
		}
	}

	key, err := handler.NewAPIKey(bootstrapKeyName, rawKey, []string{models.ScopeHistory, models.ScopeAdmin})
	if err != nil {
		return err
	}
	err = s.CreateAPIKey(ctx, key)
	if errors.Is(err, store.ErrDuplicateKey) {
		slog.Warn("bootstrap key name already taken by a different key; revoke it to rotate",
			"name", bootstrapKeyName)
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info("bootstrap api key created", "key_prefix", key.KeyPrefix)
	return nil
}

// pruneIdle drops idle session controllers until ctx is done.
func pruneIdle(ctx context.Context, reg *analyzer.Registry, maxIdle time.Duration) {
	interval := maxIdle / 2
	if interval < minPruneInterval {
		interval = minPruneInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.Prune(maxIdle)
		}
	}
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
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
			"status":   "ok",
			"services": checks,
		})
	}
}
