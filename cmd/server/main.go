// WooAgent mock API server.
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

	"github.com/ashureev/wooagent/internal/api"
	"github.com/ashureev/wooagent/internal/applog"
	"github.com/ashureev/wooagent/internal/config"
	"github.com/ashureev/wooagent/internal/fixtures"
	"github.com/ashureev/wooagent/internal/middleware"
	"github.com/ashureev/wooagent/internal/service"
	"github.com/ashureev/wooagent/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logOpts := applog.ConsoleOptions(cfg.LogMaxEntries, cfg.IsDevelopment(), cfg.Debug, os.Stdout)
	logOpts.JSON = true
	logger, ring := applog.New(logOpts)
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "env", cfg.AppEnv, "dev", cfg.IsDevelopment())

	seed, err := fixtures.Load()
	if err != nil {
		slog.Error("Failed to load fixtures", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := store.NewSQLite(ctx, store.MemoryDSN, seed)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database seeded", "agents", len(seed.Agents), "knowledge_bases", len(seed.KnowledgeBases))

	clock := clockwork.NewRealClock()
	cache := service.NewCache(cfg.CacheTTL, clock)
	backend := service.New(repo, seed, service.WithClock(clock), service.WithCache(cache))

	cache.StartSweeper(ctx, cfg.CacheSweepInterval)

	handler := api.NewHandler(api.Options{
		Backend:       backend,
		Ring:          ring,
		Development:   cfg.IsDevelopment(),
		AllowedOrigin: cfg.FrontendURL,
		Clock:         clock,
	})

	origins := []string{"*"}
	if !cfg.IsDevelopment() && cfg.FrontendURL != "" {
		origins = []string{cfg.FrontendURL}
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(middleware.DefaultCORS(origins...)))

	handler.RegisterRoutes(r)

	// SSE and websocket streams stay open, so there is no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	handler.Conns().CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
