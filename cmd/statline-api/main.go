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

	"github.com/statline/statline/internal/api"
	"github.com/statline/statline/internal/auth"
	"github.com/statline/statline/internal/config"
	enginepostgres "github.com/statline/statline/internal/engine/postgres"
	"github.com/statline/statline/internal/observability"
	"github.com/statline/statline/internal/registry"
)

func main() {
	cfg, err := config.LoadFromEnv("statline-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	storeDB, err := enginepostgres.Open(context.Background(), enginepostgres.DBConfig{
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open store db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = storeDB.Close() }()

	// The registry is loaded completely before the server starts serving so no
	// request can observe a partially populated catalog.
	catalog := registry.New()
	loadRegistry := func(_ context.Context) (registry.LoadResult, error) {
		result, err := registry.LoadDir(cfg.Registry.Dir)
		if err != nil {
			return registry.LoadResult{}, err
		}
		catalog.Swap(result.Specs)
		return result, nil
	}

	result, err := loadRegistry(context.Background())
	if err != nil {
		logger.Error("failed to load dataset registry", slog.Any("error", err))
		os.Exit(1)
	}
	for _, loadErr := range result.Errors {
		logger.Warn("registry spec rejected",
			slog.String("path", loadErr.Path),
			slog.Any("error", loadErr.Err),
		)
	}
	observability.SetRegistryMetrics(len(result.Specs), len(result.Errors))
	logger.Info("dataset registry loaded",
		slog.Int("datasets", len(result.Specs)),
		slog.Int("rejected", len(result.Errors)),
	)

	executor := enginepostgres.NewExecutor(storeDB, cfg.Query.Timeout)

	deps := api.Dependencies{
		Logger:         logger,
		Registry:       catalog,
		Executor:       executor,
		ReloadRegistry: loadRegistry,
		Readiness: api.CombineReadinessChecks(
			executor.HealthCheck,
			api.CheckRegistryNonEmpty(catalog),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
