package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/relaygate/relaygate/internal/config"
	"github.com/relaygate/relaygate/internal/domain"
	"github.com/relaygate/relaygate/internal/dynamo"
	"github.com/relaygate/relaygate/internal/gateway/adapter"
	"github.com/relaygate/relaygate/internal/gateway/app"
	"github.com/relaygate/relaygate/internal/gateway/port"
	"github.com/relaygate/relaygate/internal/gateway/registry"
	"github.com/relaygate/relaygate/internal/redis"
	"github.com/relaygate/relaygate/internal/server"
)

// setup is the gateway composition root. It creates infrastructure clients,
// the pipeline adapters, the dispatcher, and mounts the HTTP surface.
func setup(ctx context.Context, deps server.SetupDeps) (func(context.Context) error, error) {
	cfg := deps.Config
	logger := deps.Logger

	// 1. Infrastructure clients.
	dynamoClient, err := dynamo.NewClient(ctx, dynamo.Config{
		Endpoint: cfg.DynamoDB.Endpoint,
		Region:   cfg.AWS.Region,
		Timeout:  cfg.DynamoDB.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway setup: create dynamo client: %w", err)
	}

	redisClient := redis.NewClient(redis.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		ReadTimeout:  cfg.Redis.Timeout,
		WriteTimeout: cfg.Redis.Timeout,
	})

	// 2. Pipeline adapters.
	clock := domain.RealClock{}
	ledger := adapter.NewQuotaLedger(redisClient.RDB, clock)
	cache := adapter.NewResponseCache(redisClient.RDB)
	instances := adapter.NewInstanceStore(dynamoClient.DB, cfg.DynamoDB.InstancesTable)

	breaker := adapter.NewBreaker(adapter.BreakerConfig{
		FailureThreshold: cfg.Upstream.FailureThreshold,
		RecoveryTimeout:  cfg.Upstream.RecoveryTimeout,
		Clock:            clock,
	})
	upstream := adapter.NewUpstreamClient(adapter.UpstreamConfig{
		BaseURL:     cfg.Upstream.BaseURL,
		APIKey:      cfg.Upstream.APIKey,
		CallTimeout: cfg.Upstream.CallTimeout,
		Breaker:     breaker,
		Logger:      logger,
	})

	// 3. Dispatcher.
	reg := registry.New()
	dispatcher := app.NewDispatcher(app.DispatcherConfig{
		Registry:  reg,
		Ledger:    ledger,
		Cache:     cache,
		Instances: instances,
		Upstream:  upstream,
		Metrics:   metricsRecorder(cfg, logger),
		Plan:      cfg.QuotaPlan(),
		Clock:     clock,
		Logger:    logger,
	})

	// 4. HTTP surface: every proxy route behind tenant auth.
	handler := port.NewHandler(dispatcher, reg, logger)
	deps.Router.Group(func(r chi.Router) {
		r.Use(port.Authenticate([]byte(cfg.Gateway.AuthSecret)))
		handler.Mount(r)
	})

	logger.InfoContext(ctx, "gateway initialized",
		slog.Int("endpoints", len(reg.Keys())),
		slog.String("upstream_base_url", cfg.Upstream.BaseURL))

	cleanup := func(_ context.Context) error {
		return redisClient.Close()
	}

	return cleanup, nil
}

// metricsRecorder returns the dispatch sample recorder for the environment.
// Local development logs samples; other environments rely on the OTEL
// counters alone.
func metricsRecorder(cfg *config.Config, logger *slog.Logger) app.MetricsRecorder {
	if cfg.IsLocal() {
		return app.NewLogRecorder(logger)
	}
	return nil
}
