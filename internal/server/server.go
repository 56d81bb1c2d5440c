// Package server provides the service lifecycle runner: signal handling,
// config loading, observability init, the HTTP server with health checks,
// and graceful shutdown. cmd/gateway delegates its whole lifecycle to Run.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/relaygate/relaygate/internal/config"
	"github.com/relaygate/relaygate/internal/domain"
	"github.com/relaygate/relaygate/internal/observability"
)

// SetupDeps is what Run hands the service's composition root.
type SetupDeps struct {
	Config *config.Config
	Logger *slog.Logger

	// Router is the service's route surface. Setup mounts handlers and
	// middleware here; /healthz is owned by the runner.
	Router chi.Router
}

// Params configures the lifecycle runner.
type Params struct {
	// Name identifies the service in logs and health responses.
	Name string

	// PortFromConfig extracts the HTTP port from config.
	PortFromConfig func(cfg *config.Config) int

	// Setup wires the service. The returned cleanup runs during shutdown,
	// after the HTTP server has drained.
	Setup func(ctx context.Context, deps SetupDeps) (func(context.Context) error, error)
}

// Run executes the full service lifecycle. If ln is non-nil it is used
// instead of a listener from config (enables port-0 testing). Run blocks
// until SIGTERM/SIGINT or a fatal serve error.
func Run(ctx context.Context, p Params, ln net.Listener) error {
	// Signal-based cancellation: ctx.Done() closes on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: p.Name,
		Environment: cfg.Environment,
	})

	// --- Startup order: telemetry -> setup -> HTTP server ---

	providers, err := observability.Init(ctx, observability.OTELConfig{
		ServiceName:    p.Name,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	// Health check shutdown coordination via atomic flag.
	var shuttingDown atomic.Bool

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if shuttingDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"shutting_down","service":%q}`, p.Name)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":%q}`, p.Name)
	})

	cleanup, err := p.Setup(ctx, SetupDeps{
		Config: cfg,
		Logger: logger,
		Router: router,
	})
	if err != nil {
		return fmt.Errorf("setup %s: %w", p.Name, err)
	}

	if ln == nil {
		ln, err = (&net.ListenConfig{}).Listen(ctx, "tcp", fmt.Sprintf(":%d", p.PortFromConfig(cfg)))
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	httpServer := &http.Server{
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server",
			slog.String("addr", ln.Addr().String()),
			slog.String("environment", cfg.Environment),
		)
		if serveErr := httpServer.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})

	// Shutdown order is the explicit reverse of startup: HTTP server first,
	// then service cleanup, then telemetry flush.
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("received shutdown signal, starting graceful shutdown")

		// 1. Health checks report 503 so the LB stops routing here.
		shuttingDown.Store(true)

		// 2. Drain delay for endpoint-removal propagation.
		time.Sleep(domain.ShutdownDrainDelay)

		// 3. Drain in-flight requests.
		httpCtx, httpCancel := context.WithTimeout(context.Background(), domain.ShutdownHTTPTimeout)
		defer httpCancel()
		if shutdownErr := httpServer.Shutdown(httpCtx); shutdownErr != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", shutdownErr.Error()))
		}

		// 4. Service cleanup (closes infrastructure clients).
		if cleanup != nil {
			if cleanupErr := cleanup(httpCtx); cleanupErr != nil {
				logger.Error("cleanup error", slog.String("error", cleanupErr.Error()))
			}
		}

		// 5. Flush telemetry last so shutdown itself is observable.
		otelCtx, otelCancel := context.WithTimeout(context.Background(), domain.ShutdownOTELTimeout)
		defer otelCancel()
		if shutdownErr := providers.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown telemetry", slog.String("error", shutdownErr.Error()))
		}

		logger.Info("shutdown complete")
		return nil
	})

	return g.Wait()
}
