// shopsyncd keeps shoppers' carts and wishlists in step with the store and
// serves them over REST and MCP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shopsync/internal/config"
	"shopsync/internal/controller"
	"shopsync/internal/handler"
	"shopsync/internal/metrics"
	"shopsync/internal/middleware"
	"shopsync/internal/rest"
	"shopsync/internal/session"
)

const shutdownGrace = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "shopsyncd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("store_url", cfg.Store.BaseURL),
		slog.String("paths", cfg.Store.Paths),
		slog.String("transport", cfg.Store.Transport),
		slog.Any("policy", cfg.Policy()),
	)

	routes, err := buildHandler(cfg, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routes,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return serve(ctx, server, logger)
}

// buildHandler wires the store client, the controller registry and the
// middleware stack around the router.
func buildHandler(cfg *config.Config, logger *slog.Logger) (http.Handler, error) {
	restCfg, err := cfg.RestConfig()
	if err != nil {
		return nil, fmt.Errorf("building store config: %w", err)
	}
	store, err := rest.New(restCfg)
	if err != nil {
		return nil, fmt.Errorf("creating store client: %w", err)
	}

	registry := controller.NewRegistry(controller.Options{
		Backend: store,
		Logger:  logger,
		Metrics: metrics.NewOperations(prometheus.DefaultRegisterer),
		Policy:  cfg.Policy(),
	})
	routes := handler.New(registry, logger, promhttp.Handler()).Routes()

	// Recovery sits outside Logging so a panic inside the logger is still caught.
	return middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.Logging(logger),
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{
				"Accept", "Content-Type", session.HeaderName,
				middleware.RequestIDHeader, "Mcp-Session-Id", "Mcp-Protocol-Version",
			},
			ExposedHeaders: []string{middleware.RequestIDHeader, "Mcp-Session-Id"},
			MaxAge:         300,
		}),
	)(routes), nil
}

// serve runs server until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", server.Addr))
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listening on %s: %w", server.Addr, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", slog.Duration("grace", shutdownGrace))
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		server.Close()
		return fmt.Errorf("draining connections: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newLogger returns a JSON logger in production, for Cloud Logging, and a
// text logger elsewhere. Debug level adds source locations.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
