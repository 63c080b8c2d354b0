package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/brokewise/internal/auth"
	"github.com/mmynk/brokewise/internal/config"
	"github.com/mmynk/brokewise/internal/fx"
	"github.com/mmynk/brokewise/internal/metrics"
	"github.com/mmynk/brokewise/internal/retention"
	"github.com/mmynk/brokewise/internal/service"
	"github.com/mmynk/brokewise/internal/storage/sqlite"
	"github.com/mmynk/brokewise/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize SQLite storage
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return err
	}
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	rates, closeRates, err := newRateGateway(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer closeRates()

	opts := []service.Option{
		service.WithMetrics(m),
		service.WithDefaultBase(cfg.Base()),
	}
	if cfg.TokensEnabled() {
		opts = append(opts, service.WithTokens(auth.NewJWTManager(cfg.TokenSecret, cfg.TokenTTL)))
		slog.Info("Edit tokens enabled", "ttl", cfg.TokenTTL)
	} else {
		slog.Warn("No token secret configured, group edits are open")
	}
	svc := service.NewLedgerService(store, rates, opts...)

	janitor, err := retention.New(retention.Params{
		Store:     store,
		Retention: cfg.Retention,
		Interval:  cfg.CleanupInterval,
		Metrics:   m,
	})
	if err != nil {
		return err
	}
	go janitor.Run(ctx)

	router := service.NewRouter(svc, service.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", server.Addr, "url", "http://localhost"+server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newRateGateway wires the exchange rate stack: HTTP provider, snapshot cache
// (Redis when configured, memory otherwise) and the fail-open gateway.
func newRateGateway(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*fx.Gateway, func(), error) {
	provider := fx.NewHTTPProvider(fx.HTTPOptions{
		BaseURL:           cfg.RatesBaseURL,
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})

	var cache fx.SnapshotCache = fx.NewMemoryCache()
	closeFn := func() {}
	if cfg.RedisURL != "" {
		client, err := fx.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		cache = fx.NewRedisCache(client)
		closeFn = func() { client.Close() }
		slog.Info("Rate cache using Redis")
	}

	gateway := fx.NewGateway(
		fx.NewCachedProvider(provider, cache, cfg.CacheTTL),
		fx.WithMetrics(m),
		fx.WithFanOut(cfg.FanOut),
	)
	return gateway, closeFn, nil
}
