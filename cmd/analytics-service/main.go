package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/config"
	httpapi "github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- sinks ---
	sinks, closeSinks, err := buildSinks(ctx, cfg.Sink, logger)
	if err != nil {
		logger.Fatal("sink setup failed", zap.String("kind", cfg.Sink.Kind), zap.Error(err))
	}
	defer closeSinks()

	// --- sessions ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(reg)

	registry := session.NewRegistry(session.Options{
		Sinks:         sinks,
		Observer:      recorder,
		Logger:        logger,
		CartDebounce:  cfg.Tracking.CartDebounce,
		CheckoutRoute: cfg.Tracking.CheckoutRoute,
		IdleTimeout:   cfg.Tracking.SessionIdleTimeout,
	})

	sweeper, err := session.NewSweeper(registry, cfg.Tracking.SweepSchedule, logger)
	if err != nil {
		logger.Fatal("sweeper setup failed", zap.Error(err))
	}
	sweeper.Start()

	// --- HTTP ---
	router := httpapi.NewRouter(httpapi.Deps{
		Handler:          httpapi.NewHandler(registry, logger),
		Logger:           logger,
		Metrics:          promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening",
			zap.String("addr", cfg.Addr()),
			zap.String("sink", cfg.Sink.Kind),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	<-sweeper.Stop().Done()
	open := registry.Len()
	registry.CloseAll()

	logger.Info("shutdown complete", zap.Int("closed_sessions", open))
}
