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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"festreg/internal/platform/config"
	"festreg/internal/platform/httpserver"
	"festreg/internal/platform/logger"
	"festreg/internal/platform/metrics"
	httptransport "festreg/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

// main wires the infrastructure, builds the services and serves HTTP until
// SIGINT or SIGTERM. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	inf, err := openInfra(ctx, cfg, log, m, reg)
	if err != nil {
		return err
	}
	defer inf.Close()

	app := buildApp(cfg, log, m, inf)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Metrics:        m,
		Gatherer:       reg,
		Tokens:         app.tokens,
		AdminToken:     cfg.AdminToken,
		RequestTimeout: cfg.RequestTimeout,
		Checks:         inf.checks,
	}, app.handlers)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting festreg",
			"addr", cfg.Addr,
			"storage", inf.storageKind,
			"idempotency", inf.idempotencyKind,
			"audit", inf.auditKind,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	for _, worker := range inf.workers {
		g.Go(func() error { return worker(gctx) })
	}
	return g.Wait()
}
