// reaper runs the expired-permit sweep as its own process, for deployments
// that keep it out of the API servers.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/account-service/config"
	"github.com/ErlanBelekov/account-service/internal/health"
	"github.com/ErlanBelekov/account-service/internal/infrastructure/store"
	ctxlog "github.com/ErlanBelekov/account-service/internal/log"
	"github.com/ErlanBelekov/account-service/internal/metrics"
	"github.com/ErlanBelekov/account-service/internal/reaper"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, closeLog := ctxlog.New(ctxlog.Options{Env: cfg.Env, Level: cfg.SlogLevel(), File: cfg.LogFile})
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	users, closeStore, err := store.Open(ctx, store.Options{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		RedisPrefix: cfg.RedisPrefix,
	})
	if err != nil {
		stop()
		log.Fatalf("store: %v", err)
	}
	defer closeStore()

	logger.Info("store connected", "driver", cfg.StoreDriver)

	metrics.Register()
	checker := health.NewChecker(users, cfg.StoreDriver, logger, prometheus.DefaultRegisterer)

	permitReaper, err := reaper.NewPermitReaper(users, cfg.PermitReapSchedule, logger)
	if err != nil {
		stop()
		log.Fatalf("reaper: %v", err)
	}

	done := make(chan struct{})
	go func() {
		permitReaper.Start(ctx)
		close(done)
	}()

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("reaper shut down")
}
