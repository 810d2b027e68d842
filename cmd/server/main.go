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
	"github.com/ErlanBelekov/account-service/internal/email"
	"github.com/ErlanBelekov/account-service/internal/health"
	"github.com/ErlanBelekov/account-service/internal/infrastructure/store"
	ctxlog "github.com/ErlanBelekov/account-service/internal/log"
	"github.com/ErlanBelekov/account-service/internal/metrics"
	"github.com/ErlanBelekov/account-service/internal/password"
	"github.com/ErlanBelekov/account-service/internal/reaper"
	"github.com/ErlanBelekov/account-service/internal/token"
	httptransport "github.com/ErlanBelekov/account-service/internal/transport/http"
	"github.com/ErlanBelekov/account-service/internal/transport/http/handler"
	"github.com/ErlanBelekov/account-service/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, closeLog := ctxlog.New(ctxlog.Options{Env: cfg.Env, Level: cfg.SlogLevel(), File: cfg.LogFile})
	defer func() { _ = closeLog() }()

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	users, closeStore, err := store.Open(ctx, store.Options{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		RedisPrefix: cfg.RedisPrefix,
		Migrate:     true,
	})
	if err != nil {
		stop()
		log.Fatalf("store: %v", err)
	}
	defer closeStore()

	logger.Info("store connected", "driver", cfg.StoreDriver)

	tokens := token.NewIssuer(token.Config{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer})
	hasher := password.NewHasher(cfg.BcryptCost)
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, email.Identity{From: cfg.MailFrom, Name: cfg.MailFromName}, logger)

	// Accounts
	accountUsecase := usecase.NewAccountUsecase(users, hasher, tokens, logger)
	authHandler := handler.NewAuthHandler(accountUsecase, logger)

	// Password reset
	resetUsecase := usecase.NewResetUsecase(users, hasher, tokens, sender, usecase.ResetConfig{
		PublicBaseURL: cfg.PublicBaseURL,
	}, logger)
	resetHandler := handler.NewResetHandler(resetUsecase, cfg.AppBaseURL, logger)

	permitReaper, err := reaper.NewPermitReaper(users, cfg.PermitReapSchedule, logger)
	if err != nil {
		stop()
		log.Fatalf("reaper: %v", err)
	}
	go permitReaper.Start(ctx)

	metrics.Register()
	checker := health.NewChecker(users, cfg.StoreDriver, logger, prometheus.DefaultRegisterer)

	router := httptransport.NewRouter(logger, authHandler, resetHandler, tokens)
	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httptransport.WithCORS(router, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	// Let in-flight "password changed" emails finish.
	resetUsecase.Wait()
}
