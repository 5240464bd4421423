package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/app"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/config"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/httpapi"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/logger"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal("invalid security configuration", zap.Error(err))
	}
	tokens, err := httpapi.NewTokenManager(cfg.AuthSecret, 0)
	if err != nil {
		log.Fatal("token manager", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	application, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	api := httpapi.New(application.Service, tokens, httpapi.Options{
		AllowedOrigin:       cfg.AllowedOrigin,
		Logger:              log.Named("http"),
		Metrics:             application.Metrics,
		ImportRatePerMinute: cfg.ImportRatePerMinute,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("ledger api listening", zap.String("addr", cfg.Address()), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
	application.Close()

	log.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < httpapi.MinSecretLength {
		return fmt.Errorf("AUTH_SECRET must be set and at least %d characters", httpapi.MinSecretLength)
	}
	if cfg.Env == "production" && (cfg.AllowedOrigin == "" || cfg.AllowedOrigin == "*") {
		return fmt.Errorf("ALLOWED_ORIGIN must name a concrete origin in production")
	}
	return nil
}
