// Package app wires configuration into a ready Service. The HTTP server and
// the operator CLI share it.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/analytics"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/cache"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/config"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/ledger"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/logger"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/service"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/store"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/store/memory"
	pgstore "github.com/JayRileyDev/supptraq-claude-sub000/internal/store/postgres"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/telemetry"
)

type App struct {
	Service *service.Service
	Metrics *telemetry.Metrics
	Repo    store.Repository

	closers []func() error
	log     *zap.Logger
}

// Build connects the configured backends. A set DATABASE_URL that cannot be
// reached is fatal; an unreachable Redis degrades to no summary cache.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)
	a := &App{log: log}

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.Repo = pg
		a.closers = append(a.closers, pg.Close)
		log.Info("repository ready", zap.String("backend", "postgres"))
	} else {
		a.Repo = memory.NewSeeded()
		log.Info("repository ready", zap.String("backend", "memory"))
	}

	summaryCache := cache.SummaryCache(cache.NoopSummaryCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSummaryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("redis unavailable, using noop cache", zap.Error(err))
			_ = redisCache.Close()
		} else {
			summaryCache = redisCache
			a.closers = append(a.closers, redisCache.Close)
			log.Info("cache ready", zap.String("backend", "redis"))
		}
	}

	a.Metrics = telemetry.New()
	writer := ledger.NewWriter(a.Repo, ledger.Options{
		BatchSize:      cfg.ImportBatchSize,
		Concurrency:    cfg.ImportConcurrency,
		DuplicateGuard: cfg.ImportDuplicateGuard,
	}, log.Named("ledger"))
	engine := analytics.NewEngine(summaryCache, time.Duration(cfg.SummaryTTLSeconds)*time.Second, analytics.Options{
		OutlierStoreID:    cfg.OutlierStoreID,
		CoachingBenchmark: cfg.CoachingBenchmark,
	}, log.Named("analytics"))

	a.Service = service.New(a.Repo, writer, engine, service.Options{
		Logger:         log.Named("service"),
		Metrics:        a.Metrics,
		DuplicateGuard: cfg.ImportDuplicateGuard,
	})
	return a, nil
}

// Close releases backends in the order they were opened.
func (a *App) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
