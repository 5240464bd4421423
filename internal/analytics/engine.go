package analytics

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/cache"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/logger"
)

const keyPrefix = "supptraq:analytics:"

// LedgerLoader reads the tenant's ledgers on a cache miss.
type LedgerLoader func(ctx context.Context) (domain.Ledger, error)

// Engine fronts Compute and RepPerformance with a best-effort cache keyed by
// tenant and filter. A cached value is never authoritative: cache errors fall
// through to a fresh computation.
type Engine struct {
	cache    cache.SummaryCache
	cacheTTL time.Duration
	opts     Options
	log      *zap.Logger
}

func NewEngine(cacheStore cache.SummaryCache, cacheTTL time.Duration, opts Options, log *zap.Logger) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopSummaryCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	log = logger.OrNop(log)

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		opts:     opts,
		log:      log,
	}
}

func (e *Engine) Summary(ctx context.Context, tenant domain.Tenant, filter domain.LedgerFilter, load LedgerLoader) (domain.MetricsSummary, error) {
	key := buildCacheKey(tenant, "summary", filter)
	var cached domain.MetricsSummary
	if e.lookup(ctx, key, &cached) {
		return cached, nil
	}

	ledger, err := load(ctx)
	if err != nil {
		return domain.MetricsSummary{}, err
	}
	var summary domain.MetricsSummary
	if err := guard(func() { summary = Compute(ledger, e.opts) }); err != nil {
		return domain.MetricsSummary{}, err
	}

	e.store(ctx, key, summary)
	return summary, nil
}

func (e *Engine) RepPerformance(ctx context.Context, tenant domain.Tenant, filter domain.LedgerFilter, load LedgerLoader) (domain.RepPerformanceResponse, error) {
	key := buildCacheKey(tenant, "reps", filter)
	var cached domain.RepPerformanceResponse
	if e.lookup(ctx, key, &cached) {
		return cached, nil
	}

	ledger, err := load(ctx)
	if err != nil {
		return domain.RepPerformanceResponse{}, err
	}
	var resp domain.RepPerformanceResponse
	if err := guard(func() { resp = RepPerformance(ledger, e.opts) }); err != nil {
		return domain.RepPerformanceResponse{}, err
	}

	e.store(ctx, key, resp)
	return resp, nil
}

// Invalidate drops every cached view of tenant.
func (e *Engine) Invalidate(ctx context.Context, tenant domain.Tenant) error {
	return e.cache.InvalidatePrefix(ctx, tenantPrefix(tenant))
}

func (e *Engine) lookup(ctx context.Context, key string, dst any) bool {
	ok, err := e.cache.Get(ctx, key, dst)
	if err != nil {
		e.log.Warn("analytics cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (e *Engine) store(ctx context.Context, key string, value any) {
	if err := e.cache.Set(ctx, key, value, e.cacheTTL); err != nil {
		e.log.Warn("analytics cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// guard turns a panic inside the aggregation into an error.
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aggregation panicked: %v", r)
		}
	}()
	fn()
	return nil
}

func tenantPrefix(tenant domain.Tenant) string {
	return keyPrefix + tenant.Key() + ":"
}

func buildCacheKey(tenant domain.Tenant, kind string, filter domain.LedgerFilter) string {
	parts := []string{kind, filter.StoreID, filter.SalesRep}
	for _, t := range []*time.Time{filter.From, filter.To} {
		if t == nil {
			parts = append(parts, "-")
			continue
		}
		parts = append(parts, t.UTC().Format(time.RFC3339))
	}

	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return tenantPrefix(tenant) + kind + ":" + hex.EncodeToString(hash[:])
}
