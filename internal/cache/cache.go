package cache

import (
	"context"
	"time"
)

// SummaryCache holds computed dashboard payloads. It is best effort: callers
// treat every error as a miss and recompute.
type SummaryCache interface {
	// Get decodes the cached value for key into dst.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// InvalidatePrefix drops every key starting with prefix.
	InvalidatePrefix(ctx context.Context, prefix string) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ any, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) InvalidatePrefix(_ context.Context, _ string) error {
	return nil
}
