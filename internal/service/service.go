package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/analytics"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/ledger"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/logger"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/parser"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/reconcile"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/store"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/telemetry"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/xid"
)

var (
	ErrMissingTenant = errors.New("tenant context required")
	ErrForbidden     = errors.New("admin role required")
	ErrInvalidFilter = errors.New("invalid filter")
	ErrEmptyImport   = errors.New("import has no rows")
	ErrComputeFailed = errors.New("failed to compute metrics")
)

const dateLayout = "2006-01-02"

type actorContextKey struct{}

type tenantContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// WithTenant scopes ctx to tenant without an authenticated actor, as the
// operator CLI does.
func WithTenant(ctx context.Context, tenant domain.Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenant)
}

// TenantFromContext prefers an explicit tenant over the actor's.
func TenantFromContext(ctx context.Context) (domain.Tenant, bool) {
	if tenant, ok := ctx.Value(tenantContextKey{}).(domain.Tenant); ok && tenant.Valid() {
		return tenant, true
	}
	if actor, ok := ActorFromContext(ctx); ok && actor.Tenant.Valid() {
		return actor.Tenant, true
	}
	return domain.Tenant{}, false
}

type Options struct {
	Logger  *zap.Logger
	Metrics *telemetry.Metrics
	// DuplicateGuard is the default when an import does not say.
	DuplicateGuard bool
}

type Service struct {
	repo           store.Repository
	writer         *ledger.Writer
	engine         *analytics.Engine
	metrics        *telemetry.Metrics
	log            *zap.Logger
	duplicateGuard bool
}

func New(repo store.Repository, writer *ledger.Writer, engine *analytics.Engine, opts Options) *Service {
	log := logger.OrNop(opts.Logger)
	if writer == nil {
		writer = ledger.NewWriter(repo, ledger.Options{}, log)
	}
	if engine == nil {
		engine = analytics.NewEngine(nil, 0, analytics.Options{}, log)
	}

	return &Service{
		repo:           repo,
		writer:         writer,
		engine:         engine,
		metrics:        opts.Metrics,
		log:            log,
		duplicateGuard: opts.DuplicateGuard,
	}
}

// Import parses one grid and writes its tickets to the tenant's ledgers.
func (s *Service) Import(ctx context.Context, req domain.ImportRequest) (domain.ImportResponse, error) {
	if len(req.Rows) == 0 {
		return domain.ImportResponse{}, ErrEmptyImport
	}
	return s.ImportChunks(ctx, []domain.Grid{req.Rows}, req.NameCache, req.SkipDuplicates)
}

// ImportChunks parses chunks in file order, threading the name cache between
// them, then writes every ticket in one pass.
func (s *Service) ImportChunks(ctx context.Context, chunks []domain.Grid, nameCache map[string]string, skipDuplicates *bool) (domain.ImportResponse, error) {
	tenant, err := s.requireAdmin(ctx)
	if err != nil {
		return domain.ImportResponse{}, err
	}
	rows := 0
	for _, chunk := range chunks {
		rows += len(chunk)
	}
	if rows == 0 {
		return domain.ImportResponse{}, ErrEmptyImport
	}

	importID := xid.New("imp")
	startedAt := time.Now()
	s.log.Info("import started",
		zap.String("import_id", importID),
		zap.String("tenant", tenant.Key()),
		zap.Int("chunks", len(chunks)),
		zap.Int("rows", rows),
	)

	parsed := parser.ParseChunks(chunks, parser.Options{
		Catalog: s.catalog(ctx),
		Cache:   parser.NameCache(nameCache),
	})
	for _, msg := range parsed.Errors {
		s.log.Warn("ticket parse failed", zap.String("import_id", importID), zap.String("error", msg))
	}
	s.metrics.ObserveParse(len(parsed.Tickets), len(parsed.Errors))

	guard := s.duplicateGuard
	if skipDuplicates != nil {
		guard = *skipDuplicates
	}
	result, err := s.writer.WithDuplicateGuard(guard).Write(ctx, tenant, importID, parsed.Tickets)
	if err != nil {
		return domain.ImportResponse{}, err
	}
	s.metrics.ObserveWrite(result)
	s.invalidate(ctx, tenant)

	s.log.Info("import finished",
		zap.String("import_id", importID),
		zap.Int("tickets", len(parsed.Tickets)),
		zap.Int("parse_errors", len(parsed.Errors)),
		zap.Int("inserted", result.Inserted.Total()),
		zap.Int("failed", result.Failed.Total()),
		zap.Int("skipped", result.Skipped),
		zap.Duration("took", time.Since(startedAt)),
	)

	return domain.ImportResponse{
		ImportID:      importID,
		TicketsParsed: len(parsed.Tickets),
		ParseErrors:   parsed.Errors,
		NameCache:     parsed.Cache,
		WriteResult:   result,
	}, nil
}

// Tickets returns the canonical ticket set for the tenant.
func (s *Service) Tickets(ctx context.Context, filter domain.LedgerFilter) (domain.TicketListResponse, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return domain.TicketListResponse{}, err
	}
	if err := ValidateFilter(filter); err != nil {
		return domain.TicketListResponse{}, err
	}

	l, err := store.ReadLedger(ctx, s.repo, tenant, filter)
	if err != nil {
		return domain.TicketListResponse{}, s.computeFailed("tickets", tenant, err)
	}
	tickets := reconcile.Reconcile(l)
	return domain.TicketListResponse{Tickets: tickets, Count: len(tickets)}, nil
}

func (s *Service) Summary(ctx context.Context, filter domain.LedgerFilter) (domain.MetricsSummary, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return domain.MetricsSummary{}, err
	}
	if err := ValidateFilter(filter); err != nil {
		return domain.MetricsSummary{}, err
	}

	summary, err := s.engine.Summary(ctx, tenant, filter, s.loader(tenant, filter))
	if err != nil {
		return domain.MetricsSummary{}, s.computeFailed("summary", tenant, err)
	}
	return summary, nil
}

func (s *Service) RepPerformance(ctx context.Context, filter domain.LedgerFilter) (domain.RepPerformanceResponse, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return domain.RepPerformanceResponse{}, err
	}
	if err := ValidateFilter(filter); err != nil {
		return domain.RepPerformanceResponse{}, err
	}

	resp, err := s.engine.RepPerformance(ctx, tenant, filter, s.loader(tenant, filter))
	if err != nil {
		return domain.RepPerformanceResponse{}, s.computeFailed("rep performance", tenant, err)
	}
	return resp, nil
}

// DeleteTenantLedger removes every ledger line the tenant owns.
func (s *Service) DeleteTenantLedger(ctx context.Context) (int, error) {
	tenant, err := s.requireAdmin(ctx)
	if err != nil {
		return 0, err
	}
	deleted, err := s.repo.DeleteTenantLines(ctx, tenant)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, tenant)
	s.log.Info("tenant ledger deleted", zap.String("tenant", tenant.Key()), zap.Int("lines", deleted))
	return deleted, nil
}

// DedupeLedger removes repeated lines, keeping the oldest copy.
func (s *Service) DedupeLedger(ctx context.Context) (int, error) {
	tenant, err := s.requireAdmin(ctx)
	if err != nil {
		return 0, err
	}
	removed, err := s.repo.DeleteDuplicateLines(ctx, tenant)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.invalidate(ctx, tenant)
	}
	s.log.Info("tenant ledger deduplicated", zap.String("tenant", tenant.Key()), zap.Int("lines", removed))
	return removed, nil
}

func (s *Service) tenant(ctx context.Context) (domain.Tenant, error) {
	tenant, ok := TenantFromContext(ctx)
	if !ok {
		return domain.Tenant{}, ErrMissingTenant
	}
	return tenant, nil
}

// requireAdmin rejects authenticated non-admin actors. Contexts carrying only
// a tenant belong to operators and pass.
func (s *Service) requireAdmin(ctx context.Context) (domain.Tenant, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return domain.Tenant{}, err
	}
	if actor, ok := ActorFromContext(ctx); ok && actor.Role != "admin" {
		return domain.Tenant{}, ErrForbidden
	}
	return tenant, nil
}

func (s *Service) catalog(ctx context.Context) parser.Catalog {
	entries, err := s.repo.ListCatalog(ctx)
	if err != nil {
		s.log.Warn("catalog unavailable, resolving names without it", zap.Error(err))
		return nil
	}
	return parser.NewCatalog(entries)
}

func (s *Service) loader(tenant domain.Tenant, filter domain.LedgerFilter) analytics.LedgerLoader {
	return func(ctx context.Context) (domain.Ledger, error) {
		return store.ReadLedger(ctx, s.repo, tenant, filter)
	}
}

func (s *Service) invalidate(ctx context.Context, tenant domain.Tenant) {
	if err := s.engine.Invalidate(ctx, tenant); err != nil {
		s.log.Warn("summary cache invalidation failed", zap.String("tenant", tenant.Key()), zap.Error(err))
	}
}

func (s *Service) computeFailed(view string, tenant domain.Tenant, err error) error {
	s.log.Error("compute failed", zap.String("view", view), zap.String("tenant", tenant.Key()), zap.Error(err))
	return fmt.Errorf("%w: %w", ErrComputeFailed, err)
}

// ParseFilter reads YYYY-MM-DD bounds. to is inclusive of the whole day.
func ParseFilter(from, to, storeID, salesRep string) (domain.LedgerFilter, error) {
	filter := domain.LedgerFilter{
		StoreID:  strings.ToUpper(strings.TrimSpace(storeID)),
		SalesRep: strings.ToUpper(strings.TrimSpace(salesRep)),
	}
	if from = strings.TrimSpace(from); from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return domain.LedgerFilter{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrInvalidFilter)
		}
		filter.From = &t
	}
	if to = strings.TrimSpace(to); to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return domain.LedgerFilter{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrInvalidFilter)
		}
		end := t.AddDate(0, 0, 1)
		filter.To = &end
	}
	return filter, ValidateFilter(filter)
}

func ValidateFilter(filter domain.LedgerFilter) error {
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return fmt.Errorf("%w: from must be before to", ErrInvalidFilter)
	}
	return nil
}
