package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/store"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/xid"
)

// Store keeps the ledgers in process memory. It backs local runs and tests;
// nothing survives a restart.
type Store struct {
	mu      sync.RWMutex
	lines   map[domain.LineType][]domain.LedgerLine
	catalog map[string]domain.CatalogEntry
	now     func() time.Time
}

func New() *Store {
	return &Store{
		lines: map[domain.LineType][]domain.LedgerLine{
			domain.LineSale:     make([]domain.LedgerLine, 0, 256),
			domain.LineReturn:   make([]domain.LedgerLine, 0, 64),
			domain.LineGiftCard: make([]domain.LedgerLine, 0, 64),
		},
		catalog: make(map[string]domain.CatalogEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewSeeded returns a store with a small demo SKU catalog.
func NewSeeded() *Store {
	s := New()
	_ = s.UpsertCatalog(context.Background(), []domain.CatalogEntry{
		{ItemNumber: "CRE-500", ProductName: "Creatine Monohydrate 500g"},
		{ItemNumber: "WPI-2LB", ProductName: "Whey Protein Isolate 2lb"},
		{ItemNumber: "WPI-5LB", ProductName: "Whey Protein Isolate 5lb"},
		{ItemNumber: "PRE-WO30", ProductName: "Pre-Workout 30 Servings"},
		{ItemNumber: "BCAA-200", ProductName: "BCAA Powder 200g"},
		{ItemNumber: "MULTI-90", ProductName: "Daily Multivitamin 90ct"},
		{ItemNumber: "FISH-120", ProductName: "Fish Oil 120 Softgels"},
		{ItemNumber: "SHKR-01", ProductName: "Shaker Bottle"},
		{ItemNumber: "BAR-12", ProductName: "Protein Bar 12pk"},
		{ItemNumber: "ELEC-30", ProductName: "Electrolyte Mix 30ct"},
	})
	return s
}

func (s *Store) InsertLedgerLines(_ context.Context, lines []domain.LedgerLine) []error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := make([]error, len(lines))
	for i, line := range lines {
		if err := store.ValidateLine(line); err != nil {
			errs[i] = err
			continue
		}
		if line.ID == "" {
			line.ID = xid.New("ln")
		}
		if line.CreatedAt.IsZero() {
			line.CreatedAt = s.now()
		}
		s.lines[line.Type] = append(s.lines[line.Type], line)
	}
	return errs
}

func (s *Store) FindSaleTicketNumbers(_ context.Context, tenant domain.Tenant, ticketNumbers []string) (map[string]bool, error) {
	if !tenant.Valid() {
		return nil, store.ErrMissingTenant
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(ticketNumbers))
	for _, number := range ticketNumbers {
		wanted[number] = struct{}{}
	}
	found := make(map[string]bool)
	for _, line := range s.lines[domain.LineSale] {
		if line.Tenant != tenant {
			continue
		}
		if _, ok := wanted[line.TicketNumber]; ok {
			found[line.TicketNumber] = true
		}
	}
	return found, nil
}

func (s *Store) ListLedgerLines(_ context.Context, tenant domain.Tenant, lineType domain.LineType, filter domain.LedgerFilter) ([]domain.LedgerLine, error) {
	if !tenant.Valid() {
		return nil, store.ErrMissingTenant
	}
	if !lineType.Valid() {
		return nil, store.ErrInvalidLine
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.LedgerLine, 0, 64)
	for _, line := range s.lines[lineType] {
		if line.Tenant == tenant && filter.Match(line) {
			out = append(out, line)
		}
	}
	return out, nil
}

func (s *Store) DeleteTenantLines(_ context.Context, tenant domain.Tenant) (int, error) {
	if !tenant.Valid() {
		return 0, store.ErrMissingTenant
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for lineType, lines := range s.lines {
		kept := lines[:0]
		for _, line := range lines {
			if line.Tenant == tenant {
				deleted++
				continue
			}
			kept = append(kept, line)
		}
		s.lines[lineType] = kept
	}
	return deleted, nil
}

// DeleteDuplicateLines drops lines that an earlier import already wrote.
// Within a duplicate key group every line of the earliest import is kept, so
// a ticket listing the same SKU on two rows keeps both.
func (s *Store) DeleteDuplicateLines(_ context.Context, tenant domain.Tenant) (int, error) {
	if !tenant.Valid() {
		return 0, store.ErrMissingTenant
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for lineType, lines := range s.lines {
		ordered := slices.Clone(lines)
		slices.SortStableFunc(ordered, func(a, b domain.LedgerLine) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
		firstImport := make(map[string]string, len(ordered))
		drop := make(map[string]bool)
		for _, line := range ordered {
			if line.Tenant != tenant {
				continue
			}
			key := store.DuplicateKey(line)
			first, ok := firstImport[key]
			if !ok {
				firstImport[key] = line.ImportID
				continue
			}
			if line.ImportID != first {
				drop[line.ID] = true
			}
		}

		kept := lines[:0]
		for _, line := range lines {
			if drop[line.ID] {
				removed++
				continue
			}
			kept = append(kept, line)
		}
		s.lines[lineType] = kept
	}
	return removed, nil
}

func (s *Store) ListCatalog(_ context.Context) ([]domain.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.CatalogEntry, 0, len(s.catalog))
	for _, entry := range s.catalog {
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, func(a, b domain.CatalogEntry) int {
		return strings.Compare(a.ItemNumber, b.ItemNumber)
	})
	return entries, nil
}

func (s *Store) UpsertCatalog(_ context.Context, entries []domain.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		key := strings.ToUpper(strings.TrimSpace(entry.ItemNumber))
		name := strings.TrimSpace(entry.ProductName)
		if key == "" || name == "" {
			return store.ErrInvalidLine
		}
		s.catalog[key] = domain.CatalogEntry{ItemNumber: key, ProductName: name}
	}
	return nil
}
