package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
)

func TestLedgerRoundTripAndDedupe(t *testing.T) {
	databaseURL := os.Getenv("SUPPTRAQ_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set SUPPTRAQ_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	stamp := time.Now().UnixNano()
	it := domain.Tenant{OrgID: fmt.Sprintf("org-it-%d", stamp), FranchiseID: "fr-it"}
	t.Cleanup(func() {
		_, _ = s.DeleteTenantLines(ctx, it)
	})

	sale := saleLine("AB-SA-T900001")
	sale.Tenant = it
	sale.ImportID = "imp_first"
	sale.CreatedAt = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	// same SKU printed twice on one ticket
	twin := sale
	dup := sale
	dup.ImportID = "imp_second"
	dup.CreatedAt = sale.CreatedAt.Add(time.Hour)
	ret := sale
	ret.Type = domain.LineReturn
	ret.QtySold = -1

	for i, err := range s.InsertLedgerLines(ctx, []domain.LedgerLine{sale, twin, dup, ret}) {
		if err != nil {
			t.Fatalf("insert line %d: %v", i, err)
		}
	}

	found, err := s.FindSaleTicketNumbers(ctx, it, []string{"AB-SA-T900001", "AB-SA-T900002"})
	if err != nil {
		t.Fatalf("find sale tickets: %v", err)
	}
	if !found["AB-SA-T900001"] || found["AB-SA-T900002"] {
		t.Fatalf("unexpected sale ticket lookup: %v", found)
	}

	removed, err := s.DeleteDuplicateLines(ctx, it)
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 duplicate removed, got %d", removed)
	}

	lines, err := s.ListLedgerLines(ctx, it, domain.LineSale, domain.LedgerFilter{})
	if err != nil {
		t.Fatalf("list sale lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected both lines of the first import after dedupe, got %d", len(lines))
	}
	for _, l := range lines {
		if l.ImportID != "imp_first" {
			t.Fatalf("expected only imp_first lines to remain, got %s", l.ImportID)
		}
	}
	if got := lines[0].TransactionTotal.Decimal.StringFixed(2); got != "150.00" {
		t.Fatalf("expected total 150.00, got %s", got)
	}

	deleted, err := s.DeleteTenantLines(ctx, it)
	if err != nil {
		t.Fatalf("delete tenant: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 lines deleted, got %d", deleted)
	}
}
