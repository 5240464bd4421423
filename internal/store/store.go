package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
)

var (
	ErrInvalidLine   = errors.New("invalid ledger line")
	ErrMissingTenant = errors.New("missing tenant")
)

// Repository persists the sale, return and gift-card ledgers plus the
// read-only master SKU table. Every ledger call is scoped to one tenant.
type Repository interface {
	// InsertLedgerLines inserts each line independently. The returned slice
	// has one entry per input line, nil on success; a failed line never
	// rolls back its siblings.
	InsertLedgerLines(ctx context.Context, lines []domain.LedgerLine) []error
	FindSaleTicketNumbers(ctx context.Context, tenant domain.Tenant, ticketNumbers []string) (map[string]bool, error)
	ListLedgerLines(ctx context.Context, tenant domain.Tenant, lineType domain.LineType, filter domain.LedgerFilter) ([]domain.LedgerLine, error)
	DeleteTenantLines(ctx context.Context, tenant domain.Tenant) (int, error)
	DeleteDuplicateLines(ctx context.Context, tenant domain.Tenant) (int, error)
	ListCatalog(ctx context.Context) ([]domain.CatalogEntry, error)
	UpsertCatalog(ctx context.Context, entries []domain.CatalogEntry) error
}

// ReadLedger loads all three ledgers for tenant under the same filter.
func ReadLedger(ctx context.Context, repo Repository, tenant domain.Tenant, filter domain.LedgerFilter) (domain.Ledger, error) {
	var ledger domain.Ledger
	targets := []struct {
		lineType domain.LineType
		dst      *[]domain.LedgerLine
	}{
		{domain.LineSale, &ledger.Sales},
		{domain.LineReturn, &ledger.Returns},
		{domain.LineGiftCard, &ledger.GiftCards},
	}
	for _, target := range targets {
		lines, err := repo.ListLedgerLines(ctx, tenant, target.lineType, filter)
		if err != nil {
			return domain.Ledger{}, fmt.Errorf("list %s lines: %w", target.lineType, err)
		}
		*target.dst = lines
	}
	return ledger, nil
}

// ValidateLine checks the shape every ledger enforces before insert.
func ValidateLine(line domain.LedgerLine) error {
	if !line.Tenant.Valid() {
		return ErrMissingTenant
	}
	if !line.Type.Valid() || line.TicketNumber == "" || line.ProductName == "" {
		return ErrInvalidLine
	}
	switch line.Type {
	case domain.LineSale:
		if line.QtySold <= 0 || line.ItemNumber == "" {
			return ErrInvalidLine
		}
	case domain.LineReturn:
		if line.QtySold >= 0 || line.ItemNumber == "" {
			return ErrInvalidLine
		}
	case domain.LineGiftCard:
		if !line.GiftCardAmount.IsPositive() {
			return ErrInvalidLine
		}
	}
	return nil
}

// DuplicateKey groups lines of the same ledger that carry identical content.
// Lines sharing a key are duplicates only when they come from different
// imports.
func DuplicateKey(line domain.LedgerLine) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s|%s",
		line.Type, line.TicketNumber, line.ItemNumber, line.QtySold, line.GiftCardAmount.String(), line.ProductName)
}
