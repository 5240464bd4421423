// Package ledger turns parsed tickets into sale, return and gift-card ledger
// lines and persists them with per-line failure isolation.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/logger"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/store"
)

const (
	DefaultBatchSize   = 100
	DefaultConcurrency = 4
	DefaultSampleSize  = 50
	MaxReportedErrors  = 10

	GiftCardPurchaseName = "Gift Card Purchase"
)

var errNoResult = errors.New("store returned no result for line")

// LineStore is the slice of the repository the writer needs.
type LineStore interface {
	InsertLedgerLines(ctx context.Context, lines []domain.LedgerLine) []error
	FindSaleTicketNumbers(ctx context.Context, tenant domain.Tenant, ticketNumbers []string) (map[string]bool, error)
}

type Options struct {
	BatchSize   int
	Concurrency int
	// DuplicateGuard skips tickets whose number is already in the sale
	// ledger. Only the first SampleSize ticket numbers are checked.
	DuplicateGuard bool
	SampleSize     int
}

type LineError struct {
	Type         domain.LineType
	TicketNumber string
	ItemNumber   string
	Err          error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s line ticket=%s item=%s: %v", e.Type, e.TicketNumber, e.ItemNumber, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

type Writer struct {
	store LineStore
	opts  Options
	log   *zap.Logger
}

func NewWriter(s LineStore, opts Options, log *zap.Logger) *Writer {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.SampleSize < 1 {
		opts.SampleSize = DefaultSampleSize
	}
	return &Writer{store: s, opts: opts, log: logger.OrNop(log)}
}

// WithDuplicateGuard returns a copy of w with the guard switched on or off.
func (w *Writer) WithDuplicateGuard(on bool) *Writer {
	cp := *w
	cp.opts.DuplicateGuard = on
	return &cp
}

// Write persists tickets for tenant. Line failures are counted and sampled in
// the result; the returned error is reserved for calls that cannot start.
func (w *Writer) Write(ctx context.Context, tenant domain.Tenant, importID string, tickets []domain.ParsedTicket) (domain.WriteResult, error) {
	result := domain.WriteResult{Errors: []string{}}
	if !tenant.Valid() {
		return result, store.ErrMissingTenant
	}

	skip := map[string]bool{}
	if w.opts.DuplicateGuard {
		skip = w.existingTickets(ctx, tenant, tickets)
	}

	lines := make([]domain.LedgerLine, 0, len(tickets)*2)
	for _, ticket := range tickets {
		if skip[ticket.TicketNumber] {
			result.Skipped++
			continue
		}
		lines = append(lines, Classify(ticket, tenant, importID)...)
	}

	errs := w.insert(ctx, lines)
	for i, line := range lines {
		err := errs[i]
		if err == nil {
			result.Inserted.Add(line.Type, 1)
			continue
		}
		result.Failed.Add(line.Type, 1)
		lineErr := &LineError{Type: line.Type, TicketNumber: line.TicketNumber, ItemNumber: line.ItemNumber, Err: err}
		w.log.Warn("ledger line insert failed",
			zap.String("import_id", importID),
			zap.String("ledger", string(line.Type)),
			zap.String("ticket_number", line.TicketNumber),
			zap.String("item_number", line.ItemNumber),
			zap.Error(err),
		)
		if len(result.Errors) < MaxReportedErrors {
			result.Errors = append(result.Errors, lineErr.Error())
		}
	}
	return result, nil
}

// existingTickets is best effort: a lookup failure disables the guard for
// this batch instead of failing the import.
func (w *Writer) existingTickets(ctx context.Context, tenant domain.Tenant, tickets []domain.ParsedTicket) map[string]bool {
	sample := make([]string, 0, w.opts.SampleSize)
	seen := make(map[string]bool, w.opts.SampleSize)
	for _, ticket := range tickets {
		if len(sample) == w.opts.SampleSize {
			break
		}
		if ticket.TicketNumber == "" || seen[ticket.TicketNumber] {
			continue
		}
		seen[ticket.TicketNumber] = true
		sample = append(sample, ticket.TicketNumber)
	}
	if len(sample) == 0 {
		return map[string]bool{}
	}

	found, err := w.store.FindSaleTicketNumbers(ctx, tenant, sample)
	if err != nil {
		w.log.Warn("duplicate guard lookup failed", zap.Int("sample", len(sample)), zap.Error(err))
		return map[string]bool{}
	}
	return found
}

// insert fans batches out over a bounded pool. The result has one entry per
// line in input order.
func (w *Writer) insert(ctx context.Context, lines []domain.LedgerLine) []error {
	errs := make([]error, len(lines))

	var g errgroup.Group
	g.SetLimit(w.opts.Concurrency)
	for start := 0; start < len(lines); start += w.opts.BatchSize {
		end := min(start+w.opts.BatchSize, len(lines))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				for i := start; i < end; i++ {
					errs[i] = err
				}
				return nil
			}
			batchErrs := w.store.InsertLedgerLines(ctx, lines[start:end])
			for i := start; i < end; i++ {
				if j := i - start; j < len(batchErrs) {
					errs[i] = batchErrs[j]
				} else {
					errs[i] = errNoResult
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Classify maps one ticket to its ledger lines. Items with a positive
// quantity go to the sale ledger, negative to the return ledger, and zero is
// dropped. A ticket with no items but a positive total is a standalone gift
// card purchase and yields a single gift-card line for the total; otherwise
// each gift-card entry yields one line.
func Classify(ticket domain.ParsedTicket, tenant domain.Tenant, importID string) []domain.LedgerLine {
	base := domain.LedgerLine{
		Tenant:             tenant,
		ImportID:           importID,
		TicketNumber:       ticket.TicketNumber,
		StoreID:            ticket.StoreID,
		SaleDate:           ticket.SaleDate,
		SalesRep:           ticket.SalesRep,
		TransactionTotal:   ticket.TransactionTotal,
		GrossProfitPercent: ticket.GrossProfitPercent,
	}

	if len(ticket.Items) == 0 && ticket.TransactionTotal.Valid && ticket.TransactionTotal.Decimal.IsPositive() {
		line := base
		line.Type = domain.LineGiftCard
		line.ProductName = GiftCardPurchaseName
		line.GiftCardAmount = ticket.TransactionTotal.Decimal
		return []domain.LedgerLine{line}
	}

	lines := make([]domain.LedgerLine, 0, len(ticket.Items)+len(ticket.GiftCards))
	for _, item := range ticket.Items {
		line := base
		switch {
		case item.QtySold > 0:
			line.Type = domain.LineSale
		case item.QtySold < 0:
			line.Type = domain.LineReturn
		default:
			continue
		}
		line.ItemNumber = item.ItemNumber
		line.ProductName = item.ProductName
		line.QtySold = item.QtySold
		line.SellingUnit = item.SellingUnit
		lines = append(lines, line)
	}
	for _, card := range ticket.GiftCards {
		if !card.Amount.IsPositive() {
			continue
		}
		line := base
		line.Type = domain.LineGiftCard
		line.ProductName = card.ProductName
		line.GiftCardAmount = card.Amount
		lines = append(lines, line)
	}
	return lines
}
