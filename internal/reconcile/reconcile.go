// Package reconcile merges the sale, return and gift-card ledgers into one
// canonical record per ticket number.
//
// Passes run in a fixed order and a pass never overwrites a field an earlier
// pass set: sale lines dominate return lines, which dominate gift-card-only
// tickets. Every view that needs a per-ticket total goes through Reconcile.
package reconcile

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
)

const (
	OnlineRep             = "ONLINE"
	DefaultOutlierStoreID = "AB-WH"
)

type entry struct {
	ticket   domain.CanonicalTicket
	totalSet bool
	profSet  bool
}

type builder struct {
	byNumber map[string]*entry
	order    []string
}

func newBuilder(size int) *builder {
	return &builder{byNumber: make(map[string]*entry, size), order: make([]string, 0, size)}
}

func (b *builder) touch(line domain.LedgerLine) *entry {
	e, ok := b.byNumber[line.TicketNumber]
	if !ok {
		e = &entry{ticket: domain.CanonicalTicket{
			TicketNumber: line.TicketNumber,
			StoreID:      line.StoreID,
			SaleDate:     line.SaleDate,
			SalesRep:     line.SalesRep,
		}}
		b.byNumber[line.TicketNumber] = e
		b.order = append(b.order, line.TicketNumber)
	}
	if e.ticket.StoreID == "" {
		e.ticket.StoreID = line.StoreID
	}
	if e.ticket.SalesRep == "" {
		e.ticket.SalesRep = line.SalesRep
	}
	if e.ticket.SaleDate.IsZero() {
		e.ticket.SaleDate = line.SaleDate
	}
	if !e.profSet && line.GrossProfitPercent != nil {
		v := *line.GrossProfitPercent
		e.ticket.GrossProfitPercent = &v
		e.profSet = true
	}
	return e
}

func (e *entry) setTotal(total decimal.NullDecimal) {
	if e.totalSet || !total.Valid {
		return
	}
	e.ticket.TransactionTotal = total.Decimal
	e.totalSet = true
}

// Reconcile returns one canonical ticket per distinct ticket number, ordered
// by sale date then ticket number. Tickets whose total was never set carry 0.
func Reconcile(l domain.Ledger) []domain.CanonicalTicket {
	b := newBuilder(len(l.Sales) + len(l.Returns) + len(l.GiftCards))

	for _, line := range l.Sales {
		e := b.touch(line)
		e.ticket.IsSale = true
		e.setTotal(line.TransactionTotal)
	}

	for _, line := range l.Returns {
		e := b.touch(line)
		e.ticket.IsReturn = true
		if !e.ticket.IsSale {
			e.setTotal(line.TransactionTotal)
		}
	}

	giftSums := make(map[string]decimal.Decimal)
	for _, line := range l.GiftCards {
		e := b.touch(line)
		e.ticket.IsGiftCard = true
		giftSums[line.TicketNumber] = giftSums[line.TicketNumber].Add(line.GiftCardAmount)
	}

	for number, sum := range giftSums {
		e := b.byNumber[number]
		if !e.ticket.IsSale && !e.ticket.IsReturn {
			e.setTotal(decimal.NewNullDecimal(sum))
		}
	}

	tickets := make([]domain.CanonicalTicket, 0, len(b.order))
	for _, number := range b.order {
		tickets = append(tickets, b.byNumber[number].ticket)
	}
	slices.SortStableFunc(tickets, func(a, c domain.CanonicalTicket) int {
		if n := a.SaleDate.Compare(c.SaleDate); n != 0 {
			return n
		}
		return strings.Compare(a.TicketNumber, c.TicketNumber)
	})
	return tickets
}

type FilterOptions struct {
	// OutlierStoreID is excluded from rep scoring. Empty means
	// DefaultOutlierStoreID.
	OutlierStoreID string
}

// FilterForRepPerformance returns the stricter ledger used to score sales
// reps. It drops online orders, the outlier store, and every ticket that ever
// appears in the return ledger, and keeps only sale lines with a positive
// ticket total and gift-card lines with a positive amount. The result has no
// return lines.
func FilterForRepPerformance(l domain.Ledger, opts FilterOptions) domain.Ledger {
	outlier := opts.OutlierStoreID
	if outlier == "" {
		outlier = DefaultOutlierStoreID
	}

	returned := make(map[string]bool, len(l.Returns))
	for _, line := range l.Returns {
		returned[line.TicketNumber] = true
	}

	excluded := func(line domain.LedgerLine) bool {
		return strings.EqualFold(line.SalesRep, OnlineRep) ||
			strings.EqualFold(line.StoreID, OnlineRep) ||
			strings.EqualFold(line.StoreID, outlier) ||
			returned[line.TicketNumber]
	}

	out := domain.Ledger{
		Sales:     make([]domain.LedgerLine, 0, len(l.Sales)),
		Returns:   []domain.LedgerLine{},
		GiftCards: make([]domain.LedgerLine, 0, len(l.GiftCards)),
	}
	for _, line := range l.Sales {
		if excluded(line) || !line.TransactionTotal.Valid || !line.TransactionTotal.Decimal.IsPositive() {
			continue
		}
		out.Sales = append(out.Sales, line)
	}
	for _, line := range l.GiftCards {
		if excluded(line) || !line.GiftCardAmount.IsPositive() {
			continue
		}
		out.GiftCards = append(out.GiftCards, line)
	}
	return out
}
