// Package analytics computes the dashboard metrics from reconciled tickets.
package analytics

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/reconcile"
)

const (
	DefaultCoachingBenchmark = 70.0
	DefaultMinDailyTickets   = 2
	DefaultTopN              = 10
)

type Options struct {
	OutlierStoreID string
	// CoachingBenchmark is the average ticket value a rep's qualifying day
	// must reach.
	CoachingBenchmark float64
	MinDailyTickets   int
	TopN              int
	Now               func() time.Time
}

func (o Options) withDefaults() Options {
	if o.CoachingBenchmark <= 0 {
		o.CoachingBenchmark = DefaultCoachingBenchmark
	}
	if o.MinDailyTickets < 1 {
		o.MinDailyTickets = DefaultMinDailyTickets
	}
	if o.TopN < 1 {
		o.TopN = DefaultTopN
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// Compute builds the full summary. Revenue figures come from the canonical
// ticket set; rep leaderboards and coaching come from the rep-performance
// view of the same ledger.
func Compute(l domain.Ledger, opts Options) domain.MetricsSummary {
	opts = opts.withDefaults()
	tickets := reconcile.Reconcile(l)
	repTickets := reconcile.Reconcile(reconcile.FilterForRepPerformance(l, reconcile.FilterOptions{OutlierStoreID: opts.OutlierStoreID}))

	summary := domain.MetricsSummary{
		TicketCount: len(tickets),
		ItemsSold:   itemsSold(l),
		ComputedAt:  opts.Now().UTC().Format(time.RFC3339),
	}

	totalSales := decimal.Zero
	profitSum, profitCount := 0.0, 0
	returnOnly, giftOnly := 0, 0
	for _, t := range tickets {
		totalSales = totalSales.Add(t.TransactionTotal)
		if t.GrossProfitPercent != nil {
			profitSum += *t.GrossProfitPercent
			profitCount++
		}
		if t.ReturnOnly() {
			returnOnly++
		}
		if t.GiftCardOnly() {
			giftOnly++
		}
	}

	summary.TotalSales = round2(totalSales.InexactFloat64())
	if n := len(tickets); n > 0 {
		summary.AvgTicketValue = round2(totalSales.Div(decimal.NewFromInt(int64(n))).InexactFloat64())
		summary.ReturnRate = round2(float64(returnOnly) / float64(n) * 100)
		summary.GiftCardUsage = round2(float64(giftOnly) / float64(n) * 100)
	}
	if profitCount > 0 {
		summary.GrossProfitPercent = round2(profitSum / float64(profitCount))
	}

	summary.DailyRevenue = dailyRevenue(tickets)
	summary.SalesConsistency = round2(consistency(summary.DailyRevenue))
	summary.TopReps = topReps(repTickets, opts.TopN)
	summary.TopStores = topStores(tickets, opts.TopN)
	summary.TopProducts = topProducts(l, opts.TopN)
	summary.Coaching = coaching(repTickets, opts)
	return summary
}

// RepPerformance is the rep leaderboard and coaching view alone.
func RepPerformance(l domain.Ledger, opts Options) domain.RepPerformanceResponse {
	opts = opts.withDefaults()
	repTickets := reconcile.Reconcile(reconcile.FilterForRepPerformance(l, reconcile.FilterOptions{OutlierStoreID: opts.OutlierStoreID}))
	return domain.RepPerformanceResponse{
		Leaders:  topReps(repTickets, math.MaxInt),
		Coaching: coaching(repTickets, opts),
	}
}

// itemsSold nets return quantities, which are stored negative, against sales.
func itemsSold(l domain.Ledger) int {
	total := 0
	for _, line := range l.Sales {
		total += line.QtySold
	}
	for _, line := range l.Returns {
		total += line.QtySold
	}
	return total
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func dailyRevenue(tickets []domain.CanonicalTicket) []domain.DailyRevenue {
	byDay := make(map[string]decimal.Decimal)
	for _, t := range tickets {
		key := dateKey(t.SaleDate)
		byDay[key] = byDay[key].Add(t.TransactionTotal)
	}

	out := make([]domain.DailyRevenue, 0, len(byDay))
	for date, revenue := range byDay {
		out = append(out, domain.DailyRevenue{Date: date, Revenue: round2(revenue.InexactFloat64())})
	}
	slices.SortFunc(out, func(a, b domain.DailyRevenue) int {
		return strings.Compare(a.Date, b.Date)
	})
	return out
}

// consistency is 100 minus the coefficient of variation of daily revenue, in
// percent, clamped to [0, 100]. No days or a non-positive mean score 0.
func consistency(days []domain.DailyRevenue) float64 {
	if len(days) == 0 {
		return 0
	}
	mean := 0.0
	for _, d := range days {
		mean += d.Revenue
	}
	mean /= float64(len(days))
	if mean <= 0 {
		return 0
	}

	variance := 0.0
	for _, d := range days {
		diff := d.Revenue - mean
		variance += diff * diff
	}
	variance /= float64(len(days))

	cv := math.Sqrt(variance) / mean
	return clamp(100-cv*100, 0, 100)
}

func topReps(tickets []domain.CanonicalTicket, n int) []domain.RepLeader {
	type acc struct {
		total decimal.Decimal
		count int
	}
	byRep := make(map[string]*acc)
	for _, t := range tickets {
		if t.SalesRep == "" {
			continue
		}
		a, ok := byRep[t.SalesRep]
		if !ok {
			a = &acc{}
			byRep[t.SalesRep] = a
		}
		a.total = a.total.Add(t.TransactionTotal)
		a.count++
	}

	out := make([]domain.RepLeader, 0, len(byRep))
	for rep, a := range byRep {
		out = append(out, domain.RepLeader{
			SalesRep:       rep,
			TotalSales:     round2(a.total.InexactFloat64()),
			TicketCount:    a.count,
			AvgTicketValue: round2(a.total.Div(decimal.NewFromInt(int64(a.count))).InexactFloat64()),
		})
	}
	slices.SortFunc(out, func(a, b domain.RepLeader) int {
		if a.TotalSales != b.TotalSales {
			if a.TotalSales > b.TotalSales {
				return -1
			}
			return 1
		}
		return strings.Compare(a.SalesRep, b.SalesRep)
	})
	return truncate(out, n)
}

func topStores(tickets []domain.CanonicalTicket, n int) []domain.StoreLeader {
	totals := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, t := range tickets {
		totals[t.StoreID] = totals[t.StoreID].Add(t.TransactionTotal)
		counts[t.StoreID]++
	}

	out := make([]domain.StoreLeader, 0, len(totals))
	for store, total := range totals {
		out = append(out, domain.StoreLeader{StoreID: store, TotalSales: round2(total.InexactFloat64()), TicketCount: counts[store]})
	}
	slices.SortFunc(out, func(a, b domain.StoreLeader) int {
		if a.TotalSales != b.TotalSales {
			if a.TotalSales > b.TotalSales {
				return -1
			}
			return 1
		}
		return strings.Compare(a.StoreID, b.StoreID)
	})
	return truncate(out, n)
}

func topProducts(l domain.Ledger, n int) []domain.ProductLeader {
	byItem := make(map[string]*domain.ProductLeader)
	add := func(line domain.LedgerLine) {
		p, ok := byItem[line.ItemNumber]
		if !ok {
			p = &domain.ProductLeader{ItemNumber: line.ItemNumber, ProductName: line.ProductName}
			byItem[line.ItemNumber] = p
		}
		p.QtySold += line.QtySold
	}
	for _, line := range l.Sales {
		add(line)
	}
	for _, line := range l.Returns {
		add(line)
	}

	out := make([]domain.ProductLeader, 0, len(byItem))
	for _, p := range byItem {
		if p.QtySold > 0 {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b domain.ProductLeader) int {
		if a.QtySold != b.QtySold {
			return b.QtySold - a.QtySold
		}
		return strings.Compare(a.ItemNumber, b.ItemNumber)
	})
	return truncate(out, n)
}

// coaching scores each rep day by day. A day with at least MinDailyTickets
// tickets qualifies; a qualifying day whose average ticket is under the
// benchmark is underperforming. More than half underperforming days flags
// the rep.
func coaching(tickets []domain.CanonicalTicket, opts Options) []domain.RepCoaching {
	type day struct {
		total decimal.Decimal
		count int
	}
	byRep := make(map[string]map[string]*day)
	for _, t := range tickets {
		if t.SalesRep == "" {
			continue
		}
		days, ok := byRep[t.SalesRep]
		if !ok {
			days = make(map[string]*day)
			byRep[t.SalesRep] = days
		}
		key := dateKey(t.SaleDate)
		d, ok := days[key]
		if !ok {
			d = &day{}
			days[key] = d
		}
		d.total = d.total.Add(t.TransactionTotal)
		d.count++
	}

	benchmark := decimal.NewFromFloat(opts.CoachingBenchmark)
	out := make([]domain.RepCoaching, 0, len(byRep))
	for rep, days := range byRep {
		rc := domain.RepCoaching{SalesRep: rep}
		for _, d := range days {
			if d.count < opts.MinDailyTickets {
				continue
			}
			rc.QualifyingDays++
			if d.total.Div(decimal.NewFromInt(int64(d.count))).LessThan(benchmark) {
				rc.UnderperformingDays++
			}
		}
		rc.NeedsCoaching = rc.QualifyingDays > 0 && rc.UnderperformingDays*2 > rc.QualifyingDays
		out = append(out, rc)
	}
	slices.SortFunc(out, func(a, b domain.RepCoaching) int {
		return strings.Compare(a.SalesRep, b.SalesRep)
	})
	return out
}

func truncate[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func clamp(val float64, minVal float64, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
