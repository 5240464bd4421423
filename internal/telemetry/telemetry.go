// Package telemetry exposes import counters for Prometheus scraping.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
)

const (
	MetricTicketsParsed     = "supptraq_tickets_parsed_total"
	MetricParseErrors       = "supptraq_parse_errors_total"
	MetricLedgerLines       = "supptraq_ledger_lines_total"
	MetricDuplicatesSkipped = "supptraq_duplicate_tickets_skipped_total"
)

const (
	OutcomeInserted = "inserted"
	OutcomeFailed   = "failed"
)

// Metrics holds the import counters on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ticketsParsed     prometheus.Counter
	parseErrors       prometheus.Counter
	ledgerLines       *prometheus.CounterVec
	duplicatesSkipped prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		ticketsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricTicketsParsed,
			Help: "Tickets recovered from imported spreadsheets.",
		}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricParseErrors,
			Help: "Tickets that could not be parsed.",
		}),
		ledgerLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricLedgerLines,
			Help: "Ledger lines written, by ledger and outcome.",
		}, []string{"ledger", "outcome"}),
		duplicatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricDuplicatesSkipped,
			Help: "Tickets skipped because the sale ledger already holds them.",
		}),
	}
	registry.MustRegister(
		m.ticketsParsed,
		m.parseErrors,
		m.ledgerLines,
		m.duplicatesSkipped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveParse(tickets, errors int) {
	if m == nil {
		return
	}
	m.ticketsParsed.Add(float64(tickets))
	m.parseErrors.Add(float64(errors))
}

func (m *Metrics) ObserveWrite(result domain.WriteResult) {
	if m == nil {
		return
	}
	for _, lt := range []domain.LineType{domain.LineSale, domain.LineReturn, domain.LineGiftCard} {
		m.ledgerLines.WithLabelValues(string(lt), OutcomeInserted).Add(float64(count(result.Inserted, lt)))
		m.ledgerLines.WithLabelValues(string(lt), OutcomeFailed).Add(float64(count(result.Failed, lt)))
	}
	m.duplicatesSkipped.Add(float64(result.Skipped))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func count(c domain.LedgerCounts, lt domain.LineType) int {
	switch lt {
	case domain.LineSale:
		return c.Sale
	case domain.LineReturn:
		return c.Return
	default:
		return c.GiftCard
	}
}
