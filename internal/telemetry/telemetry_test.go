package telemetry

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
)

func TestObserveWriteCountsPerLedger(t *testing.T) {
	m := New()
	m.ObserveParse(3, 1)
	m.ObserveWrite(domain.WriteResult{
		Inserted: domain.LedgerCounts{Sale: 4, Return: 1, GiftCard: 2},
		Failed:   domain.LedgerCounts{Sale: 1},
		Skipped:  2,
	})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ticketsParsed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.parseErrors))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ledgerLines.WithLabelValues("sale", OutcomeInserted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerLines.WithLabelValues("sale", OutcomeFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ledgerLines.WithLabelValues("gift_card", OutcomeInserted)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.duplicatesSkipped))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveParse(1, 1)
	m.ObserveWrite(domain.WriteResult{})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestHandlerServesCounters(t *testing.T) {
	m := New()
	m.ObserveParse(5, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), MetricTicketsParsed+" 5")
}
