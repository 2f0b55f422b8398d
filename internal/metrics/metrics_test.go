package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New("test")
	l := Labels{Exporter: "mongodb", Kind: "VsInfo"}

	m.IncExported(l)
	m.IncExported(l)
	m.IncSkipped(l)
	m.AddAlreadyExported(l, 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GamesExported.WithLabelValues("mongodb", "VsInfo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GamesSkipped.WithLabelValues("mongodb", "VsInfo")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.GamesPresent.WithLabelValues("mongodb", "VsInfo")))
}

func TestNewTwiceDoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() {
		New("twice")
		New("twice")
	})
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.IncExported(Labels{})
		m.IncFailed(Labels{})
		m.ObserveExportDuration(Labels{}, 1)
		m.AddInFlight(1)
	})
}

func TestHandler(t *testing.T) {
	m := New("handler")
	m.IncSummaries("archive")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "handler_summaries_exported_total")
}
