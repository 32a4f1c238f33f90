package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns the value of the first sample of name whose labels
// include every pair in labels.
func gathered(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
	next:
		for _, m := range fam.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	assert.NoError(t, m.Track("catalog:low_stock_scan").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("catalog:low_stock_scan").End(boom), boom)

	assert.Equal(t, 1.0, gathered(t, reg, "partsdesk_jobs_total", map[string]string{"job": "catalog:low_stock_scan", "status": "success"}))
	assert.Equal(t, 1.0, gathered(t, reg, "partsdesk_jobs_failures_total", map[string]string{"job": "catalog:low_stock_scan"}))

	m.SetLowStock(12)
	assert.Equal(t, 12.0, gathered(t, reg, "partsdesk_low_stock_products", nil))
}

func TestNilMetricsTracker(t *testing.T) {
	var m *Metrics
	assert.NoError(t, m.Track("x").End(nil))
	m.SetLowStock(3)
}
