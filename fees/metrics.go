package fees

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records fee lookups.
type Metrics struct {
	lookups *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewMetrics registers the fee collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aos",
			Name:      "fee_lookups_total",
			Help:      "Fee service lookups by fee code and outcome.",
		}, []string{"code", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aos",
			Name:      "fee_lookup_duration_seconds",
			Help:      "Fee service lookup latency including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code"}),
	}
	reg.MustRegister(m.lookups, m.latency)
	return m
}

// Instrument wraps next so every lookup is counted and timed.
func (m *Metrics) Instrument(next Lookup) Lookup {
	return LookupFunc(func(ctx context.Context, code string) (Fee, error) {
		start := time.Now()
		fee, err := next.Get(ctx, code)
		m.latency.WithLabelValues(code).Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		m.lookups.WithLabelValues(code, outcome).Inc()
		return fee, err
	})
}
