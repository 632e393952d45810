package bulksave

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess      = "success"
	OutcomeFailed       = "failed"
	OutcomeUnresolvable = "unresolvable"
	OutcomeParseError   = "parse_error"
	OutcomeError        = "error"
)

// Metrics records bulk save activity. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	items    *prometheus.CounterVec
	passes   prometheus.Histogram
	duration prometheus.Histogram
}

// NewMetrics registers the bulk save collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coalesce",
			Subsystem: "bulk_save",
			Name:      "requests_total",
			Help:      "Bulk save requests by outcome.",
		}, []string{"outcome"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coalesce",
			Subsystem: "bulk_save",
			Name:      "items_total",
			Help:      "Items written by committed bulk saves.",
		}, []string{"op"}),
		passes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coalesce",
			Subsystem: "bulk_save",
			Name:      "passes",
			Help:      "Resolver passes needed per bulk save.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coalesce",
			Subsystem: "bulk_save",
			Name:      "duration_seconds",
			Help:      "Bulk save execution time.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.requests, m.items, m.passes, m.duration)
	return m
}

func (m *Metrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeRun(outcome string, passes int, started time.Time) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(started).Seconds())
	if passes > 0 {
		m.passes.Observe(float64(passes))
	}
}

func (m *Metrics) observeCommitted(saved, deleted int) {
	if m == nil {
		return
	}
	m.items.WithLabelValues("save").Add(float64(saved))
	m.items.WithLabelValues("delete").Add(float64(deleted))
}
