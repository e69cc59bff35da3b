package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the search counters exported on /metrics. A nil *Metrics
// records nothing.
type Metrics struct {
	providerRequests *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	queries          prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		providerRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gearsearch_provider_requests_total",
			Help: "Provider calls by outcome (ok, empty, error).",
		}, []string{"provider", "outcome"}),
		providerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gearsearch_provider_duration_seconds",
			Help:    "Provider call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gearsearch_cache_lookups_total",
			Help: "Result cache lookups by result (hit, miss).",
		}, []string{"result"}),
		queries: factory.NewCounter(prometheus.CounterOpts{
			Name: "gearsearch_queries_total",
			Help: "Distinct queries searched.",
		}),
	}
}

func (m *Metrics) observeProvider(provider string, took time.Duration, n int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case n == 0:
		outcome = "empty"
	}
	m.providerRequests.WithLabelValues(provider, outcome).Inc()
	m.providerDuration.WithLabelValues(provider).Observe(took.Seconds())
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) observeQuery() {
	if m == nil {
		return
	}
	m.queries.Inc()
}
