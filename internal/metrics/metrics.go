// Package metrics defines the Prometheus collectors of the enrichment jobs
// and exposes an HTTP handler for scraping. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	ArticlesTotal        *prometheus.CounterVec
	ClassificationsTotal *prometheus.CounterVec
	ResolutionsTotal     *prometheus.CounterVec
	SinkFailuresTotal    *prometheus.CounterVec
	CacheLookupsTotal    *prometheus.CounterVec
	BreakerState         *prometheus.GaugeVec
	SimilarityDuration   prometheus.Histogram
	SimilarityConcepts   prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them on reg; a nil reg uses a fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		ArticlesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrichment_articles_total",
				Help: "Articles handled by outcome (processed, skipped, already_done).",
			},
			[]string{"outcome"},
		),
		ClassificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrichment_classifications_total",
				Help: "Phrase classifications by verdict (relevant, irrelevant, error).",
			},
			[]string{"verdict"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrichment_resolutions_total",
				Help: "Knowledge base lookups by outcome (resolved, not_found, error).",
			},
			[]string{"outcome"},
		),
		SinkFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrichment_sink_failures_total",
				Help: "Concept sink publish failures by sink.",
			},
			[]string{"sink"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrichment_cache_lookups_total",
				Help: "Response cache lookups by namespace and result (hit, miss).",
			},
			[]string{"namespace", "result"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		SimilarityDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "similarity_run_seconds",
				Help:    "Wall time of similarity extreme computations.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
		),
		SimilarityConcepts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "similarity_concepts",
				Help: "Number of concepts compared in the last similarity run.",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.ArticlesTotal,
		m.ClassificationsTotal,
		m.ResolutionsTotal,
		m.SinkFailuresTotal,
		m.CacheLookupsTotal,
		m.BreakerState,
		m.SimilarityDuration,
		m.SimilarityConcepts,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for these collectors.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveArticle(outcome string) {
	if m == nil {
		return
	}
	m.ArticlesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveClassification(verdict string) {
	if m == nil {
		return
	}
	m.ClassificationsTotal.WithLabelValues(verdict).Inc()
}

func (m *Metrics) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSinkFailure(sink string) {
	if m == nil {
		return
	}
	m.SinkFailuresTotal.WithLabelValues(sink).Inc()
}

func (m *Metrics) ObserveCache(namespace string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(namespace, result).Inc()
}

// SetBreakerState records 0=closed, 1=open, 2=half-open.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) ObserveSimilarity(concepts int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SimilarityConcepts.Set(float64(concepts))
	m.SimilarityDuration.Observe(elapsed.Seconds())
}
