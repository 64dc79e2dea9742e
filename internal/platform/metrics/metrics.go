package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los collectors del servicio sobre un registry propio
// (un registry por router evita registros duplicados en tests).
type Metrics struct {
	Registry *prometheus.Registry

	Evaluations        *prometheus.CounterVec
	Transitions        *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	CacheLookups       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "family_locator",
			Name:      "evaluations_total",
			Help:      "Geofence evaluations by outcome.",
		}, []string{"outcome"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "family_locator",
			Name:      "transitions_total",
			Help:      "Geofence transition events appended, by type.",
		}, []string{"type"}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "family_locator",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of a single evaluation.",
			Buckets:   prometheus.DefBuckets,
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "family_locator",
			Name:      "geofence_cache_lookups_total",
			Help:      "Active geofence cache lookups by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.Evaluations,
		m.Transitions,
		m.EvaluationDuration,
		m.CacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveEvaluation(outcome string, d time.Duration) {
	m.Evaluations.WithLabelValues(outcome).Inc()
	m.EvaluationDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveTransition(eventType string) {
	m.Transitions.WithLabelValues(eventType).Inc()
}
