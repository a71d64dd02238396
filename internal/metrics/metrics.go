// Package metrics exposes engine decisions as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leoprotocol/leoscore/internal/model"
)

// Metrics holds the engine collectors on a private registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	assessmentsTotal *prometheus.CounterVec
	matchesTotal     *prometheus.CounterVec
	suggestionsTotal prometheus.Counter
	bypassTotal      *prometheus.CounterVec
	degradedTotal    prometheus.Counter
	reloadsTotal     *prometheus.CounterVec
	catalogPatterns  prometheus.Gauge
	evalSeconds      *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.assessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leoscore_assessments_total",
			Help: "Risk assessments computed, by risk level",
		},
		[]string{"level"},
	)
	m.matchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leoscore_pattern_matches_total",
			Help: "Pattern matches across assessments, by pattern and severity",
		},
		[]string{"pattern_id", "severity"},
	)
	m.suggestionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "leoscore_suggestions_total",
		Help: "Pattern suggestions returned for post-mortems",
	})
	m.bypassTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leoscore_bypass_evaluations_total",
			Help: "Bypass evaluations, by pathway and whether a blocker fired",
		},
		[]string{"pathway", "blocked"},
	)
	m.degradedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "leoscore_bypass_degraded_total",
		Help: "Bypass evaluations computed without historical stats",
	})
	m.reloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leoscore_reloads_total",
			Help: "Configuration reloads, by result",
		},
		[]string{"result"},
	)
	m.catalogPatterns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "leoscore_catalog_active_patterns",
		Help: "Active patterns in the current catalog snapshot",
	})
	m.evalSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leoscore_evaluation_duration_seconds",
			Help:    "Evaluation latency by operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	m.registry.MustRegister(
		m.assessmentsTotal,
		m.matchesTotal,
		m.suggestionsTotal,
		m.bypassTotal,
		m.degradedTotal,
		m.reloadsTotal,
		m.catalogPatterns,
		m.evalSeconds,
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveAssessment records one assessment.
func (m *Metrics) ObserveAssessment(a model.Assessment, took time.Duration) {
	if m == nil {
		return
	}
	m.assessmentsTotal.WithLabelValues(string(a.RiskLevel)).Inc()
	for _, match := range a.Matches {
		m.matchesTotal.WithLabelValues(match.PatternID, string(match.Severity)).Inc()
	}
	m.evalSeconds.WithLabelValues("score").Observe(took.Seconds())
}

// ObserveSuggest records one post-mortem mapping.
func (m *Metrics) ObserveSuggest(suggestions int, took time.Duration) {
	if m == nil {
		return
	}
	m.suggestionsTotal.Add(float64(suggestions))
	m.evalSeconds.WithLabelValues("suggest").Observe(took.Seconds())
}

// ObserveBypass records one bypass evaluation.
func (m *Metrics) ObserveBypass(r model.BypassResult, took time.Duration) {
	if m == nil {
		return
	}
	blocked := "false"
	if r.Blocked {
		blocked = "true"
	}
	m.bypassTotal.WithLabelValues(string(r.Pathway), blocked).Inc()
	if r.Degraded {
		m.degradedTotal.Inc()
	}
	m.evalSeconds.WithLabelValues("bypass").Observe(took.Seconds())
}

// ObserveReload records a reload attempt and, on success, the catalog size.
func (m *Metrics) ObserveReload(patterns int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reloadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.reloadsTotal.WithLabelValues("ok").Inc()
	m.catalogPatterns.Set(float64(patterns))
}
