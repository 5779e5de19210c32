// Package metrics exposes Prometheus counters for case activity. Each
// Recorder owns its registry so tests and multiple servers do not collide on
// the global default registerer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "casefile"

// Recorder holds every casefile metric.
type Recorder struct {
	registry *prometheus.Registry

	SessionsStarted    prometheus.Counter
	ActionsApplied     prometheus.Counter
	ConstraintsApplied *prometheus.CounterVec
	Inconsistencies    prometheus.Counter
	Accusations        *prometheus.CounterVec
	DetectiveMoves     *prometheus.CounterVec
}

// New builds a Recorder on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Cases opened.",
		}),
		ActionsApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_applied_total",
			Help:      "Investigation actions taken across all cases.",
		}),
		ConstraintsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "constraints_applied_total",
			Help:      "Constraints derived from clues, by kind.",
		}, []string{"kind"}),
		Inconsistencies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inconsistencies_total",
			Help:      "Propagation runs that left a category with no candidates.",
		}),
		Accusations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accusations_total",
			Help:      "Accusations made, by result.",
		}, []string{"result"}),
		DetectiveMoves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detective_moves_total",
			Help:      "Actions taken by the automated detective, by mode.",
		}, []string{"mode"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for collectors added elsewhere.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// SessionStarted records a new case.
func (r *Recorder) SessionStarted() {
	if r == nil {
		return
	}
	r.SessionsStarted.Inc()
}

// ActionApplied records one taken action and the constraints it produced.
func (r *Recorder) ActionApplied(constraintKinds []string, consistent bool) {
	if r == nil {
		return
	}
	r.ActionsApplied.Inc()
	for _, kind := range constraintKinds {
		r.ConstraintsApplied.WithLabelValues(kind).Inc()
	}
	if !consistent {
		r.Inconsistencies.Inc()
	}
}

// Accused records an accusation outcome.
func (r *Recorder) Accused(correct bool) {
	if r == nil {
		return
	}
	result := "wrong"
	if correct {
		result = "correct"
	}
	r.Accusations.WithLabelValues(result).Inc()
}

// DetectiveMoved records an action chosen by the detective.
func (r *Recorder) DetectiveMoved(mode string) {
	if r == nil {
		return
	}
	r.DetectiveMoves.WithLabelValues(mode).Inc()
}
