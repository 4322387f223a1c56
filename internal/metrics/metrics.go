package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeNoop     = "noop"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
	mirrors     *prometheus.CounterVec
	lineEdits   prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderlife",
			Name:      "transitions_total",
			Help:      "Order status transitions by target status and outcome.",
		}, []string{"to", "outcome"}),
		mirrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderlife",
			Name:      "mirror_writes_total",
			Help:      "Counterparty mirror writes by outcome.",
		}, []string{"outcome"}),
		lineEdits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orderlife",
			Name:      "line_edits_total",
			Help:      "Committed line-item edits.",
		}),
	}
	reg.MustRegister(m.transitions, m.mirrors, m.lineEdits)
	return m
}

func (m *Metrics) Transition(to, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to, outcome).Inc()
}

func (m *Metrics) Mirror(outcome string) {
	if m == nil {
		return
	}
	m.mirrors.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LineEdit() {
	if m == nil {
		return
	}
	m.lineEdits.Inc()
}
