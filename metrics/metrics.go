// Package metrics exposes Prometheus instrumentation for the session
// coordinator. A nil *Metrics is valid and records nothing, so callers never
// guard instrumentation sites.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the coordinator's Prometheus collectors.
type Metrics struct {
	turnsTotal       *prometheus.CounterVec
	eventsTotal      *prometheus.CounterVec
	toolsTotal       *prometheus.CounterVec
	delegationsTotal prometheus.Counter
	activeTurns      prometheus.Gauge
	turnDuration     prometheus.Histogram
}

// New creates and registers the collectors on the given registerer. Pass
// prometheus.DefaultRegisterer for process-wide exposure.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convoral",
			Name:      "turns_total",
			Help:      "Turns processed, by final agent and outcome.",
		}, []string{"agent", "status"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convoral",
			Name:      "protocol_events_total",
			Help:      "Protocol events emitted to clients, by type.",
		}, []string{"type"}),
		toolsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convoral",
			Name:      "tool_invocations_total",
			Help:      "Tool invocations, by tool and outcome.",
		}, []string{"tool", "status"}),
		delegationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "convoral",
			Name:      "delegations_total",
			Help:      "Agent handoffs performed.",
		}),
		activeTurns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "convoral",
			Name:      "active_turns",
			Help:      "Turns currently in flight.",
		}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "convoral",
			Name:      "turn_duration_seconds",
			Help:      "End to end turn latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.turnsTotal, m.eventsTotal, m.toolsTotal,
		m.delegationsTotal, m.activeTurns, m.turnDuration)
	return m
}

// TurnStarted marks a turn in flight.
func (m *Metrics) TurnStarted() {
	if m == nil {
		return
	}
	m.activeTurns.Inc()
}

// TurnFinished records a turn's final agent, outcome and duration.
func (m *Metrics) TurnFinished(agent, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.activeTurns.Dec()
	m.turnsTotal.WithLabelValues(agent, status).Inc()
	m.turnDuration.Observe(elapsed.Seconds())
}

// EventEmitted counts one protocol event by type.
func (m *Metrics) EventEmitted(eventType string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(eventType).Inc()
}

// ToolInvoked counts one tool invocation outcome.
func (m *Metrics) ToolInvoked(tool, status string) {
	if m == nil {
		return
	}
	m.toolsTotal.WithLabelValues(tool, status).Inc()
}

// Delegated counts one agent handoff.
func (m *Metrics) Delegated() {
	if m == nil {
		return
	}
	m.delegationsTotal.Inc()
}
