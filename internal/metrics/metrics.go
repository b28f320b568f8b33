// Package metrics exposes the supervisor's Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/panoptes/pocs-core/internal/command"
	"github.com/panoptes/pocs-core/internal/dispatch"
	"github.com/panoptes/pocs-core/internal/safety"
	"github.com/panoptes/pocs-core/internal/statemachine"
)

const namespace = "pocs"

// Metrics holds every collector on its own registry.
//
// It plugs into the rest of the supervisor as a safety recorder, a
// command recorder, a dispatch observer and a transition observer.
type Metrics struct {
	registry *prometheus.Registry

	safe            prometheus.Gauge
	checks          *prometheus.GaugeVec
	evaluations     prometheus.Counter
	lastEvaluation  prometheus.Gauge
	commandsQueued  *prometheus.CounterVec
	commandsDrained *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	state           *prometheus.GaugeVec
	unitAlive       *prometheus.GaugeVec
	unitUptime      *prometheus.GaugeVec
	clientConnected *prometheus.GaugeVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		safe: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "safe",
			Help:      "Verdict of the last safety evaluation (1=safe, 0=unsafe).",
		}),
		checks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "check",
			Help:      "Result of each safety check in the last evaluation (1=pass).",
		}, []string{"check"}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "evaluations_total",
			Help:      "Total number of safety evaluations.",
		}),
		lastEvaluation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "last_evaluation_timestamp_seconds",
			Help:      "Unix time of the last safety evaluation.",
		}),
		commandsQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "queued_total",
			Help:      "Commands received on the command channel, by kind.",
		}, []string{"kind"}),
		commandsDrained: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "dispatched_total",
			Help:      "Commands taken off a queue, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "transitions_total",
			Help:      "State machine transitions, by event.",
		}, []string{"event"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "current",
			Help:      "Current state (1 for the active state, 0 otherwise).",
		}, []string{"state"}),
		unitAlive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "unit_alive",
			Help:      "Whether each supervised messaging unit is alive.",
		}, []string{"unit"}),
		unitUptime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "unit_uptime_seconds",
			Help:      "How long each relay process has been running.",
		}, []string{"unit"}),
		clientConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "client_connected",
			Help:      "Whether each relay client (pub, cmd) is connected.",
		}, []string{"client"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.safe,
		m.checks,
		m.evaluations,
		m.lastEvaluation,
		m.commandsQueued,
		m.commandsDrained,
		m.transitions,
		m.state,
		m.unitAlive,
		m.unitUptime,
		m.clientConnected,
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordSafety implements safety.Recorder.
func (m *Metrics) RecordSafety(status safety.Status, at time.Time) {
	m.safe.Set(boolValue(status.Safe()))
	for name, ok := range status.Checks() {
		m.checks.WithLabelValues(name).Set(boolValue(ok))
	}
	m.evaluations.Inc()
	m.lastEvaluation.Set(float64(at.Unix()))
}

// Received implements messaging.CommandRecorder.
func (m *Metrics) Received(_ context.Context, c command.Command) {
	m.commandsQueued.WithLabelValues(string(c.Kind)).Inc()
}

// Dispatched implements dispatch.Observer.
func (m *Metrics) Dispatched(_ context.Context, c command.Command, outcome dispatch.Outcome, _ error) {
	m.commandsDrained.WithLabelValues(string(c.Kind), string(outcome)).Inc()
}

// SetState marks state as the active state.
func (m *Metrics) SetState(state string) {
	for _, s := range statemachine.States() {
		m.state.WithLabelValues(s).Set(boolValue(s == state))
	}
}

// Transition is a statemachine.TransitionFunc.
func (m *Metrics) Transition(event, _, to string) {
	m.transitions.WithLabelValues(event).Inc()
	m.SetState(to)
}

// SetUnitAlive records the liveness of a messaging unit.
func (m *Metrics) SetUnitAlive(unit string, alive bool) {
	m.unitAlive.WithLabelValues(unit).Set(boolValue(alive))
}

// SetUnitUptime records how long a relay process has been running.
func (m *Metrics) SetUnitUptime(unit string, uptime time.Duration) {
	m.unitUptime.WithLabelValues(unit).Set(uptime.Seconds())
}

// SetClientConnected implements messaging.ConnectionRecorder.
func (m *Metrics) SetClientConnected(client string, connected bool) {
	m.clientConnected.WithLabelValues(client).Set(boolValue(connected))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
