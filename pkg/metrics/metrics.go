// Package metrics exposes Prometheus instruments for workflow runs and actions.
package metrics

import (
	"time"

	"github.com/campaignhq/automation/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "automation"

// Metrics holds the collectors recorded by the run controller and the action dispatcher.
// A nil *Metrics records nothing.
type Metrics struct {
	runs           *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	events         *prometheus.CounterVec
}

// New creates the collectors and registers them on registerer.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Workflow runs by outcome and skip reason.",
		}, []string{"status", "reason"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of workflow runs that created an execution.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Dispatched actions by type and outcome.",
		}, []string{"type", "status"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Duration of dispatched actions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routed_events_total",
			Help:      "Contact events routed to workflows, by event type.",
		}, []string{"event_type"}),
	}

	registerer.MustRegister(m.runs, m.runDuration, m.actions, m.actionDuration, m.events)

	return m
}

// ObserveRun records the outcome of a run.
func (m *Metrics) ObserveRun(result *models.ExecutionResult, duration time.Duration) {
	if m == nil || result == nil {
		return
	}

	m.runs.WithLabelValues(string(result.Status), string(result.Reason)).Inc()

	if result.Status != models.RunStatusSkipped {
		m.runDuration.WithLabelValues(string(result.Status)).Observe(duration.Seconds())
	}
}

// ObserveAction records the outcome of one dispatched action.
func (m *Metrics) ObserveAction(result models.ActionResult) {
	if m == nil {
		return
	}

	m.actions.WithLabelValues(string(result.Type), string(result.Status)).Inc()
	m.actionDuration.WithLabelValues(string(result.Type)).Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
}

// ObserveEvent records a contact event entering the router.
func (m *Metrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}

	m.events.WithLabelValues(eventType).Inc()
}
