// Package metrics exposes the synchronization engine's counters.
//
// All methods are safe on a nil *Metrics so components can run without
// instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fleetdash"

// Metrics holds the collectors registered on its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	PollTicks        *prometheus.CounterVec
	PollFailures     *prometheus.CounterVec
	DiscardedRenders *prometheus.CounterVec
	Actions          *prometheus.CounterVec
	ActiveTimers     prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		PollTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_fetches_total",
			Help:      "Fetches started by a poller.",
		}, []string{"poller"}),
		PollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_failures_total",
			Help:      "Poller fetches that failed at the transport layer.",
		}, []string{"poller"}),
		DiscardedRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_renders_total",
			Help:      "Responses dropped because their modal was closed or refocused.",
		}, []string{"poller"}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Operator actions by outcome.",
		}, []string{"action", "outcome"}),
		ActiveTimers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_timers",
			Help:      "Live repeating timers.",
		}),
	}

	m.Registry.MustRegister(m.PollTicks, m.PollFailures, m.DiscardedRenders, m.Actions, m.ActiveTimers)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// FetchStarted counts a fetch started by poller.
func (m *Metrics) FetchStarted(poller string) {
	if m == nil {
		return
	}
	m.PollTicks.WithLabelValues(poller).Inc()
}

// FetchFailed counts a failed fetch of poller.
func (m *Metrics) FetchFailed(poller string) {
	if m == nil {
		return
	}
	m.PollFailures.WithLabelValues(poller).Inc()
}

// RenderDiscarded counts a stale response dropped by poller.
func (m *Metrics) RenderDiscarded(poller string) {
	if m == nil {
		return
	}
	m.DiscardedRenders.WithLabelValues(poller).Inc()
}

// ActionFinished counts an operator action by outcome.
func (m *Metrics) ActionFinished(action, outcome string) {
	if m == nil {
		return
	}
	m.Actions.WithLabelValues(action, outcome).Inc()
}

// SetActiveTimers records the number of live timers.
func (m *Metrics) SetActiveTimers(n int) {
	if m == nil {
		return
	}
	m.ActiveTimers.Set(float64(n))
}
