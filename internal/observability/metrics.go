// Package observability owns the Prometheus collectors of the service. All
// helpers are safe on a nil *Metrics so tests can skip metrics entirely.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the counters the core updates.
type Metrics struct {
	registry              *prometheus.Registry
	notificationsCreated  *prometheus.CounterVec
	notificationsDeduped  *prometheus.CounterVec
	sideEffectFailures    *prometheus.CounterVec
	batchAcquisitions     *prometheus.CounterVec
	emailsSent            prometheus.Counter
	sweepDuration         *prometheus.HistogramVec
	shoppingListsProduced *prometheus.CounterVec
}

// NewMetrics registers every collector on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		notificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fridge_notifications_created_total",
			Help: "Notifications created, by kind.",
		}, []string{"kind"}),
		notificationsDeduped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fridge_notifications_deduplicated_total",
			Help: "Notifications skipped because the dedup key already existed, by kind.",
		}, []string{"kind"}),
		sideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fridge_side_effect_failures_total",
			Help: "Swallowed notification and email failures, by component.",
		}, []string{"component"}),
		batchAcquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fridge_batch_acquisitions_total",
			Help: "Inventory acquisitions, by outcome (created or merged).",
		}, []string{"outcome"}),
		emailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fridge_emails_sent_total",
			Help: "Emails handed to the mail transport successfully.",
		}),
		sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fridge_sweep_duration_seconds",
			Help:    "Duration of scheduled sweeps, by job.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		shoppingListsProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fridge_shopping_lists_produced_total",
			Help: "Shopping list reconciliations, by source and outcome.",
		}, []string{"source", "outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.notificationsCreated,
		m.notificationsDeduped,
		m.sideEffectFailures,
		m.batchAcquisitions,
		m.emailsSent,
		m.sweepDuration,
		m.shoppingListsProduced,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) NotificationCreated(kind string) {
	if m == nil {
		return
	}
	m.notificationsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) NotificationDeduplicated(kind string) {
	if m == nil {
		return
	}
	m.notificationsDeduped.WithLabelValues(kind).Inc()
}

func (m *Metrics) SideEffectFailed(component string) {
	if m == nil {
		return
	}
	m.sideEffectFailures.WithLabelValues(component).Inc()
}

func (m *Metrics) BatchAcquired(merged bool) {
	if m == nil {
		return
	}
	outcome := "created"
	if merged {
		outcome = "merged"
	}
	m.batchAcquisitions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) EmailSent() {
	if m == nil {
		return
	}
	m.emailsSent.Inc()
}

func (m *Metrics) ObserveSweep(job string, started time.Time) {
	if m == nil {
		return
	}
	m.sweepDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ShoppingListProduced(source, outcome string) {
	if m == nil {
		return
	}
	m.shoppingListsProduced.WithLabelValues(source, outcome).Inc()
}
