// Package observability holds the process-wide prometheus collectors.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat_relay"

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Requests processed by the pipeline, by request type and outcome",
	}, []string{"request", "outcome"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Pipeline processing time by request type",
		Buckets:   prometheus.DefBuckets,
	}, []string{"request"})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Per-connection notification deliveries by event and outcome",
	}, []string{"event", "outcome"})

	EventsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dispatched_total",
		Help:      "Domain events dispatched to event handlers",
	}, []string{"event"})

	EventHandlerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_handler_failures_total",
		Help:      "Event handler failures, timeouts included",
	}, []string{"event", "reason"})

	EventsHandledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_handled_total",
		Help:      "Domain events accepted by the counter handler, by type",
	}, []string{"event"})

	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_connections",
		Help:      "Live connections currently held by the registry",
	})

	ProcessCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "process_cpu_percent",
		Help:      "CPU usage of the relay process as sampled by gopsutil",
	})

	ProcessRSSBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "process_rss_bytes",
		Help:      "Resident memory of the relay process",
	})
)

// Outcome labels.
const (
	OutcomeOK               = "ok"
	OutcomeValidationFailed = "validation_failed"
	OutcomeFailed           = "failed"
	OutcomeInternal         = "internal_error"
	OutcomeCancelled        = "cancelled"

	OutcomeDelivered = "delivered"
	OutcomeTimeout   = "timeout"
	OutcomeGone      = "gone"
	OutcomeDropped   = "dropped"
)

// IncDelivery records one delivery attempt.
func IncDelivery(event, outcome string) {
	if event == "" {
		event = "unknown"
	}
	DeliveriesTotal.WithLabelValues(event, outcome).Inc()
}
