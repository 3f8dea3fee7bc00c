// Package observability provides logging, metrics, and tracing.
package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts HTTP requests by route, method, and status label.
	// This covers the ambient HTTP surface (healthz/readyz/metrics) only —
	// commands are never dispatched over HTTP (spec.md §1 Non-goals).
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	// HTTPRequestDuration records request durations by route and method.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	// CommandsTotal counts every command execution by command name and
	// outcome, per spec.md §4.4 "{command}_total".
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "command_executions_total",
			Help: "Total number of command executions by command name and outcome",
		},
		[]string{"command", "outcome"},
	)
	// CommandFailuresTotal counts command failures labeled by the closed
	// failure-reason taxonomy, per spec.md §4.4 "{command}_failures_total".
	CommandFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "command_failures_total",
			Help: "Total number of command failures by command name and reason",
		},
		[]string{"command", "reason"},
	)
	// CommandDuration records command execution latency by command name.
	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Command execution duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"command"},
	)

	// OutboxPendingGauge tracks the number of pending+processing outbox rows
	// observed at the last claim cycle (spec.md §4.3 lag visibility).
	OutboxPendingGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_pending_events",
			Help: "Number of outbox events awaiting delivery",
		},
	)
	// OutboxDeliveredTotal counts events successfully delivered to the sink.
	OutboxDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_delivered_total",
			Help: "Total number of outbox events delivered",
		},
		[]string{"event_type"},
	)
	// OutboxRetriesTotal counts outbox delivery retries.
	OutboxRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_retries_total",
			Help: "Total number of outbox delivery retries",
		},
		[]string{"event_type"},
	)
	// OutboxDeadLetteredTotal counts events that exhausted their retry budget.
	OutboxDeadLetteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_dead_lettered_total",
			Help: "Total number of outbox events moved to failed after exhausting retries",
		},
		[]string{"event_type"},
	)
)

// InitMetrics registers all Prometheus metrics with the default registry.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(CommandFailuresTotal)
	prometheus.MustRegister(CommandDuration)
	prometheus.MustRegister(OutboxPendingGauge)
	prometheus.MustRegister(OutboxDeliveredTotal)
	prometheus.MustRegister(OutboxRetriesTotal)
	prometheus.MustRegister(OutboxDeadLetteredTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// RecordCommand increments the command counters for a finished execution.
// reason is empty on success and a FailureReason string on failure.
func RecordCommand(name string, dur time.Duration, err error, reason string) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		CommandFailuresTotal.WithLabelValues(name, reason).Inc()
	}
	CommandsTotal.WithLabelValues(name, outcome).Inc()
	CommandDuration.WithLabelValues(name).Observe(dur.Seconds())
}

// RecordOutboxDelivered increments the delivered counter for an event type.
func RecordOutboxDelivered(eventType string) {
	OutboxDeliveredTotal.WithLabelValues(eventType).Inc()
}

// RecordOutboxRetry increments the retry counter for an event type.
func RecordOutboxRetry(eventType string) {
	OutboxRetriesTotal.WithLabelValues(eventType).Inc()
}

// RecordOutboxDeadLettered increments the dead-letter counter for an event type.
func RecordOutboxDeadLettered(eventType string) {
	OutboxDeadLetteredTotal.WithLabelValues(eventType).Inc()
}

// SetOutboxPending sets the current pending-events gauge.
func SetOutboxPending(n int) {
	OutboxPendingGauge.Set(float64(n))
}
