package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for nexora
type Metrics struct {
	// Command execution metrics
	CommandExecutions *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec

	// Backend API metrics
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec
	APIErrors   *prometheus.CounterVec

	// Question flow metrics
	FlowTransitions  *prometheus.CounterVec
	AnswersSubmitted *prometheus.CounterVec
	FlowsCompleted   prometheus.Counter

	// Report metrics
	ReportsFetched  *prometheus.CounterVec
	ReportsExported prometheus.Counter
	PreviewRequests *prometheus.CounterVec

	// Admin browser metrics
	StaleResponses *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexora_command_executions_total",
				Help: "Total number of command executions",
			},
			[]string{"command", "success"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexora_command_duration_seconds",
				Help:    "Command execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexora_api_requests_total",
				Help: "Total number of backend API requests",
			},
			[]string{"method", "route", "status"},
		),
		APILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexora_api_latency_seconds",
				Help:    "Backend API request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"method", "route"},
		),
		APIErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexora_api_errors_total",
				Help: "Total number of failed backend API requests",
			},
			[]string{"route", "error_type"},
		),

		FlowTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexora_flow_transitions_total",
				Help: "Question flow state transitions",
			},
			[]string{"from", "to"},
		),
		AnswersSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexora_answers_submitted_total",
				Help: "Answers submitted by question origin",
			},
			[]string{"question_type", "success"},
		),
		FlowsCompleted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "nexora_flows_completed_total",
				Help: "Question flows that reached completion",
			},
		),

		ReportsFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexora_reports_fetched_total",
				Help: "Reports fetched by resulting status",
			},
			[]string{"status"},
		),
		ReportsExported: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "nexora_reports_exported_total",
				Help: "Reports written to disk",
			},
		),
		PreviewRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexora_preview_requests_total",
				Help: "Requests served by the local report preview server",
			},
			[]string{"route", "code"},
		),

		StaleResponses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexora_stale_responses_total",
				Help: "Responses discarded because a newer request superseded them",
			},
			[]string{"scope"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexora_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// ObserveAPI records one finished backend request. status is 0 when no
// response arrived.
func (m *Metrics) ObserveAPI(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.APILatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
	switch {
	case status == 0:
		m.APIErrors.WithLabelValues(route, "network").Inc()
	case status >= 500:
		m.APIErrors.WithLabelValues(route, "server").Inc()
	case status >= 400:
		m.APIErrors.WithLabelValues(route, "client").Inc()
	}
}

// ObserveCommand records a CLI command execution.
func (m *Metrics) ObserveCommand(command string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CommandExecutions.WithLabelValues(command, strconv.FormatBool(err == nil)).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}
