package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Session metrics
	SessionTransitions   *prometheus.CounterVec
	SessionStaleResults  prometheus.Counter
	SessionsSwept        prometheus.Counter
	ActiveConsoleClients prometheus.Gauge

	// Dashboard metrics
	DashboardQueryLatency  *prometheus.HistogramVec
	DashboardQueryFailures *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec

	// Broker metrics
	BrokerOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		SessionTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session store state transitions by target state",
		}, []string{"state"}),
		SessionStaleResults: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "stale_results_total",
			Help:      "Session check results discarded because a newer check superseded them",
		}),
		SessionsSwept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "swept_total",
			Help:      "Expired auth sessions removed by the sweeper",
		}),
		ActiveConsoleClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "console",
			Name:      "active_clients",
			Help:      "Current number of live console clients",
		}),

		DashboardQueryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "query_duration_seconds",
			Help:      "Duration of dashboard sub-queries",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"query"}),
		DashboardQueryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "query_failures_total",
			Help:      "Dashboard sub-queries that failed and were folded to zero",
		}, []string{"query"}),

		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),

		BrokerOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "operations_total",
			Help:      "Total number of broker operations",
		}, []string{"operation", "status"}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) ObserveHTTP(method, path string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	m.HTTPLatency.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) SessionTransition(state string) {
	if m == nil {
		return
	}
	m.SessionTransitions.WithLabelValues(state).Inc()
}

func (m *Metrics) StaleSessionResult() {
	if m == nil {
		return
	}
	m.SessionStaleResults.Inc()
}

func (m *Metrics) Swept(n int64) {
	if m == nil {
		return
	}
	m.SessionsSwept.Add(float64(n))
}

func (m *Metrics) ConsoleClientOpened() {
	if m == nil {
		return
	}
	m.ActiveConsoleClients.Inc()
}

func (m *Metrics) ConsoleClientClosed() {
	if m == nil {
		return
	}
	m.ActiveConsoleClients.Dec()
}

func (m *Metrics) ObserveDashboardQuery(query string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DashboardQueryLatency.WithLabelValues(query).Observe(d.Seconds())
	if err != nil {
		m.DashboardQueryFailures.WithLabelValues(query).Inc()
	}
}

func (m *Metrics) ObserveDatabase(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DatabaseOperations.WithLabelValues(operation, status(err)).Inc()
	m.DatabaseLatency.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) ObserveBroker(operation string, err error) {
	if m == nil {
		return
	}
	m.BrokerOperations.WithLabelValues(operation, status(err)).Inc()
}
