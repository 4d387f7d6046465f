package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts all HTTP requests with labels
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	// AuditWriteCounter counts appended audit log entries
	AuditWriteCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_log_writes_total",
			Help: "Total number of audit log entries written",
		},
		[]string{"service", "action"},
	)

	// VectorSearchDurationHistogram records similarity search duration in seconds
	VectorSearchDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vector_search_duration_seconds",
			Help:    "Duration of tenant-scoped vector similarity searches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// IsolationRejectionCounter counts rejected cross-tenant access attempts
	IsolationRejectionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_isolation_rejections_total",
			Help: "Total number of operations rejected by tenant isolation enforcement",
		},
		[]string{"service", "layer"},
	)
)

// HTTPMetrics holds configuration and state for HTTP metrics collection
type HTTPMetrics struct {
	ServiceName string
	initialized bool
}

// NewHTTPMetrics creates a new HTTP metrics collector for a specific service
func NewHTTPMetrics(serviceName string) *HTTPMetrics {
	m := &HTTPMetrics{
		ServiceName: serviceName,
	}
	m.register()
	return m
}

// register registers the prometheus metrics if they haven't been registered already
func (m *HTTPMetrics) register() {
	if !m.initialized {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDurationHistogram)
		prometheus.MustRegister(AuditWriteCounter)
		prometheus.MustRegister(VectorSearchDurationHistogram)
		prometheus.MustRegister(IsolationRejectionCounter)
		m.initialized = true
	}
}

// ObserveAuditWrite increments the audit write counter for an action
func (m *HTTPMetrics) ObserveAuditWrite(action string) {
	AuditWriteCounter.WithLabelValues(m.ServiceName, action).Inc()
}

// ObserveVectorSearch records the duration of one similarity search
func (m *HTTPMetrics) ObserveVectorSearch(d time.Duration) {
	VectorSearchDurationHistogram.WithLabelValues(m.ServiceName).Observe(d.Seconds())
}

// ObserveIsolationRejection increments the rejection counter for a layer
// ("application" or "database")
func (m *HTTPMetrics) ObserveIsolationRejection(layer string) {
	IsolationRejectionCounter.WithLabelValues(m.ServiceName, layer).Inc()
}

// Middleware creates an Echo middleware function that records HTTP request metrics
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// Record metrics after the request is processed
			status := c.Response().Status
			method := c.Request().Method
			path := c.Path()
			statusStr := strconv.Itoa(status)

			// Increment the request counter
			RequestCounter.WithLabelValues(m.ServiceName, method, path, statusStr).Inc()

			// Record the request duration
			duration := time.Since(start).Seconds()
			RequestDurationHistogram.WithLabelValues(m.ServiceName, method, path, statusStr).Observe(duration)

			return err
		}
	}
}

// GetPrometheusHandler returns an HTTP handler for the metrics endpoint
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}
