package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records inbound request counts and latency for /metrics.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// TenantMetrics records hostname to tenant resolution outcomes.
type TenantMetrics struct {
	resolutions *prometheus.CounterVec
	duration    prometheus.Observer
}

func constLabels(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "tenantly"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

// NewHTTPMetrics registers HTTP instruments on the default registerer.
func NewHTTPMetrics(cfg Config) *HTTPMetrics {
	return newHTTPMetrics(prometheus.DefaultRegisterer, cfg)
}

func newHTTPMetrics(registerer prometheus.Registerer, cfg Config) *HTTPMetrics {
	labels := constLabels(cfg)
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tenantly_http_requests_total",
			Help:        "HTTP requests by route, method and status class.",
			ConstLabels: labels,
		}, []string{"route", "method", "status_class"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "tenantly_http_request_duration_seconds",
			Help:        "HTTP request latency by route.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			ConstLabels: labels,
		}, []string{"route", "method"}),
	}
	registerer.MustRegister(m.requests, m.duration)
	return m
}

// NewTenantMetrics registers tenant resolution instruments on the default registerer.
func NewTenantMetrics(cfg Config) *TenantMetrics {
	return newTenantMetrics(prometheus.DefaultRegisterer, cfg)
}

func newTenantMetrics(registerer prometheus.Registerer, cfg Config) *TenantMetrics {
	labels := constLabels(cfg)
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "tenantly_tenant_resolutions_total",
		Help:        "Tenant resolutions by host kind and result.",
		ConstLabels: labels,
	}, []string{"kind", "result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "tenantly_tenant_resolution_duration_seconds",
		Help:        "Latency of tenant lookups against the store.",
		Buckets:     []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		ConstLabels: labels,
	})
	registerer.MustRegister(resolutions, duration)
	return &TenantMetrics{resolutions: resolutions, duration: duration}
}

// NewTenantMetricsForTest registers on a caller-owned registry.
func NewTenantMetricsForTest(registerer prometheus.Registerer) *TenantMetrics {
	return newTenantMetrics(registerer, Config{ServiceName: "tenantly", Environment: "test"})
}

// ObserveResolution records one resolution. A nil receiver is a no-op.
func (m *TenantMetrics) ObserveResolution(kind, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(kind, result).Inc()
	if elapsed > 0 {
		m.duration.Observe(elapsed.Seconds())
	}
}

// GinMiddleware records request counts and latency per matched route.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(route, method, statusClass(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

func statusClass(status int) string {
	if status < 100 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// SchedulerMetrics records background job runs.
type SchedulerMetrics struct {
	runs      *prometheus.CounterVec
	errors    *prometheus.CounterVec
	timeouts  *prometheus.CounterVec
	processed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewSchedulerMetrics registers scheduler instruments on the default registerer.
func NewSchedulerMetrics(cfg Config) *SchedulerMetrics {
	return newSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
}

// NewSchedulerMetricsForTest registers on a caller-owned registry.
func NewSchedulerMetricsForTest(registerer prometheus.Registerer) *SchedulerMetrics {
	return newSchedulerMetrics(registerer, Config{ServiceName: "tenantly", Environment: "test"})
}

func newSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	labels := constLabels(cfg)
	m := &SchedulerMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tenantly_scheduler_job_runs_total",
			Help:        "Scheduler job executions.",
			ConstLabels: labels,
		}, []string{"job"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tenantly_scheduler_job_errors_total",
			Help:        "Scheduler job failures.",
			ConstLabels: labels,
		}, []string{"job"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tenantly_scheduler_job_timeouts_total",
			Help:        "Scheduler jobs that hit their deadline.",
			ConstLabels: labels,
		}, []string{"job"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tenantly_scheduler_job_processed_total",
			Help:        "Rows handled by scheduler jobs.",
			ConstLabels: labels,
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "tenantly_scheduler_job_duration_seconds",
			Help:        "Scheduler job latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			ConstLabels: labels,
		}, []string{"job"}),
	}
	registerer.MustRegister(m.runs, m.errors, m.timeouts, m.processed, m.duration)
	return m
}

// ObserveJob records one run. A nil receiver is a no-op.
func (m *SchedulerMetrics) ObserveJob(job string, processed int, elapsed time.Duration, err error, timedOut bool) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job).Inc()
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	if processed > 0 {
		m.processed.WithLabelValues(job).Add(float64(processed))
	}
	if timedOut {
		m.timeouts.WithLabelValues(job).Inc()
	}
	if err != nil {
		m.errors.WithLabelValues(job).Inc()
	}
}
