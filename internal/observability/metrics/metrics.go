package metrics

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config scopes metric labels to the running service.
type Config struct {
	ServiceName string
	Environment string
}

// HTTPMetrics instruments the gin server.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics(cfg Config) *HTTPMetrics {
	return &HTTPMetrics{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "influmarkt_http_requests_total",
			Help:        "HTTP requests by method, route and status.",
			ConstLabels: constLabels(cfg),
		}, []string{"method", "route", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "influmarkt_http_request_duration_seconds",
			Help:        "HTTP request latency.",
			ConstLabels: constLabels(cfg),
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

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
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Metrics covers domain-level counters used by the order workflow.
type Metrics struct {
	paymentEvents    *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
}

func New(cfg Config) *Metrics {
	return &Metrics{
		paymentEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "influmarkt_payment_events_total",
			Help:        "Processed payment webhook events by provider and type.",
			ConstLabels: constLabels(cfg),
		}, []string{"provider", "event_type"}),
		orderTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "influmarkt_order_transitions_total",
			Help:        "Order status transitions by edge.",
			ConstLabels: constLabels(cfg),
		}, []string{"from", "to"}),
	}
}

func (m *Metrics) RecordPaymentEvent(ctx context.Context, provider, eventType string) {
	_ = ctx
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues(provider, eventType).Inc()
}

func (m *Metrics) RecordOrderTransition(from, to string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(from, to).Inc()
}

// Sweep job failure reasons used as metric labels.
const (
	JobReasonDeadlineExceeded = "deadline_exceeded"
	JobReasonCanceled         = "canceled"
	JobReasonUnknown          = "unknown"
)

func ClassifyJobReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return JobReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return JobReasonCanceled
	default:
		return JobReasonUnknown
	}
}

// SchedulerMetrics instruments the sweep jobs. It is a process-wide singleton
// so the scheduler and its tests share one registry binding.
type SchedulerMetrics struct {
	jobRuns      *prometheus.CounterVec
	jobErrors    *prometheus.CounterVec
	jobTimeouts  *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	sweepActions *prometheus.CounterVec
}

var (
	schedulerOnce     sync.Once
	schedulerInstance *SchedulerMetrics
)

// SchedulerWithConfig returns the singleton, creating it with cfg labels on
// first use. Later calls ignore cfg.
func SchedulerWithConfig(cfg Config) *SchedulerMetrics {
	schedulerOnce.Do(func() {
		schedulerInstance = newSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return schedulerInstance
}

func Scheduler() *SchedulerMetrics {
	return SchedulerWithConfig(Config{})
}

// ResetSchedulerMetricsForTest drops the singleton so tests can re-register
// against a fresh registry.
func ResetSchedulerMetricsForTest() {
	schedulerOnce = sync.Once{}
	schedulerInstance = nil
}

func newSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "influmarkt"
	}
	if cfg.Environment == "" {
		cfg.Environment = "unknown"
	}
	labels := constLabels(cfg)

	m := &SchedulerMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "influmarkt_scheduler_job_runs_total",
			Help:        "Sweep job invocations.",
			ConstLabels: labels,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "influmarkt_scheduler_job_errors_total",
			Help:        "Sweep job failures by reason.",
			ConstLabels: labels,
		}, []string{"job", "reason"}),
		jobTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "influmarkt_scheduler_job_timeouts_total",
			Help:        "Sweep jobs cut off by their deadline.",
			ConstLabels: labels,
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "influmarkt_scheduler_job_duration_seconds",
			Help:        "Sweep job wall time.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"job"}),
		sweepActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "influmarkt_scheduler_orders_processed_total",
			Help:        "Orders acted on per sweep job.",
			ConstLabels: labels,
		}, []string{"job"}),
	}
	registerer.MustRegister(m.jobRuns, m.jobErrors, m.jobTimeouts, m.jobDuration, m.sweepActions)
	return m
}

func (s *SchedulerMetrics) IncJobRun(job string) {
	if s == nil {
		return
	}
	s.jobRuns.WithLabelValues(job).Inc()
}

func (s *SchedulerMetrics) IncJobError(job string, err error) {
	if s == nil {
		return
	}
	s.jobErrors.WithLabelValues(job, ClassifyJobReason(err)).Inc()
}

func (s *SchedulerMetrics) IncJobTimeout(job string) {
	if s == nil {
		return
	}
	s.jobTimeouts.WithLabelValues(job).Inc()
}

func (s *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	if s == nil {
		return
	}
	s.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (s *SchedulerMetrics) AddOrdersProcessed(job string, n int) {
	if s == nil || n <= 0 {
		return
	}
	s.sweepActions.WithLabelValues(job).Add(float64(n))
}

func constLabels(cfg Config) prometheus.Labels {
	labels := prometheus.Labels{}
	if cfg.ServiceName != "" {
		labels["service"] = cfg.ServiceName
	}
	if cfg.Environment != "" {
		labels["env"] = cfg.Environment
	}
	return labels
}
