package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

// Metrics exposes the engine's application-level instruments.
type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	allocations        *prometheus.CounterVec
	allocationFailures prometheus.Counter
	transitions        *prometheus.CounterVec
	transitionRejected *prometheus.CounterVec
	slaBreaches        prometheus.Counter
	slaScanDuration    prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		httpRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recova_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recova_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		allocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recova_allocations_total",
			Help: "Successful case allocations by agency.",
		}, []string{"agency"}),
		allocationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recova_allocation_failures_total",
			Help: "Allocations that found no eligible agency.",
		}),
		transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recova_case_transitions_total",
			Help: "Accepted case status transitions.",
		}, []string{"from", "to"}),
		transitionRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recova_case_transitions_rejected_total",
			Help: "Rejected transition attempts by reason.",
		}, []string{"reason"}),
		slaBreaches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recova_sla_breaches_total",
			Help: "Newly counted SLA breaches.",
		}),
		slaScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recova_sla_scan_duration_seconds",
			Help:    "Duration of SLA breach scans.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncAllocation(agencyID string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(agencyID).Inc()
}

func (m *Metrics) IncAllocationFailure() {
	if m == nil {
		return
	}
	m.allocationFailures.Inc()
}

func (m *Metrics) IncTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncTransitionRejected(reason string) {
	if m == nil {
		return
	}
	m.transitionRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncSLABreach() {
	if m == nil {
		return
	}
	m.slaBreaches.Inc()
}

func (m *Metrics) ObserveSLAScan(d time.Duration) {
	if m == nil {
		return
	}
	m.slaScanDuration.Observe(d.Seconds())
}

// GinMiddleware records request counts and latency per matched route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

var Module = fx.Module("observability.metrics",
	fx.Provide(New),
)
