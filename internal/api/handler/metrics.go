package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	praxisRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "praxis_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	praxisRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "praxis_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	praxisLedgerAppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "praxis_ledger_appends_total",
		Help: "Total chain links sealed, by action.",
	}, []string{"action"})

	praxisAppendConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "praxis_append_conflicts_total",
		Help: "Total appends abandoned after exhausting compare-and-swap retries.",
	})

	praxisVerificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "praxis_verification_failures_total",
		Help: "Total chain verifications that found a broken chain, by reason.",
	}, []string{"reason"})

	praxisStoreUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "praxis_store_up",
		Help: "Whether the chain store answered the last health probe.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		praxisRequestsTotal.WithLabelValues(method, path, status).Inc()
		praxisRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordLedgerAppend records a sealed chain link.
func RecordLedgerAppend(action string) {
	praxisLedgerAppendsTotal.WithLabelValues(action).Inc()
}

// RecordAppendConflict records an append abandoned under contention.
func RecordAppendConflict() {
	praxisAppendConflictsTotal.Inc()
}

// RecordVerificationFailure records a verification that found a broken chain.
func RecordVerificationFailure(reason string) {
	praxisVerificationFailuresTotal.WithLabelValues(reason).Inc()
}

// SetStoreUp records the result of the latest store health probe.
func SetStoreUp(up bool) {
	if up {
		praxisStoreUp.Set(1)
	} else {
		praxisStoreUp.Set(0)
	}
}
