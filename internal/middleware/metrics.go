package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	sessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	joinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_joins_total",
			Help: "Total number of successful session joins",
		},
	)

	submissionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "selection_submissions_total",
			Help: "Total number of accepted selection submissions",
		},
	)

	roundsCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rounds_completed_total",
			Help: "Total number of rounds that reached completion",
		},
	)

	sessionsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_expired_total",
			Help: "Total number of sessions purged by TTL expiry",
		},
	)

	wsConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of currently open websocket connections",
		},
	)
)

// MetricsMiddleware collects Prometheus metrics for HTTP requests.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		httpRequestsInFlight.Dec()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

func RecordSessionCreated() { sessionsCreatedTotal.Inc() }
func RecordJoin()           { joinsTotal.Inc() }
func RecordSubmission()     { submissionsTotal.Inc() }
func RecordRoundCompleted() { roundsCompletedTotal.Inc() }
func RecordSessionExpired() { sessionsExpiredTotal.Inc() }

func ConnectionOpened() { wsConnectionsActive.Inc() }
func ConnectionClosed() { wsConnectionsActive.Dec() }
