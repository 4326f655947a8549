// Package metrics provides Prometheus instrumentation for the fraud engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sentinel",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// MessagesAnalyzed counts analyzed messages by resulting risk level.
	MessagesAnalyzed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "messages_analyzed_total",
			Help:      "Total conversation messages analyzed, by resulting risk level.",
		},
		[]string{"level"},
	)

	// RiskEventsTotal counts risk events by kind.
	RiskEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "risk_events_total",
			Help:      "Total risk events detected, by event kind.",
		},
		[]string{"kind"},
	)

	// EscalationsTotal counts one-time session escalations.
	EscalationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "escalations_total",
			Help:      "Total sessions escalated and blocked.",
		},
	)

	// IncidentsCreated counts incident creations by mode.
	IncidentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "incidents_created_total",
			Help:      "Total incidents created, by mode (live or simulated).",
		},
		[]string{"mode"},
	)

	// AlertDeliveries counts alert channel attempts by channel and result.
	AlertDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "alert_deliveries_total",
			Help:      "Total alert channel dispatch outcomes, by channel and result.",
		},
		[]string{"channel", "result"},
	)

	// AuditWrites counts audit entries by sink and result.
	AuditWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "audit_writes_total",
			Help:      "Total audit trail writes, by sink (ring or durable) and result.",
		},
		[]string{"sink", "result"},
	)

	// ActiveDashboardClients tracks connected monitoring WebSocket clients.
	ActiveDashboardClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sentinel",
			Name:      "active_dashboard_clients",
			Help:      "Number of currently connected monitoring dashboard clients.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		MessagesAnalyzed,
		RiskEventsTotal,
		EscalationsTotal,
		IncidentsCreated,
		AlertDeliveries,
		AuditWrites,
		ActiveDashboardClients,
	)
}

// Middleware records request counts and latency per route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// FullPath returns the route pattern (e.g. /v1/sessions/:id/risk),
		// keeping label cardinality bounded.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
