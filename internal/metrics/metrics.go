package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alumlink_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alumlink_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Messaging metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alumlink_messages_sent_total",
			Help: "Total messages persisted",
		},
		[]string{"media_type"},
	)

	LiveDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alumlink_live_deliveries_total",
			Help: "Live push attempts by outcome",
		},
		[]string{"result"}, // "delivered" or "miss"
	)

	NotificationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alumlink_notifications_created_total",
			Help: "Total notification records created",
		},
	)

	// Connection metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alumlink_ws_connections",
			Help: "Currently open websocket connections",
		},
	)

	AuthFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alumlink_auth_failures_total",
			Help: "Total failed connection authentications",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alumlink_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alumlink_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)
)
