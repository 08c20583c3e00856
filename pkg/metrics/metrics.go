package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clasificados_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// VerificationAttempts counts one-time code confirmations by channel
	// (email|sms) and result (success|invalid|expired|missing).
	VerificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clasificados_verification_attempts_total",
			Help: "Total number of verification code confirmations",
		},
		[]string{"channel", "result"},
	)

	// CodesIssued counts one-time codes issued per channel.
	CodesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clasificados_verification_codes_issued_total",
			Help: "Total number of verification codes generated and dispatched",
		},
		[]string{"channel"},
	)

	// ListingsPublished counts listings created through the API.
	ListingsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clasificados_listings_published_total",
			Help: "Total number of published listings",
		},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clasificados_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clasificados_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
