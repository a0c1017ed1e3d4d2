package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homelearn_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// PaymentsProcessed counts payment lifecycle transitions by outcome
	// (created|succeeded|failed|refunded).
	PaymentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homelearn_payments_total",
			Help: "Total number of payment lifecycle transitions",
		},
		[]string{"outcome"},
	)

	// EnrollmentsCreated counts successful enrollments.
	EnrollmentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homelearn_enrollments_created_total",
			Help: "Total number of enrollments created",
		},
	)

	// ChatMessagesDelivered counts chat messages fanned out to live connections.
	ChatMessagesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homelearn_chat_messages_delivered_total",
			Help: "Total number of chat messages delivered over websocket",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homelearn_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
