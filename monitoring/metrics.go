package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	WebhooksReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhooks_received_total",
			Help: "Payment provider callbacks received, by provider",
		},
		[]string{"provider"},
	)

	// result: settled | duplicate | ignored | not_found | error
	WebhooksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhooks_processed_total",
			Help: "Payment provider callbacks by processing result",
		},
		[]string{"provider", "result"},
	)

	PaymentsSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_settled_total",
			Help: "Payments transitioned PENDING->PAID, by kind (topup|tariff)",
		},
		[]string{"kind"},
	)

	ActivationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tariff_activation_failures_total",
			Help: "Failed tariff activations in Remna after settlement",
		},
	)

	ReferralCreditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_credits_total",
			Help: "Referral bonus credits applied, by level",
		},
		[]string{"level"},
	)
)
