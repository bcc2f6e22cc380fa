package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_orders_created_total",
		Help: "Payment orders minted with the gateway, by outcome.",
	}, []string{"outcome"})

	PaymentVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Payment callbacks processed, by outcome.",
	}, []string{"outcome"})

	ClassificationsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classifications_recorded_total",
		Help: "Paid classification save attempts, by outcome.",
	}, []string{"outcome"})

	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "external_call_duration_seconds",
		Help:    "Latency of calls to the payment gateway, object storage and ML service.",
		Buckets: prometheus.DefBuckets,
	}, []string{"target"})
)

// Outcome labels shared by the workflow counters.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)
