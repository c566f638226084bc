package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	OverrideActions   *prometheus.CounterVec
	OverrideFailures  *prometheus.CounterVec
	GateDenials       *prometheus.CounterVec
	PaymentsConfirmed prometheus.Counter
	RateLimited       prometheus.Counter
	RequestLatency    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		OverrideActions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stagegate_override_actions_total",
			Help: "Admin override operations by audit action type.",
		}, []string{"action"}),
		OverrideFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stagegate_override_failures_total",
			Help: "Failed admin override operations by error code.",
		}, []string{"code"}),
		GateDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stagegate_gate_denials_total",
			Help: "Access gate denials by reason code.",
		}, []string{"reason"}),
		PaymentsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stagegate_payments_confirmed_total",
			Help: "Payments confirmed, including bulk confirmations.",
		}),
		RateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stagegate_payment_submissions_rate_limited_total",
			Help: "Payment reference submissions rejected by the rate limiter.",
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stagegate_http_request_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
