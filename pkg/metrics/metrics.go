package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequests counts inbound webhook requests by resolved action.
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_call_webhook_requests_total",
		Help: "Total webhook requests by resolved call action",
	}, []string{"action"})

	// ProviderCalls counts outbound call-control API calls by operation and result.
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_call_provider_requests_total",
		Help: "Total call-control API requests by operation and result",
	}, []string{"operation", "result"})

	// ProviderLatency tracks call-control API latency.
	ProviderLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crm_call_provider_latency_seconds",
		Help:    "Latency of call-control API requests",
		Buckets: prometheus.DefBuckets,
	})

	// RecordForwardFailures counts failed record-store upserts. Failures never
	// affect the webhook response, so this is the only place they are visible.
	RecordForwardFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_call_record_forward_failures_total",
		Help: "Total failed call-outcome forwards to the record store",
	})
)
