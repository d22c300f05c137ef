// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventhub_http_requests_total",
		Help: "HTTP requests by route template, method and status code",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventhub_http_request_duration_seconds",
		Help:    "HTTP request latency by route template and method",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventhub_rate_limited_total",
		Help: "Requests rejected by a token-bucket limiter",
	}, []string{"limiter"})

	QuotaExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventhub_quota_exceeded_total",
		Help: "Requests rejected by the daily per-user quota",
	})

	LedgerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventhub_ledger_transitions_total",
		Help: "Registration transitions by operation and outcome",
	}, []string{"op", "outcome"})

	LedgerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventhub_ledger_transition_duration_seconds",
		Help:    "Time spent applying a registration transition, storage included",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)
