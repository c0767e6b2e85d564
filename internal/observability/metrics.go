// Package observability exposes Prometheus metrics for the translator client.
package observability

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gotranslator/internal/transport"
)

var (
	apiRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotranslator_api_requests_total",
			Help: "Total number of translator API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gotranslator_api_request_duration_seconds",
			Help:    "Translator API request latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 215},
		},
		[]string{"endpoint"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotranslator_cache_lookups_total",
			Help: "Result cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	tokenAcquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotranslator_token_acquisitions_total",
			Help: "Access token requests by outcome (success, error, reused)",
		},
		[]string{"outcome"},
	)
)

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Token acquisition outcomes
const (
	TokenSuccess = "success"
	TokenError   = "error"
	TokenReused  = "reused"
)

// NewPrometheusHooks returns transport hooks that record request counts and latencies
func NewPrometheusHooks() transport.Hooks {
	return transport.Hooks{
		OnRequestEnd: func(_ context.Context, info transport.ResponseInfo) {
			status := "error"
			if info.StatusCode != 0 {
				status = strconv.Itoa(info.StatusCode)
			}
			apiRequests.WithLabelValues(info.Endpoint, status).Inc()
			apiRequestDuration.WithLabelValues(info.Endpoint).Observe(info.Duration.Seconds())
		},
	}
}

// RecordCacheLookup counts a result cache lookup
func RecordCacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

// RecordTokenAcquisition counts a token request
func RecordTokenAcquisition(outcome string) {
	tokenAcquisitions.WithLabelValues(outcome).Inc()
}
