package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darksky_relay_upstream_calls_total",
			Help: "Total upstream weather API calls",
		},
		[]string{"provider", "endpoint", "status"},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "darksky_relay_upstream_latency_seconds",
			Help:    "Upstream API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "endpoint"},
	)

	ForecastRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darksky_relay_forecast_requests_total",
			Help: "Forecast requests served, by outcome",
		},
		[]string{"outcome"},
	)

	SnapshotFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "darksky_relay_snapshot_fallbacks_total",
			Help: "Requests answered from the last-good snapshot after total upstream failure",
		},
	)
)
