package activities

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels
const (
	outcomeOK        = "ok"
	outcomeAPIError  = "api_error"
	outcomeTransport = "transport"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "activities_api",
		Name:      "requests_total",
		Help:      "Calls made to the activities API by operation and outcome.",
	}, []string{"op", "outcome"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Subsystem: "activities_api",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls to the activities API.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
)
