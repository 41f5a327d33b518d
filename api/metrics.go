package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rooms",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rooms",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "API request latency by endpoint",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

const (
	outcomeOK      = "ok"
	outcomeAuth    = "auth_error"
	outcomeNetwork = "network_error"
)
