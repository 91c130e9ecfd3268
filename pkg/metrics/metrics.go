package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PushDeliveries counts delivery attempts by outcome (success|transient|permanent).
	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cora_push_deliveries_total",
			Help: "Total number of push delivery attempts",
		},
		[]string{"result"},
	)

	// PushCycles counts completed fan-out cycles.
	PushCycles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cora_push_cycles_total",
			Help: "Total number of push fan-out cycles",
		},
	)

	// PushSubscriptions tracks the number of registered push subscriptions.
	PushSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cora_push_subscriptions",
			Help: "Number of registered push subscriptions",
		},
	)

	// ReportsCreated counts successfully filed reports.
	ReportsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cora_reports_created_total",
			Help: "Total number of reports created",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cora_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
