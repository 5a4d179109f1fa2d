package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SchedulesTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "steerclear", Name: "schedules_total", Help: "Total rides scheduled"})
	ScheduleFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: "steerclear", Name: "schedule_failures_total", Help: "Scheduling attempts aborted by oracle failure"})
	QueueLength      = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "steerclear", Name: "queue_length", Help: "Rides currently in the queue"})
	OracleLatency    = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "steerclear", Name: "oracle_latency_seconds", Help: "Distance matrix request latency"})

	OracleRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "steerclear", Name: "oracle_requests_total", Help: "Distance matrix requests by outcome"},
		[]string{"outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "steerclear", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "steerclear",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
