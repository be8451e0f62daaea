// Package metrics содержит Prometheus-коллекторы сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TaskQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "museed_task_queue_depth",
		Help: "Current number of jobs waiting in the scheduler queue",
	})

	TasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "museed_tasks_total",
		Help: "Total number of finished background tasks by kind and status",
	}, []string{"kind", "status"})

	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "museed_task_duration_seconds",
		Help:    "Wall-clock duration of background tasks by kind",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"kind"})

	IndexSearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "museed_index_search_duration_seconds",
		Help:    "Latency of ANN index searches by index",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"index"})

	IndexVectors = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "museed_index_vectors",
		Help: "Number of vectors in the published index snapshot",
	}, []string{"index"})
)
