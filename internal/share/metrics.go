package share

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "share_sync_total",
		Help: "Snapshot publish attempts by outcome.",
	}, []string{"outcome"})

	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "share_sync_duration_seconds",
		Help:    "Time spent publishing one bill snapshot to the relay.",
		Buckets: prometheus.DefBuckets,
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "share_update_queue_depth",
		Help: "Bills currently waiting in the update queue.",
	})

	queueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "share_update_queue_dropped_total",
		Help: "Sync requests dropped because the update queue was full.",
	})

	imagesEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "share_images_evicted_total",
		Help: "Receipt images stripped to stay within the share storage budget.",
	})

	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "share_dispatch_total",
		Help: "Share link dispatches by channel.",
	}, []string{"channel"})
)
