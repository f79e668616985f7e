package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrate_submissions_total",
			Help: "Guest music submissions by outcome",
		},
		[]string{"event_id", "outcome"}, // accepted / duplicate / invalid
	)

	gateTracks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrate_gate_tracks_total",
			Help: "Tracks evaluated by the vibe gate",
		},
		[]string{"event_id", "result"}, // passed / rejected
	)

	rebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrate_pool_rebuilds_total",
			Help: "Ranked pool rebuilds per event",
		},
		[]string{"event_id"},
	)

	rebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qrate_pool_rebuild_duration_seconds",
			Help:    "Duration of ranked pool rebuilds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	poolSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qrate_pool_size",
			Help: "Current ranked pool size per event",
		},
		[]string{"event_id"},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrate_queue_operations_total",
			Help: "DJ queue state machine operations",
		},
		[]string{"event_id", "operation"},
	)
)

// RecordSubmission 记录一次来宾提交
func RecordSubmission(eventID, outcome string) {
	submissionsTotal.WithLabelValues(eventID, outcome).Inc()
}

// RecordGate 记录一次闸门评估
func RecordGate(eventID string, passed, rejected int) {
	gateTracks.WithLabelValues(eventID, "passed").Add(float64(passed))
	gateTracks.WithLabelValues(eventID, "rejected").Add(float64(rejected))
}

// RecordRebuild 记录一次排名池重建
func RecordRebuild(eventID string, seconds float64, size int) {
	rebuildsTotal.WithLabelValues(eventID).Inc()
	rebuildDuration.Observe(seconds)
	poolSize.WithLabelValues(eventID).Set(float64(size))
}

// RecordQueueOp 记录一次队列操作
func RecordQueueOp(eventID, operation string) {
	queueOperations.WithLabelValues(eventID, operation).Inc()
}
