// Package metrics provides Prometheus metrics for the Laurel service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReviewsCreated tracks reviews created by the scan, by variant
	ReviewsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laurel",
			Subsystem: "scan",
			Name:      "reviews_created_total",
			Help:      "Total number of reviews created, by review type",
		},
		[]string{"review_type"},
	)

	// ScanCandidates tracks eligible employees considered per scan run
	ScanCandidates = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "laurel",
			Subsystem: "scan",
			Name:      "candidates_total",
			Help:      "Total number of eligible employees considered by scans",
		},
	)

	// ScanFailures tracks per-employee failures during scans
	ScanFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "laurel",
			Subsystem: "scan",
			Name:      "failures_total",
			Help:      "Total number of employees whose review creation failed",
		},
	)

	// ScanDuration tracks full scan run duration in seconds
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "laurel",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Duration of scan runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// AnswersSubmitted tracks accepted answer submissions by role
	AnswersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laurel",
			Subsystem: "answers",
			Name:      "submissions_total",
			Help:      "Total number of accepted answer submissions, by role",
		},
		[]string{"role"},
	)

	// ReviewsExpired tracks reviews flipped to Expired by the sweep
	ReviewsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "laurel",
			Subsystem: "sweep",
			Name:      "reviews_expired_total",
			Help:      "Total number of reviews expired by the overdue sweep",
		},
	)

	// EventPublishes tracks audit event publish results
	EventPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laurel",
			Subsystem: "events",
			Name:      "publishes_total",
			Help:      "Total number of audit event publish attempts, by type and result",
		},
		[]string{"type", "result"},
	)
)
