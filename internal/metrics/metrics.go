package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics
var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_jobs_total",
			Help: "Total number of jobs reaching a terminal state",
		},
		[]string{"outcome"}, // "completed", "failed"
	)

	JobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_pipeline_job_failures_total",
			Help: "Total number of job failures by reason",
		},
		[]string{"reason"},
	)

	JobRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_job_retries_total",
			Help: "Total number of jobs returned to the queue for redelivery",
		},
	)

	JobsDeadLetteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_jobs_dead_lettered_total",
			Help: "Total number of jobs routed to the dead-letter list",
		},
	)

	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_jobs_in_flight",
			Help: "Number of jobs currently being processed",
		},
	)

	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_job_duration_seconds",
			Help:    "End-to-end job processing duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_pipeline_stage_duration_seconds",
			Help:    "Per-stage processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"stage"}, // "probe", "transcode", "thumbnail"
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_pipeline_queue_depth",
			Help: "Number of jobs waiting on the pending queue",
		},
	)

	ThumbnailFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_pipeline_thumbnail_failures_total",
			Help: "Total number of non-fatal thumbnail extraction failures",
		},
	)
)
