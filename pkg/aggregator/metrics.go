package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	filesParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traffichist_files_parsed_total",
		Help: "Total number of raw sample files parsed.",
	})
	linesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traffichist_lines_skipped_total",
		Help: "Total number of malformed raw lines skipped.",
	})
	mergeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traffichist_merge_failures_total",
		Help: "Total number of bucket merges or normalizations that kept the prior payload.",
	})
	tagsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traffichist_tags_written_total",
		Help: "Total number of tag blocks rewritten in the archive.",
	})
	samplesPushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traffichist_samples_pushed_total",
		Help: "Total number of captures appended to the part file.",
	})
	jobFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traffichist_job_failures_total",
		Help: "Total number of failed jobs.",
	}, []string{"job"})
	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "traffichist_job_duration_seconds",
		Help:    "Duration of a pipeline job.",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	}, []string{"job"})
)
