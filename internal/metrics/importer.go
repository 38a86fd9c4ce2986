package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		importItemsTotal,
		importEnqueuedTotal,
		aiFallbacksTotal,
		fetchLatencySeconds,
		batchesTotal,
		batchDurationSeconds,
	)
}

var (
	importItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobimport_items_total",
			Help: "Queue items processed, by outcome (created/updated/duplicate/failed/claim_error).",
		},
		[]string{"outcome"},
	)

	importEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobimport_enqueued_total",
			Help: "URLs submitted for import, by result (added/skipped).",
		},
		[]string{"result"},
	)

	aiFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobimport_ai_fallbacks_total",
			Help: "Items where AI extraction failed and heuristic extraction was used.",
		},
	)

	fetchLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobimport_fetch_latency_seconds",
			Help:    "Page fetch latency, including retries.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"success"},
	)

	batchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobimport_batches_total",
			Help: "Batch runs, by trigger (manual/api/schedule) and result (ok/error/busy).",
		},
		[]string{"trigger", "result"},
	)

	batchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobimport_batch_duration_seconds",
			Help:    "Wall time of one batch run.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)

func IncItem(outcome string) {
	importItemsTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddEnqueued(added, skipped int) {
	importEnqueuedTotal.WithLabelValues("added").Add(float64(added))
	importEnqueuedTotal.WithLabelValues("skipped").Add(float64(skipped))
}

func IncAIFallback() {
	aiFallbacksTotal.Inc()
}

func ObserveFetch(d time.Duration, success bool) {
	fetchLatencySeconds.WithLabelValues(strconv.FormatBool(success)).Observe(d.Seconds())
}

func IncBatch(trigger, result string) {
	batchesTotal.WithLabelValues(norm(trigger), norm(result)).Inc()
}

func ObserveBatch(d time.Duration) {
	batchDurationSeconds.Observe(d.Seconds())
}
