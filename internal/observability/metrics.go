// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	MessagesProcessed  *prometheus.CounterVec // by source: live|backfill
	MentionsExtracted  prometheus.Counter
	MentionsStored     prometheus.Counter
	DuplicatesSkipped  prometheus.Counter
	CheckpointAdvances prometheus.Counter
	ProcessingErrors   *prometheus.CounterVec // by stage

	// Backfill metrics
	BackfillPages    prometheus.Counter
	BackfillRuns     *prometheus.CounterVec // by status: complete|aborted
	BackfillDuration prometheus.Histogram

	// External fetch metrics
	HistoryFetchLatency prometheus.Histogram
	PriceFetchLatency   prometheus.Histogram
	PriceFetchErrors    prometheus.Counter

	// Ranking metrics
	RankRuns       prometheus.Counter
	TickersRanked  prometheus.Counter
	TickersDropped prometheus.Counter

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "ticker_scanner"
	}

	return &Metrics{
		MessagesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "messages_processed_total",
			Help:      "Total number of chat messages processed",
		}, []string{"source"}),
		MentionsExtracted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "mentions_extracted_total",
			Help:      "Total number of validated ticker mentions extracted",
		}),
		MentionsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "mentions_stored_total",
			Help:      "Total number of mention records appended to the store",
		}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of mention records skipped as duplicates",
		}),
		CheckpointAdvances: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "checkpoint_advances_total",
			Help:      "Total number of checkpoint advancements",
		}),
		ProcessingErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "processing_errors_total",
			Help:      "Total number of processing errors by stage",
		}, []string{"stage"}),

		BackfillPages: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "pages_total",
			Help:      "Total number of history pages fetched",
		}),
		BackfillRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "runs_total",
			Help:      "Total number of per-channel backfill runs by status",
		}, []string{"status"}),
		BackfillDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "duration_seconds",
			Help:      "Per-channel backfill duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		HistoryFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "history_fetch_latency_seconds",
			Help:      "History page fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		PriceFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "prices",
			Name:      "fetch_latency_seconds",
			Help:      "Daily price series fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		PriceFetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prices",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed price series fetches",
		}),

		RankRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rank",
			Name:      "runs_total",
			Help:      "Total number of ranking runs",
		}),
		TickersRanked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rank",
			Name:      "tickers_ranked_total",
			Help:      "Total number of tickers that produced a ranked result",
		}),
		TickersDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rank",
			Name:      "tickers_dropped_total",
			Help:      "Total number of tickers dropped from ranking output",
		}),

		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of the last successfully processed message",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordMessageProcessed increments the processed counter for a source.
func RecordMessageProcessed(source string) {
	DefaultMetrics.MessagesProcessed.WithLabelValues(source).Inc()
}

// RecordMentions records extraction and store results for one message.
func RecordMentions(extracted, stored int) {
	DefaultMetrics.MentionsExtracted.Add(float64(extracted))
	DefaultMetrics.MentionsStored.Add(float64(stored))
	if dupes := extracted - stored; dupes > 0 {
		DefaultMetrics.DuplicatesSkipped.Add(float64(dupes))
	}
}

// RecordCheckpointAdvance increments the checkpoint advancement counter.
func RecordCheckpointAdvance() {
	DefaultMetrics.CheckpointAdvances.Inc()
}

// RecordProcessingError records a processing error at a stage.
func RecordProcessingError(stage string) {
	DefaultMetrics.ProcessingErrors.WithLabelValues(stage).Inc()
}

// RecordBackfillPage increments the fetched pages counter.
func RecordBackfillPage() {
	DefaultMetrics.BackfillPages.Inc()
}

// RecordBackfillRun records one per-channel backfill run.
func RecordBackfillRun(status string, durationSeconds float64) {
	DefaultMetrics.BackfillRuns.WithLabelValues(status).Inc()
	DefaultMetrics.BackfillDuration.Observe(durationSeconds)
}

// RecordPriceFetch records one price series fetch.
func RecordPriceFetch(seconds float64, err error) {
	DefaultMetrics.PriceFetchLatency.Observe(seconds)
	if err != nil {
		DefaultMetrics.PriceFetchErrors.Inc()
	}
}

// RecordRankRun records a ranking run with its kept and dropped counts.
func RecordRankRun(ranked, dropped int) {
	DefaultMetrics.RankRuns.Inc()
	DefaultMetrics.TickersRanked.Add(float64(ranked))
	DefaultMetrics.TickersDropped.Add(float64(dropped))
}

// MarkIngestionSuccess updates the last successful ingestion timestamp.
func MarkIngestionSuccess(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulIngestion.Set(float64(unixSeconds))
}
