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
	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Listings metrics
	ListingsFetched  prometheus.Counter
	ListingsScreened prometheus.Counter
	FetchLatency     prometheus.Histogram

	// Dispatch metrics
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	DispatchLatency     prometheus.Histogram

	// Storage metrics
	StoreOpDuration *prometheus.HistogramVec
	StoreOpErrors   *prometheus.CounterVec

	// Health metrics
	RecordsRetained   prometheus.Gauge
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "listingwatch"
	}

	return &Metrics{
		// Run metrics
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Total number of scheduled runs by outcome",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "run_duration_seconds",
			Help:      "Duration of one scheduled run in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		// Listings metrics
		ListingsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listings",
			Name:      "fetched_total",
			Help:      "Total number of listings returned by the API",
		}),
		ListingsScreened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listings",
			Name:      "screened_total",
			Help:      "Total number of listings that passed screening",
		}),
		FetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "listings",
			Name:      "fetch_latency_seconds",
			Help:      "Listings API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Dispatch metrics
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications delivered by channel",
		}, []string{"channel"}),
		NotificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "notifications_failed_total",
			Help:      "Total number of failed notification sends by channel",
		}, []string{"channel"}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "send_latency_seconds",
			Help:      "Single notification send latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Storage metrics
		StoreOpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
		StoreOpErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_errors_total",
			Help:      "Total number of store operation errors",
		}, []string{"backend", "operation"}),

		// Health metrics
		RecordsRetained: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "notified_records_retained",
			Help:      "Number of notified records persisted after the last save",
		}),
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records one scheduled run outcome.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordListingsFetched adds to the fetched listings counter.
func RecordListingsFetched(n int) {
	DefaultMetrics.ListingsFetched.Add(float64(n))
}

// RecordListingsScreened adds to the screened listings counter.
func RecordListingsScreened(n int) {
	DefaultMetrics.ListingsScreened.Add(float64(n))
}

// RecordFetchLatency records one listings API call latency.
func RecordFetchLatency(seconds float64) {
	DefaultMetrics.FetchLatency.Observe(seconds)
}

// RecordNotificationSent increments the sent counter for a channel.
func RecordNotificationSent(channel string) {
	DefaultMetrics.NotificationsSent.WithLabelValues(channel).Inc()
}

// RecordNotificationFailed increments the failed counter for a channel.
func RecordNotificationFailed(channel string) {
	DefaultMetrics.NotificationsFailed.WithLabelValues(channel).Inc()
}

// RecordSendLatency records one notification send latency.
func RecordSendLatency(seconds float64) {
	DefaultMetrics.DispatchLatency.Observe(seconds)
}

// RecordStoreOp records store operation metrics.
func RecordStoreOp(backend, operation string, seconds float64, err error) {
	DefaultMetrics.StoreOpDuration.WithLabelValues(backend, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.StoreOpErrors.WithLabelValues(backend, operation).Inc()
	}
}

// UpdateRecordsRetained updates the retained records gauge.
func UpdateRecordsRetained(n int) {
	DefaultMetrics.RecordsRetained.Set(float64(n))
}

// UpdateLastSuccessfulRun updates the last successful run gauge.
func UpdateLastSuccessfulRun(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulRun.Set(float64(unixSeconds))
}
