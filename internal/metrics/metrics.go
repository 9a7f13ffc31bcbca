// Package metrics exposes Prometheus collectors for the directory build jobs.
package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	faviconDiscoveriesTotal   *prometheus.CounterVec
	faviconDiscoverySeconds   *prometheus.HistogramVec
	publisherRowsTotal        *prometheus.CounterVec
	duplicateFeedURLsTotal    prometheus.Counter
	artifactBytes             *prometheus.GaugeVec
	artifactUploadsTotal      *prometheus.CounterVec
	lastSuccessfulRunUnixtime *prometheus.GaugeVec
	lookupLoadFailuresTotal   *prometheus.CounterVec
	coverDiscoveriesTotal     *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		faviconDiscoveriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubdir_favicon_discoveries_total",
				Help: "Total number of domains processed by favicon discovery, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		faviconDiscoverySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pubdir_favicon_discovery_seconds",
				Help:    "Histogram of per-domain favicon discovery latency, labeled by outcome.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"outcome"},
		)

		publisherRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubdir_publisher_rows_total",
				Help: "Total number of publisher rows read, labeled by validation result.",
			},
			[]string{"result"},
		)

		duplicateFeedURLsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pubdir_duplicate_feed_urls_total",
				Help: "Total number of records overwritten in the feed view by a later record with the same feed URL.",
			},
		)

		artifactBytes = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pubdir_artifact_bytes",
				Help: "Size of the most recently written artifact, labeled by artifact name.",
			},
			[]string{"artifact"},
		)

		artifactUploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubdir_artifact_uploads_total",
				Help: "Total number of artifact uploads, labeled by status.",
			},
			[]string{"status"},
		)

		lastSuccessfulRunUnixtime = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pubdir_last_successful_run_unixtime",
				Help: "Unix time of the last successful run, labeled by command.",
			},
			[]string{"command"},
		)

		lookupLoadFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubdir_lookup_load_failures_total",
				Help: "Total number of lookup tables that could not be loaded, labeled by lookup and reason.",
			},
			[]string{"lookup", "reason"},
		)

		coverDiscoveriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubdir_cover_discoveries_total",
				Help: "Total number of domains processed by cover discovery, labeled by outcome.",
			},
			[]string{"outcome"},
		)
	})
}

// ObserveFaviconDiscovery records one domain's discovery outcome and latency.
func ObserveFaviconDiscovery(outcome string, duration time.Duration) {
	Init()
	faviconDiscoveriesTotal.WithLabelValues(outcome).Inc()
	faviconDiscoverySeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObservePublisherRow counts a row as "valid" or "invalid".
func ObservePublisherRow(valid bool) {
	Init()
	result := "valid"
	if !valid {
		result = "invalid"
	}
	publisherRowsTotal.WithLabelValues(result).Inc()
}

// ObserveDuplicateFeedURL counts a keyed-view collision.
func ObserveDuplicateFeedURL() {
	Init()
	duplicateFeedURLsTotal.Inc()
}

// ObserveArtifact records the size of a written artifact.
func ObserveArtifact(name string, size int) {
	Init()
	artifactBytes.WithLabelValues(name).Set(float64(size))
}

// ObserveUpload counts an upload attempt as "success" or "error".
func ObserveUpload(err error) {
	Init()
	status := "success"
	if err != nil {
		status = "error"
	}
	artifactUploadsTotal.WithLabelValues(status).Inc()
}

// ObserveLookupFailure counts a lookup table that was replaced by an empty
// one. reason is "missing" or "unreadable".
func ObserveLookupFailure(lookup, reason string) {
	Init()
	lookupLoadFailuresTotal.WithLabelValues(lookup, reason).Inc()
}

// ObserveCoverDiscovery counts one domain's cover discovery outcome.
func ObserveCoverDiscovery(outcome string) {
	Init()
	coverDiscoveriesTotal.WithLabelValues(outcome).Inc()
}

// MarkRunSucceeded stamps the completion time of a command.
func MarkRunSucceeded(command string, at time.Time) {
	Init()
	lastSuccessfulRunUnixtime.WithLabelValues(command).Set(float64(at.Unix()))
}

// Push sends every registered collector to a Prometheus Pushgateway.
// Batch jobs exit before a scrape could reach them.
func Push(ctx context.Context, gatewayURL, job string) error {
	if gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
