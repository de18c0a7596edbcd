// Package metrics provides Prometheus collectors for newsletter runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsletter"

var (
	FeedFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetch_total",
			Help:      "Feed fetch attempts by feed and status",
		},
		[]string{"feed", "status"},
	)

	ArticlesSelected = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "articles_selected",
			Help:      "Articles included in each digest",
			Buckets:   []float64{0, 1, 3, 5, 10, 15, 25},
		},
	)

	SendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_total",
			Help:      "Digest emails by delivery status",
		},
		[]string{"status"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Newsletter runs by outcome",
		},
		[]string{"outcome"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of newsletter runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	TrackingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_events_total",
			Help:      "Open and click events received",
		},
		[]string{"type", "status"},
	)
)

func RecordFeedFetch(feed, status string) {
	FeedFetchTotal.WithLabelValues(feed, status).Inc()
}

func RecordSend(status string) {
	SendsTotal.WithLabelValues(status).Inc()
}

// RecordRun records a finished run. Runs that ended in an error use the "error" outcome.
func RecordRun(outcome string, articles int, seconds float64) {
	RunsTotal.WithLabelValues(outcome).Inc()
	ArticlesSelected.Observe(float64(articles))
	RunDuration.Observe(seconds)
}

func RecordTrackingEvent(eventType, status string) {
	TrackingEventsTotal.WithLabelValues(eventType, status).Inc()
}
