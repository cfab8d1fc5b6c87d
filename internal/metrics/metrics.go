// Package metrics provides Prometheus metrics for trip ingestion and retrieval.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingestion outcomes used as the "outcome" label.
const (
	OutcomeSuccess   = "success"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// TrackMetrics contains the Prometheus metrics of the track service.
// A nil *TrackMetrics is valid and records nothing.
type TrackMetrics struct {
	Ingestions      *prometheus.CounterVec
	IngestDuration  prometheus.Histogram
	PointsPerTrip   prometheus.Histogram
	ContentLookups  *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
}

// NewTrackMetrics creates the metrics and registers them with registry.
func NewTrackMetrics(registry prometheus.Registerer) (*TrackMetrics, error) {
	m := &TrackMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register track metrics: %w", err)
	}
	return m, nil
}

func (m *TrackMetrics) initMetrics() {
	m.Ingestions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gpx_ingestions_total",
		Help: "Total number of GPX ingestion attempts by outcome",
	}, []string{"outcome"})

	m.IngestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gpx_ingest_duration_seconds",
		Help:    "Duration of GPX ingestion calls in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	m.PointsPerTrip = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gpx_trip_points",
		Help:    "Number of track points stored per ingested trip",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	m.ContentLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gpx_content_lookups_total",
		Help: "GPX content lookups by result (cache_hit, store_hit, not_found)",
	}, []string{"result"})

	m.EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gpx_trip_events_total",
		Help: "Trip ingested events by publish status",
	}, []string{"status"})
}

// ObserveIngest records one ingestion attempt.
func (m *TrackMetrics) ObserveIngest(outcome string, started time.Time, points int) {
	if m == nil {
		return
	}
	m.Ingestions.WithLabelValues(outcome).Inc()
	m.IngestDuration.Observe(time.Since(started).Seconds())
	if outcome == OutcomeSuccess {
		m.PointsPerTrip.Observe(float64(points))
	}
}

// ObserveContentLookup records a GPX content lookup result.
func (m *TrackMetrics) ObserveContentLookup(result string) {
	if m == nil {
		return
	}
	m.ContentLookups.WithLabelValues(result).Inc()
}

// ObserveEvent records the publish status of a trip event.
func (m *TrackMetrics) ObserveEvent(status string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(status).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *TrackMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Ingestions.Collect(ch)
	ch <- m.IngestDuration
	ch <- m.PointsPerTrip
	m.ContentLookups.Collect(ch)
	m.EventsPublished.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *TrackMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Ingestions.Describe(ch)
	ch <- m.IngestDuration.Desc()
	ch <- m.PointsPerTrip.Desc()
	m.ContentLookups.Describe(ch)
	m.EventsPublished.Describe(ch)
}
