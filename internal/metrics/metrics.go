// Package metrics defines the Prometheus collectors of the preview pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Preview outcomes.
const (
	OutcomeOK                 = "ok"
	OutcomeInvalidIdentifier  = "invalid_identifier"
	OutcomeContentUnavailable = "content_unavailable"
	OutcomeInvalidManifest    = "invalid_manifest"
	OutcomeError              = "error"
)

// Metrics holds the collectors. They are registered on the Registerer given
// to New, never on the global default registry.
type Metrics struct {
	Previews      *prometheus.CounterVec
	PreviewTime   prometheus.Histogram
	FetchDuration *prometheus.HistogramVec
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	CacheErrors   prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which is what tests and library callers without a
// metrics endpoint want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Previews: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "explorer_previews_total",
				Help: "Manifest previews by outcome",
			},
			[]string{"outcome"},
		),
		PreviewTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "explorer_preview_duration_seconds",
				Help:    "Duration of a full manifest preview in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "explorer_fetch_duration_seconds",
				Help:    "Duration of manifest content fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "explorer_cache_hits_total",
			Help: "Manifest cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "explorer_cache_misses_total",
			Help: "Manifest cache misses",
		}),
		CacheErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "explorer_cache_errors_total",
			Help: "Manifest cache operations that failed and were bypassed",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Previews, m.PreviewTime, m.FetchDuration, m.CacheHits, m.CacheMisses, m.CacheErrors)
	}
	return m
}

// NewNop returns unregistered collectors.
func NewNop() *Metrics {
	return New(nil)
}
