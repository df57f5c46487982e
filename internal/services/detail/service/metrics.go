package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"timeline/internal/core/fetch"
	"timeline/internal/platform/metrics"
)

// Metrics are the detail screen collectors. A nil *Metrics records nothing
type Metrics struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	fetchesStarted prometheus.Counter
	outcomes       *prometheus.CounterVec
	dedupAttaches  prometheus.Counter
	staleDiscards  prometheus.Counter
	playbacks      *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg; a nil reg leaves them unregistered
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "detail",
			Name:      name,
			Help:      help,
		})
	}
	return &Metrics{
		cacheHits:      counter("audio_cache_hits_total", "Audio loads answered from the cache"),
		cacheMisses:    counter("audio_cache_misses_total", "Audio loads that missed the cache"),
		fetchesStarted: counter("audio_fetches_started_total", "Audio fetch tasks created"),
		dedupAttaches:  counter("audio_dedup_attaches_total", "Audio loads attached to an in-flight fetch"),
		staleDiscards:  counter("audio_stale_discards_total", "Fetched audio dropped because the slot was reused"),
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "detail",
			Name:      "audio_fetch_outcomes_total",
			Help:      "Finished audio fetch tasks by outcome",
		}, []string{"outcome"}),
		playbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "detail",
			Name:      "playbacks_total",
			Help:      "Playback requests by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) hit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) started() {
	if m != nil {
		m.fetchesStarted.Inc()
	}
}

func (m *Metrics) attached() {
	if m != nil {
		m.dedupAttaches.Inc()
	}
}

func (m *Metrics) stale() {
	if m != nil {
		m.staleDiscards.Inc()
	}
}

func (m *Metrics) outcome(o fetch.Outcome) {
	if m != nil && o != fetch.OutcomeNone {
		m.outcomes.WithLabelValues(string(o)).Inc()
	}
}

func (m *Metrics) played(result string) {
	if m != nil {
		m.playbacks.WithLabelValues(result).Inc()
	}
}
