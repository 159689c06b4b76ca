// Package metrics holds the Prometheus collectors for scribe runs. A batch
// CLI has no scrape endpoint, so collectors are exported with
// WriteTextfile for the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes used as the "result" label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultCached  = "cached"
)

// Metrics groups every collector on a private registry. All methods are safe
// on a nil *Metrics.
type Metrics struct {
	reg *prometheus.Registry

	Runs          *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec
	AudioDuration prometheus.Histogram
	Segments      prometheus.Histogram
	CacheLookups  *prometheus.CounterVec
	WatchPending  prometheus.Gauge
	LastSuccess   prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_runs_total",
			Help: "Total number of transcription runs by result",
		}, []string{"result"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4 minutes
		}, []string{"stage"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_stage_failures_total",
			Help: "Total number of pipeline failures by stage",
		}, []string{"stage"}),
		AudioDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_audio_duration_seconds",
			Help:    "Duration of decoded audio",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~4.5 hours
		}),
		Segments: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_transcript_segments",
			Help:    "Number of segments per transcript",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_cache_lookups_total",
			Help: "Transcript cache lookups by result",
		}, []string{"result"}),
		WatchPending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scribe_watch_pending_files",
			Help: "Files detected by watch mode and not yet processed",
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scribe_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// ObserveStage records how long stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RunFailed counts a run that failed in stage.
func (m *Metrics) RunFailed(stage string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(ResultFailure).Inc()
	m.StageFailures.WithLabelValues(stage).Inc()
}

// RunSucceeded counts a finished run and its transcript shape.
func (m *Metrics) RunSucceeded(audioSeconds float64, segments int, cached bool) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if cached {
		result = ResultCached
	}
	m.Runs.WithLabelValues(result).Inc()
	m.AudioDuration.Observe(audioSeconds)
	m.Segments.Observe(float64(segments))
	m.LastSuccess.SetToCurrentTime()
}

// CacheLookup counts a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// SetWatchPending sets the pending file gauge.
func (m *Metrics) SetWatchPending(n int) {
	if m == nil {
		return
	}
	m.WatchPending.Set(float64(n))
}

// WriteTextfile writes every collector in the text exposition format to
// path, atomically. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
