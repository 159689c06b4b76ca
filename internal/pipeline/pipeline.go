// Package pipeline runs one media file through extraction, decoding, and
// segmentation and returns the finished transcript.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tiroq/scribe/internal/asr"
	"github.com/tiroq/scribe/internal/diaglog"
	"github.com/tiroq/scribe/internal/logging"
	"github.com/tiroq/scribe/internal/media"
	"github.com/tiroq/scribe/internal/metrics"
	"github.com/tiroq/scribe/internal/pcm"
	"github.com/tiroq/scribe/internal/store"
)

// Stage names a pipeline step.
type Stage string

const (
	StageExtract Stage = "extract"
	StageDecode  Stage = "decode"
	StageAnalyze Stage = "analyze"
)

// ErrNoPolicy is returned in the analyze stage when the registry is empty.
var ErrNoPolicy = errors.New("pipeline: no segmentation policy registered")

// StageError wraps the first failure of a run with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Extractor produces a WAV file from a media file. *media.Extractor
// implements it.
type Extractor interface {
	Extract(ctx context.Context, input string) (string, error)
}

// Cache stores finished transcripts. *store.Store implements it.
type Cache interface {
	Get(ctx context.Context, key store.Key) (*asr.Transcript, bool, error)
	Put(ctx context.Context, key store.Key, name string, t *asr.Transcript) error
}

// AudioInfo describes the decoded audio of a run.
type AudioInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Format     pcm.SampleFormat
	Stats      pcm.Stats
}

// Result is the outcome of a successful run. The caller owns AudioPath and
// should call Cleanup when done with it.
type Result struct {
	RunID      string
	Transcript *asr.Transcript
	AudioPath  string     // empty when served from cache
	Audio      *AudioInfo // nil when served from cache
	InputHash  string     // empty when no cache is configured
	Cached     bool

	log  *logging.Logger
	diag *diaglog.Logger
	once sync.Once
	err  error
}

// Cleanup removes the extracted audio file. Failure is logged as a warning
// and returned; the transcript is unaffected. Calling it again is a no-op.
func (r *Result) Cleanup() error {
	if r == nil || r.AudioPath == "" {
		return nil
	}
	r.once.Do(func() {
		if err := os.Remove(r.AudioPath); err != nil && !os.IsNotExist(err) {
			r.err = err
			r.log.Warnw("Could not clean up temporary audio file", "path", r.AudioPath, "error", err)
			r.diag.Log(diaglog.LogEntry{
				Component: diaglog.ComponentPipeline,
				Event:     diaglog.EventCleanupFailed,
				RunID:     r.RunID,
				Reason:    err.Error(),
			})
		}
	})
	return r.err
}

// Pipeline is safe for concurrent use when its collaborators are.
type Pipeline struct {
	extractor Extractor
	registry  *asr.Registry
	cache     Cache
	metrics   *metrics.Metrics
	diag      *diaglog.Logger
	log       *logging.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCache enables the transcript cache.
func WithCache(c Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithDiagLog writes stage events to the diagnostic log.
func WithDiagLog(d *diaglog.Logger) Option {
	return func(p *Pipeline) {
		if d != nil {
			p.diag = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// New creates a Pipeline. The registry's primary policy segments every run.
func New(extractor Extractor, registry *asr.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		registry:  registry,
		diag:      diaglog.NewNoOp(),
		log:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run transcribes input. The first failing stage ends the run with a
// *StageError; no partial transcript is returned and no retry is attempted.
// On failure after extraction the extracted audio is removed before Run
// returns.
func (p *Pipeline) Run(ctx context.Context, input string, model asr.Model) (*Result, error) {
	runID := uuid.NewString()
	log := p.log.With("run_id", runID)
	res := &Result{RunID: runID, log: log, diag: p.diag}

	policy := p.registry.Primary()
	policyName, policyKey := "", ""
	if policy != nil {
		policyName = policy.Name()
		policyKey = asr.Fingerprint(policy)
	}

	log.Infow("transcription started", "input", input, "model", model.Name(), "policy", policyName)
	p.diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentPipeline,
		Event:     diaglog.EventRunStart,
		RunID:     runID,
		Payload:   map[string]interface{}{"input": input, "model": model.Name(), "policy": policyName},
	})
	media.Probe(input, log)

	if cached, ok := p.lookup(ctx, res, input, model, policyKey); ok {
		cached.Policy = policyName
		res.Transcript = cached
		res.Cached = true
		p.metrics.RunSucceeded(cached.Duration, len(cached.Segments), true)
		log.Infow("transcript served from cache", "segments", len(cached.Segments))
		p.finish(res, time.Time{})
		return res, nil
	}

	started := time.Now()

	// extract
	t0 := p.stageStart(runID, StageExtract)
	audioPath, err := p.extractor.Extract(ctx, input)
	if err != nil {
		return nil, p.fail(runID, StageExtract, t0, err, "")
	}
	p.stageDone(runID, StageExtract, t0)
	res.AudioPath = audioPath

	if err := ctx.Err(); err != nil {
		return nil, p.fail(runID, StageDecode, time.Now(), err, audioPath)
	}

	// decode
	t0 = p.stageStart(runID, StageDecode)
	buf, err := pcm.Decode(audioPath)
	if err != nil {
		return nil, p.fail(runID, StageDecode, t0, err, audioPath)
	}
	p.stageDone(runID, StageDecode, t0)
	if buf.SampleRate != media.OutputSampleRate {
		log.Warnw("unexpected sample rate, timings use the file's own rate",
			"sample_rate", buf.SampleRate, "expected", media.OutputSampleRate)
	}
	if buf.Channels != media.OutputChannels {
		log.Warnw("multi-channel audio downmixed to mono", "channels", buf.Channels)
	}

	// analyze
	t0 = p.stageStart(runID, StageAnalyze)
	if policy == nil {
		return nil, p.fail(runID, StageAnalyze, t0, ErrNoPolicy, audioPath)
	}
	stats := pcm.Measure(buf.Samples)
	segments := policy.Segments(buf)
	if err := asr.Validate(segments, buf.Duration()); err != nil {
		return nil, p.fail(runID, StageAnalyze, t0, err, audioPath)
	}
	p.stageDone(runID, StageAnalyze, t0)

	res.Transcript = asr.NewTranscript(segments, buf.Duration(), model.Name(), policy.Name())
	res.Audio = &AudioInfo{
		SampleRate: buf.SampleRate,
		Channels:   buf.Channels,
		BitDepth:   buf.BitDepth,
		Format:     buf.Format,
		Stats:      stats,
	}
	log.Infow("transcription finished",
		"duration_s", buf.Duration(),
		"segments", len(segments),
		"peak_dbfs", finiteDBFS(stats.PeakDBFS()),
		"rms", stats.RMS,
	)

	p.store(ctx, res, input, policyKey)
	p.metrics.RunSucceeded(buf.Duration(), len(segments), false)
	p.finish(res, started)
	return res, nil
}

func (p *Pipeline) lookup(ctx context.Context, res *Result, input string, model asr.Model, policy string) (*asr.Transcript, bool) {
	if p.cache == nil || policy == "" {
		return nil, false
	}
	hash, err := store.HashFile(input)
	if err != nil {
		// The extract stage reports a missing input.
		res.log.Debugw("skipping cache lookup", "error", err)
		return nil, false
	}
	res.InputHash = hash

	t, ok, err := p.cache.Get(ctx, store.Key{InputHash: hash, Model: model.Name(), Policy: policy})
	if err != nil {
		res.log.Warnw("transcript cache lookup failed", "error", err)
		return nil, false
	}
	p.metrics.CacheLookup(ok)
	event := diaglog.EventCacheMiss
	if ok {
		event = diaglog.EventCacheHit
	}
	p.diag.Log(diaglog.LogEntry{Component: diaglog.ComponentCache, Event: event, RunID: res.RunID})
	return t, ok
}

func (p *Pipeline) store(ctx context.Context, res *Result, input, policyKey string) {
	if p.cache == nil || res.InputHash == "" {
		return
	}
	key := store.Key{InputHash: res.InputHash, Model: res.Transcript.Model, Policy: policyKey}
	if err := p.cache.Put(ctx, key, filepath.Base(input), res.Transcript); err != nil {
		res.log.Warnw("could not cache transcript", "error", err)
	}
}

var stageComponents = map[Stage]string{
	StageExtract: diaglog.ComponentExtractor,
	StageDecode:  diaglog.ComponentDecoder,
	StageAnalyze: diaglog.ComponentAnalyzer,
}

func (p *Pipeline) stageStart(runID string, stage Stage) time.Time {
	p.diag.Log(diaglog.LogEntry{
		Component: stageComponents[stage],
		Event:     diaglog.EventStageStart,
		RunID:     runID,
		Stage:     string(stage),
	})
	return time.Now()
}

func (p *Pipeline) stageDone(runID string, stage Stage, started time.Time) {
	elapsed := time.Since(started)
	p.metrics.ObserveStage(string(stage), elapsed)
	p.diag.Log(diaglog.LogEntry{
		Component:  stageComponents[stage],
		Event:      diaglog.EventStageDone,
		RunID:      runID,
		Stage:      string(stage),
		DurationMs: elapsed.Milliseconds(),
	})
}

// fail records a stage failure, removes the extracted audio if any, and
// returns the wrapped error.
func (p *Pipeline) fail(runID string, stage Stage, started time.Time, err error, audioPath string) error {
	elapsed := time.Since(started)
	p.metrics.RunFailed(string(stage))
	p.diag.Log(diaglog.LogEntry{
		Component:  stageComponents[stage],
		Event:      diaglog.EventStageFailed,
		RunID:      runID,
		Stage:      string(stage),
		DurationMs: elapsed.Milliseconds(),
		Reason:     err.Error(),
	})
	p.log.Errorw("transcription failed", "run_id", runID, "stage", stage, "error", err)

	if audioPath != "" {
		if rmErr := os.Remove(audioPath); rmErr != nil && !os.IsNotExist(rmErr) {
			p.log.Warnw("Could not clean up temporary audio file", "run_id", runID, "path", audioPath, "error", rmErr)
		}
	}
	return &StageError{Stage: stage, Err: err}
}

func (p *Pipeline) finish(res *Result, started time.Time) {
	entry := diaglog.LogEntry{
		Component: diaglog.ComponentPipeline,
		Event:     diaglog.EventRunDone,
		RunID:     res.RunID,
		Payload: map[string]interface{}{
			"segments": len(res.Transcript.Segments),
			"duration": res.Transcript.Duration,
			"cached":   res.Cached,
		},
	}
	if !started.IsZero() {
		entry.DurationMs = time.Since(started).Milliseconds()
	}
	p.diag.Log(entry)
}

// finiteDBFS maps digital silence to the lowest 16-bit level so the value
// stays encodable in JSON logs.
func finiteDBFS(db float64) float64 {
	if math.IsInf(db, -1) {
		return -96.33
	}
	return db
}
