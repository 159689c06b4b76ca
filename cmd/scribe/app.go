package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/tiroq/scribe/internal/asr"
	"github.com/tiroq/scribe/internal/asr/placeholder"
	"github.com/tiroq/scribe/internal/config"
	"github.com/tiroq/scribe/internal/diaglog"
	"github.com/tiroq/scribe/internal/fileutil"
	"github.com/tiroq/scribe/internal/logging"
	"github.com/tiroq/scribe/internal/media"
	"github.com/tiroq/scribe/internal/metrics"
	"github.com/tiroq/scribe/internal/pipeline"
	"github.com/tiroq/scribe/internal/store"
	"github.com/tiroq/scribe/internal/transcript"
)

// minDBFS stands in for digital silence in the metadata sidecar, which
// cannot encode -Inf.
const minDBFS = -96.33

var errOverwriteInput = errors.New("output path is the input file")

// app wires the pipeline and its collaborators from a Config.
type app struct {
	cfg      *config.Config
	log      *logging.Logger
	diag     *diaglog.Logger
	metrics  *metrics.Metrics
	cache    *store.Store
	pipeline *pipeline.Pipeline
	model    asr.Model
}

func newApp(cfg *config.Config, log *logging.Logger) (*app, error) {
	model, err := asr.ParseModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		diag:    diaglog.NewNoOp(),
		metrics: metrics.New(),
		model:   model,
	}

	if cfg.Debug || diaglog.IsDebugEnabled() {
		path := cfg.DiagLog
		if path == "" {
			path = diaglog.DefaultPath()
		}
		d, err := diaglog.New(path, true)
		if err != nil {
			log.Warnw("diagnostic log disabled", "path", path, "error", err)
		} else {
			a.diag = d
			log.Debugw("diagnostic log enabled", "path", path)
		}
	}

	var scratch media.ScratchDir = media.TempDir{}
	if cfg.ScratchDir != "" {
		scratch = media.Dir(cfg.ScratchDir)
	}
	extractor := media.NewExtractor(
		media.WithBinary(cfg.FFmpeg.Binary),
		media.WithRunner(media.OSRunner{Timeout: time.Duration(cfg.FFmpeg.TimeoutSeconds) * time.Second}),
		media.WithScratchDir(scratch),
		media.WithLogger(log.Named("extractor")),
	)

	registry := asr.NewRegistry()
	registry.Register(placeholder.Coarse{})
	registry.Register(placeholder.NewChunked(
		placeholder.WithThreshold(cfg.Chunked.Threshold),
		placeholder.WithWorkers(cfg.Chunked.Workers),
		placeholder.WithChunkSeconds(cfg.Chunked.ChunkSeconds),
	))
	if err := registry.SetPrimary(cfg.Policy); err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(log.Named("pipeline")),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithDiagLog(a.diag),
	}
	if cfg.Cache.Enabled {
		st, err := store.Open(cfg.Cache.Path)
		if err != nil {
			log.Warnw("transcript cache disabled", "path", cfg.Cache.Path, "error", err)
		} else {
			a.cache = st
			opts = append(opts, pipeline.WithCache(st))
		}
	}
	a.pipeline = pipeline.New(extractor, registry, opts...)
	return a, nil
}

// transcribe runs the pipeline on input and writes every configured output.
// output overrides the default location; see outputTargets.
func (a *app) transcribe(ctx context.Context, input, output string) ([]string, error) {
	targets, err := outputTargets(input, output, a.cfg.Output.Dir, a.cfg.Output.Formats)
	if err != nil {
		return nil, err
	}

	res, err := a.pipeline.Run(ctx, input, a.model)
	if err != nil {
		return nil, err
	}
	defer res.Cleanup()

	var written []string
	for _, tg := range targets {
		if err := transcript.Write(tg.path, tg.format, res.Transcript); err != nil {
			return written, fmt.Errorf("writing %s: %w", tg.path, err)
		}
		written = append(written, tg.path)
	}

	if a.cfg.Output.Metadata {
		metaPath, err := fileutil.WriteMetadata(written[0], a.metadata(input, res, written))
		if err != nil {
			return written, err
		}
		written = append(written, metaPath)
	}
	return written, nil
}

func (a *app) metadata(input string, res *pipeline.Result, outputs []string) *fileutil.TranscriptMetadata {
	hash := res.InputHash
	if hash == "" {
		if h, err := store.HashFile(input); err == nil {
			hash = h
		}
	}
	names := make([]string, len(outputs))
	for i, p := range outputs {
		names[i] = filepath.Base(p)
	}

	meta := &fileutil.TranscriptMetadata{
		Version:         Version,
		Input:           input,
		InputHash:       hash,
		Model:           a.model.Name(),
		ModelResource:   a.model.Resource(),
		Policy:          res.Transcript.Policy,
		DurationSeconds: res.Transcript.Duration,
		SegmentCount:    len(res.Transcript.Segments),
		Outputs:         names,
		Cached:          res.Cached,
		CreatedAt:       time.Now().UTC(),
	}
	if res.Audio != nil {
		peak := res.Audio.Stats.PeakDBFS()
		if math.IsInf(peak, -1) {
			peak = minDBFS
		}
		meta.Audio = &fileutil.Audio{
			SampleRate: res.Audio.SampleRate,
			Channels:   res.Audio.Channels,
			BitDepth:   res.Audio.BitDepth,
			Format:     res.Audio.Format.String(),
			PeakDBFS:   peak,
		}
	}
	return meta
}

// flushMetrics writes the metrics textfile when one is configured.
func (a *app) flushMetrics() {
	if a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.log.Warnw("could not write metrics textfile", "path", a.cfg.Metrics.Textfile, "error", err)
	}
}

func (a *app) close() {
	a.flushMetrics()
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warnw("closing transcript cache", "error", err)
		}
	}
	_ = a.diag.Close()
	a.log.Sync()
}

type target struct {
	path   string
	format string
}

// outputTargets decides where each format is written. An explicit output
// path is used as-is for a single format; with several formats its
// extension is replaced by each format's. Without one, transcripts go next
// to the input (or into dir) named after the input.
func outputTargets(input, output, dir string, formats []string) ([]target, error) {
	if len(formats) == 0 {
		formats = []string{transcript.FormatText}
	}
	if err := transcript.ValidateFormats(formats); err != nil {
		return nil, err
	}

	if output != "" && len(formats) == 1 {
		return checkTargets(input, []target{{path: output, format: formats[0]}})
	}

	base := fileutil.ReplaceExt(input, "")
	if output != "" {
		base = fileutil.ReplaceExt(output, "")
	} else if dir != "" {
		base = filepath.Join(dir, filepath.Base(base))
	}

	targets := make([]target, len(formats))
	for i, f := range formats {
		targets[i] = target{path: base + "." + f, format: f}
	}
	return checkTargets(input, targets)
}

func checkTargets(input string, targets []target) ([]target, error) {
	in, err := filepath.Abs(input)
	if err != nil {
		return targets, nil
	}
	for _, tg := range targets {
		if out, err := filepath.Abs(tg.path); err == nil && out == in {
			return nil, fmt.Errorf("%w: %s", errOverwriteInput, tg.path)
		}
	}
	return targets, nil
}
