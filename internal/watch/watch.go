// Package watch transcribes media files as they appear in an inbox
// directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tiroq/scribe/internal/diaglog"
	"github.com/tiroq/scribe/internal/logging"
	"github.com/tiroq/scribe/internal/metrics"
	"github.com/tiroq/scribe/internal/transcript"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 2 * time.Second

// DefaultStableScans is how many consecutive unchanged observations a file
// needs before it is processed.
const DefaultStableScans = 1

// Processor handles one stable input file.
type Processor interface {
	Process(ctx context.Context, path string) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, path string) error

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, path string) error { return f(ctx, path) }

// fileKey identifies one version of a file. A rewritten file gets a new key
// and is processed again.
type fileKey struct {
	size    int64
	modTime time.Time
}

// observation tracks how long a file version has stayed unchanged.
type observation struct {
	key    fileKey
	streak int
}

// Watcher scans dir for supported media files. A file is handed to the
// processor once its size and modification time have stayed unchanged for
// the configured number of consecutive scans, so files still being copied
// in are left alone. Files are processed one at a time in name order.
type Watcher struct {
	dir        string
	proc       Processor
	poll       time.Duration
	stable     int
	statusPath string
	polling    bool

	log     *logging.Logger
	diag    *diaglog.Logger
	metrics *metrics.Metrics

	observed map[string]observation
	done     map[string]fileKey // processed or failed
	status   Status
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithPollInterval sets the scan interval.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.poll = d
		}
	}
}

// WithStableScans sets how many unchanged rescans a file needs.
func WithStableScans(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.stable = n
		}
	}
}

// WithStatusFile writes a Status snapshot to path after every change.
func WithStatusFile(path string) Option {
	return func(w *Watcher) { w.statusPath = path }
}

// WithPollingOnly skips fsnotify and relies on the scan interval alone.
func WithPollingOnly() Option {
	return func(w *Watcher) { w.polling = true }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithDiagLog records file events in the diagnostic log.
func WithDiagLog(d *diaglog.Logger) Option {
	return func(w *Watcher) {
		if d != nil {
			w.diag = d
		}
	}
}

// WithMetrics publishes the pending file gauge.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

// New creates a Watcher for dir.
func New(dir string, proc Processor, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		proc:     proc,
		poll:     DefaultPollInterval,
		stable:   DefaultStableScans,
		log:      logging.Nop(),
		diag:     diaglog.NewNoOp(),
		observed: make(map[string]observation),
		done:     make(map[string]fileKey),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.status = Status{Dir: dir, State: StateIdle, Mode: ModeNotify, PID: os.Getpid()}
	return w
}

// Status returns a copy of the current snapshot.
func (w *Watcher) Status() Status { return w.status }

// Run watches until ctx is canceled. It returns an error only when dir
// cannot be read at startup.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch: %s is not a directory", w.dir)
	}

	events, errs, closeNotify := w.startNotify()
	defer closeNotify()

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	w.log.Infow("watching for media files", "dir", w.dir, "mode", w.status.Mode, "poll", w.poll)
	w.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			w.status.State = StateStopped
			w.status.Current = ""
			w.writeStatus()
			w.log.Infow("watcher stopped", "processed", w.status.Processed, "failed", w.status.Failed)
			return nil

		case event, ok := <-events:
			if !ok {
				w.log.Warnw("fsnotify watcher closed, switching to polling")
				events, errs = nil, nil
				w.fallBack()
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				w.scan(ctx)
			}

		case err, ok := <-errs:
			if !ok {
				w.log.Warnw("fsnotify error channel closed, switching to polling")
				events, errs = nil, nil
				w.fallBack()
				continue
			}
			w.log.Warnw("fsnotify error", "error", err)

		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

// startNotify subscribes to dir. On failure the watcher runs in polling
// mode and both channels are nil.
func (w *Watcher) startNotify() (<-chan fsnotify.Event, <-chan error, func()) {
	noop := func() {}
	if w.polling {
		w.fallBack()
		return nil, nil, noop
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warnw("fsnotify not available, falling back to polling", "error", err)
		w.fallBack()
		return nil, nil, noop
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		w.log.Warnw("failed to watch directory, falling back to polling", "dir", w.dir, "error", err)
		w.fallBack()
		return nil, nil, noop
	}
	return fw.Events, fw.Errors, func() { fw.Close() }
}

func (w *Watcher) fallBack() {
	w.status.Mode = ModePolling
	w.diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentWatcher,
		Event:     diaglog.EventPollingStarted,
		Payload:   map[string]interface{}{"dir": w.dir, "interval_ms": w.poll.Milliseconds()},
	})
}

// scan lists candidates and processes every file that is stable.
func (w *Watcher) scan(ctx context.Context) {
	current, err := w.list()
	if err != nil {
		w.log.Warnw("could not list watch directory", "dir", w.dir, "error", err)
		return
	}

	var ready []string
	pending := 0
	observed := make(map[string]observation, len(current))
	for name, key := range current {
		prev, seen := w.observed[name]
		obs := observation{key: key}
		if seen && prev.key == key {
			obs.streak = prev.streak + 1
		}
		observed[name] = obs

		if done, ok := w.done[name]; ok && done == key {
			continue
		}
		pending++
		if !seen {
			w.log.Debugw("file detected", "file", name, "bytes", key.size)
			w.diag.Log(diaglog.LogEntry{
				Component: diaglog.ComponentWatcher,
				Event:     diaglog.EventFileDetected,
				Payload:   map[string]interface{}{"file": name},
			})
		}
		if obs.streak >= w.stable && key.size > 0 {
			ready = append(ready, name)
		}
	}
	w.observed = observed
	for name := range w.done {
		if _, ok := current[name]; !ok {
			delete(w.done, name)
		}
	}
	sort.Strings(ready)

	w.setPending(pending)
	w.writeStatus()

	for _, name := range ready {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, name, current[name])
		pending--
		w.setPending(pending)
	}
	if len(ready) > 0 {
		w.status.State = StateIdle
		w.status.Current = ""
		w.writeStatus()
	}
}

func (w *Watcher) process(ctx context.Context, name string, key fileKey) {
	path := filepath.Join(w.dir, name)
	w.status.State = StateProcessing
	w.status.Current = name
	w.writeStatus()

	w.log.Infow("processing file", "file", path)
	start := time.Now()
	err := w.proc.Process(ctx, path)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Interrupted by shutdown: leave it for the next run.
		return
	}

	w.done[name] = key
	w.status.LastFile = name
	entry := diaglog.LogEntry{
		Component:  diaglog.ComponentWatcher,
		DurationMs: time.Since(start).Milliseconds(),
		Payload:    map[string]interface{}{"file": name},
	}
	if err != nil {
		w.status.Failed++
		w.status.LastError = err.Error()
		entry.Event = diaglog.EventFileFailed
		entry.Reason = err.Error()
		w.log.Errorw("file failed", "file", path, "error", err)
	} else {
		w.status.Processed++
		w.status.LastError = ""
		entry.Event = diaglog.EventFileProcessed
		w.log.Infow("file processed", "file", path, "elapsed", time.Since(start))
	}
	w.diag.Log(entry)
}

// ignoredExts are files scribe writes next to its inputs, plus partial
// downloads. The media whitelist is advisory, so every other regular file is
// handed to the processor.
var ignoredExts = func() map[string]bool {
	m := map[string]bool{
		".tmp":        true,
		".part":       true,
		".crdownload": true,
		".pid":        true,
		".ndjson":     true,
		".db":         true,
		".prom":       true,
		".yaml":       true,
	}
	for _, f := range transcript.Formats {
		m["."+f] = true
	}
	return m
}()

func ignored(name string) bool {
	return ignoredExts[strings.ToLower(filepath.Ext(name))]
}

// list returns the candidate regular files directly inside dir.
func (w *Watcher) list() (map[string]fileKey, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}
	files := make(map[string]fileKey, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if ignored(name) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files[name] = fileKey{size: info.Size(), modTime: info.ModTime()}
	}
	return files, nil
}

func (w *Watcher) setPending(n int) {
	w.status.Pending = n
	w.metrics.SetWatchPending(n)
}

func (w *Watcher) writeStatus() {
	if w.statusPath == "" {
		return
	}
	w.status.Timestamp = time.Now()
	if err := WriteStatus(w.statusPath, &w.status); err != nil {
		w.log.Warnw("could not write watch status", "path", w.statusPath, "error", err)
	}
}
