// Package diaglog provides structured NDJSON diagnostic logging for scribe.
// It is enabled by SCRIBE_DEBUG=true or the debug config key. When disabled,
// all Log calls are no-ops and no file is created.
package diaglog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ── Component labels ─────────────────────────────────────────────────────────

const (
	ComponentPipeline   = "pipeline"
	ComponentExtractor  = "extractor"
	ComponentDecoder    = "decoder"
	ComponentAnalyzer   = "analyzer"
	ComponentCache      = "cache"
	ComponentWatcher    = "watcher"
	ComponentDiagExport = "diag-export"
	ComponentCLI        = "scribe-cli"
)

// ── Event names ──────────────────────────────────────────────────────────────

const (
	EventRunStart       = "run_start"
	EventRunDone        = "run_done"
	EventStageStart     = "stage_start"
	EventStageDone      = "stage_done"
	EventStageFailed    = "stage_failed"
	EventCacheHit       = "cache_hit"
	EventCacheMiss      = "cache_miss"
	EventCleanupFailed  = "cleanup_failed"
	EventFileDetected   = "file_detected"
	EventFileProcessed  = "file_processed"
	EventFileFailed     = "file_failed"
	EventPollingStarted = "polling_started"
)

// LogEntry is one structured event record written as a single JSON line.
type LogEntry struct {
	Timestamp  string      `json:"ts"` // RFC3339Nano
	Component  string      `json:"component"`
	Event      string      `json:"event"`
	RunID      string      `json:"run_id,omitempty"`
	Stage      string      `json:"stage,omitempty"`
	DurationMs int64       `json:"duration_ms,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	Payload    interface{} `json:"payload,omitempty"` // redacted before write
}

// Logger writes LogEntry values to a rolling NDJSON file. When disabled every
// Log call is a no-op.
type Logger struct {
	rw      *rollingWriter
	mu      sync.Mutex
	enabled bool
}

// maxLogSize caps the diagnostic log file.
const maxLogSize = 10 * 1024 * 1024

// New opens (or creates) the NDJSON log file at path when enabled is true.
// Otherwise path is ignored and a no-op logger is returned.
func New(path string, enabled bool) (*Logger, error) {
	if !enabled {
		return &Logger{enabled: false}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	rw, err := newRollingWriter(path, maxLogSize)
	if err != nil {
		return nil, err
	}
	return &Logger{rw: rw, enabled: true}, nil
}

// Log serialises entry to JSON, appends a newline, and writes to the rolling
// file. Sensitive payload fields are redacted before serialisation.
func (l *Logger) Log(entry LogEntry) {
	if l == nil || !l.enabled {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if entry.Payload != nil {
		entry.Payload = Redact(entry.Payload)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.rw.Write(data)
}

// Enabled reports whether entries are written.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// Close flushes and closes the underlying file. Safe on nil/disabled logger.
func (l *Logger) Close() error {
	if l == nil || !l.enabled || l.rw == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rw.close()
}

// IsDebugEnabled reports whether SCRIBE_DEBUG is set to "true".
func IsDebugEnabled() bool {
	return os.Getenv("SCRIBE_DEBUG") == "true"
}

// DefaultPath returns the log location under the user cache directory,
// falling back to the system temp directory.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "scribe", "scribe-debug.ndjson")
}

// NewNoOp returns a logger where every Log call is a no-op. Use as a safe
// fallback when New fails (e.g., disk full, permissions error).
func NewNoOp() *Logger {
	return &Logger{enabled: false}
}
