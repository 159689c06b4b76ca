package watch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// State is the watcher's current activity.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateStopped    State = "stopped"
)

// Mode is how the watcher learns about new files.
type Mode string

const (
	ModeNotify  Mode = "fsnotify"
	ModePolling Mode = "polling"
)

// Status is a point-in-time snapshot of a watch run, written as JSON after
// every change.
type Status struct {
	Dir       string    `json:"dir"`
	State     State     `json:"state"`
	Mode      Mode      `json:"mode"`
	Current   string    `json:"current,omitempty"` // file being processed
	Pending   int       `json:"pending"`
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
	LastFile  string    `json:"last_file,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	PID       int       `json:"pid"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteStatus persists s to path with an atomic rename.
func WriteStatus(path string, s *Status) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return atomicWriteJSON(path, s)
}

// ReadStatus loads a snapshot written by WriteStatus.
func ReadStatus(path string) (*Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DefaultStatusPath returns ~/.cache/scribe/watch-status.json.
func DefaultStatusPath() string {
	return filepath.Join(os.Getenv("HOME"), ".cache", "scribe", "watch-status.json")
}

func atomicWriteJSON(path string, data interface{}) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "status-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	tmpFile = nil

	return os.Rename(tmpPath, path)
}
