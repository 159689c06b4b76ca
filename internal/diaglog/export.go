package diaglog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Version is set from the main package; defaults to "dev".
var Version = "dev"

// DiagBundle is the first line of an export file.
type DiagBundle struct {
	ExportedAt    string   `json:"exported_at"`
	ScribeVersion string   `json:"scribe_version"`
	GoVersion     string   `json:"go_version"`
	OS            string   `json:"os"`
	Arch          string   `json:"arch"`
	LogFiles      []string `json:"log_files"`
	EntryCount    int      `json:"entry_count"`
	ParseErrors   int      `json:"parse_errors"`
	Runs          int      `json:"runs"`
}

// maxLineSize bounds a single NDJSON record read back during export.
const maxLineSize = 1024 * 1024

// Export bundles the diagnostic log at logPath into
// dest/scribe-diag-<timestamp>.ndjson: a DiagBundle header line followed by
// the rotated backup (if any) and then the live log, oldest first. Lines
// that are not valid JSON are copied anyway and counted in ParseErrors.
// It returns the bundle path and the number of log lines copied.
func Export(logPath, dest string) (path string, lines int, err error) {
	sources := []string{logPath + backupSuffix, logPath}
	var (
		found []string
		raw   [][]byte
		bad   int
		runs  = make(map[string]struct{})
	)
	for _, src := range sources {
		got, err := readLines(src)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", 0, err
		}
		found = append(found, src)
		for _, line := range got {
			var entry LogEntry
			if json.Unmarshal(line, &entry) != nil {
				bad++
			} else if entry.RunID != "" {
				runs[entry.RunID] = struct{}{}
			}
			raw = append(raw, line)
		}
	}
	if len(found) == 0 {
		return "", 0, fmt.Errorf("log file not found at %s: %w", logPath, os.ErrNotExist)
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", 0, fmt.Errorf("output directory could not be created: %w", err)
	}
	outPath := filepath.Join(dest, "scribe-diag-"+time.Now().UTC().Format("20060102T150405")+".ndjson")

	bundle := DiagBundle{
		ExportedAt:    time.Now().UTC().Format(time.RFC3339),
		ScribeVersion: Version,
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		LogFiles:      found,
		EntryCount:    len(raw),
		ParseErrors:   bad,
		Runs:          len(runs),
	}
	if err := writeBundle(outPath, bundle, raw); err != nil {
		return "", 0, err
	}
	return outPath, len(raw), nil
}

func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("log file unreadable: %w", err)
	}
	defer func() { _ = f.Close() }()

	var out [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		out = append(out, append([]byte(nil), scanner.Bytes()...))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("log file unreadable: %w", err)
	}
	return out, nil
}

func writeBundle(path string, bundle DiagBundle, lines [][]byte) (err error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("output file could not be created: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(out)
	if err := json.NewEncoder(w).Encode(bundle); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}
