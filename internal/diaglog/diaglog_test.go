package diaglog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readEntries(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var out []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogWritesOneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scribe.ndjson")
	l, err := New(path, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Log(LogEntry{Component: ComponentPipeline, Event: EventRunStart, RunID: "r1"})
	l.Log(LogEntry{Component: ComponentExtractor, Event: EventStageDone, RunID: "r1", Stage: "extract", DurationMs: 42})
	l.Log(LogEntry{Component: ComponentPipeline, Event: EventStageFailed, RunID: "r1", Stage: "decode", Reason: "pcm: bad header"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readEntries(t, path)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0]["ts"] == nil {
		t.Error("timestamp not filled in")
	}
	if entries[1]["stage"] != "extract" || entries[1]["duration_ms"] != float64(42) {
		t.Errorf("stage timing not recorded: %v", entries[1])
	}
	if entries[2]["reason"] != "pcm: bad header" {
		t.Errorf("reason not recorded: %v", entries[2])
	}
	if _, ok := entries[0]["payload"]; ok {
		t.Error("empty payload should be omitted")
	}
}

func TestLogRedactsPayload(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "scribe.ndjson")
	l, err := New(path, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Log(LogEntry{
		Component: ComponentPipeline,
		Event:     EventRunStart,
		Payload:   map[string]interface{}{"input": filepath.Join(home, "talks", "keynote.mp4")},
	})
	_ = l.Close()

	payload := readEntries(t, path)[0]["payload"].(map[string]interface{})
	if want := "~" + string(os.PathSeparator) + filepath.Join("talks", "keynote.mp4"); payload["input"] != want {
		t.Errorf("expected %q, got %v", want, payload["input"])
	}
}

func TestRollingKeepsOneBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roll.ndjson")
	rw, err := newRollingWriter(path, 1024)
	if err != nil {
		t.Fatalf("newRollingWriter: %v", err)
	}
	defer rw.close()

	for _, c := range []string{"a", "b", "c"} {
		if _, err := rw.Write([]byte(strings.Repeat(c, 511) + "\n")); err != nil {
			t.Fatalf("write %s: %v", c, err)
		}
	}

	live, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(live) != 512 || live[0] != 'c' {
		t.Errorf("live file should hold only the last record, got %d bytes starting %q", len(live), live[:1])
	}
	backup, err := os.ReadFile(path + backupSuffix)
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if len(backup) != 1024 || backup[0] != 'a' || backup[512] != 'b' {
		t.Errorf("backup should hold the first two records, got %d bytes", len(backup))
	}
}

func TestRollingReplacesOldBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roll.ndjson")
	rw, err := newRollingWriter(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	defer rw.close()

	for _, rec := range []string{"first\n", "second\n", "third\n"} {
		if _, err := rw.Write([]byte(rec)); err != nil {
			t.Fatal(err)
		}
	}
	backup, _ := os.ReadFile(path + backupSuffix)
	if string(backup) != "second\n" {
		t.Errorf("expected backup %q, got %q", "second\n", backup)
	}
}

func TestRollingOversizedRecordWrittenWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roll.ndjson")
	rw, err := newRollingWriter(path, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer rw.close()

	rec := strings.Repeat("z", 20) + "\n"
	if _, err := rw.Write([]byte(rec)); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != rec {
		t.Errorf("expected oversized record intact, got %d bytes", len(data))
	}
	if _, err := os.Stat(path + backupSuffix); !os.IsNotExist(err) {
		t.Error("rotation of an empty file should not create a backup")
	}
}

func TestRedact(t *testing.T) {
	home := "/home/ana"
	in := map[string]interface{}{
		"Password": "hunter2",
		"api_key":  "k-123",
		"input":    "/home/ana/media/clip.mov",
		"other":    "/home/anabel/clip.mov",
		"scratch":  "/tmp/x.wav",
		"args":     []string{"-i", "/home/ana/a.mp4"},
		"nested": map[string]interface{}{
			"token": "abc",
			"dir":   "/home/ana",
		},
		"frames": 42,
	}

	out := redact(in, home).(map[string]interface{})
	if out["Password"] != redacted || out["api_key"] != redacted {
		t.Errorf("credentials not masked: %v %v", out["Password"], out["api_key"])
	}
	if out["input"] != "~/media/clip.mov" {
		t.Errorf("home not shortened: %v", out["input"])
	}
	if out["other"] != "/home/anabel/clip.mov" {
		t.Errorf("sibling directory must not match home prefix: %v", out["other"])
	}
	if out["scratch"] != "/tmp/x.wav" || out["frames"] != 42 {
		t.Errorf("unrelated values changed: %v", out)
	}
	if args := out["args"].([]interface{}); args[1] != "~/a.mp4" {
		t.Errorf("string slice not redacted: %v", args)
	}
	nested := out["nested"].(map[string]interface{})
	if nested["token"] != redacted || nested["dir"] != "~" {
		t.Errorf("nested map not redacted: %v", nested)
	}
	if in["input"] != "/home/ana/media/clip.mov" {
		t.Error("input map was mutated")
	}
}

func TestDisabledLoggerCreatesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noop.ndjson")
	l, err := New(path, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Enabled() {
		t.Error("expected disabled logger")
	}
	l.Log(LogEntry{Component: ComponentPipeline, Event: EventRunStart})
	_ = l.Close()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("log file should not exist when disabled")
	}
}

func TestIsDebugEnabled(t *testing.T) {
	t.Setenv("SCRIBE_DEBUG", "true")
	if !IsDebugEnabled() {
		t.Error("expected debug enabled with SCRIBE_DEBUG=true")
	}
	t.Setenv("SCRIBE_DEBUG", "1")
	if IsDebugEnabled() {
		t.Error("only the literal \"true\" enables debug")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Log(LogEntry{Component: ComponentPipeline, Event: EventRunStart})
	if l.Enabled() {
		t.Error("nil logger reports enabled")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close on nil logger: %v", err)
	}
}
