package fileutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteMetadata_Basic(t *testing.T) {
	dir := t.TempDir()
	txtPath := filepath.Join(dir, "lecture.txt")

	meta := &TranscriptMetadata{
		Version:         "1.2.3",
		Input:           "/videos/lecture.mp4",
		InputHash:       "abc123",
		Model:           "base",
		ModelResource:   "openai/whisper-base",
		Policy:          "coarse",
		DurationSeconds: 12.5,
		SegmentCount:    3,
		Outputs:         []string{txtPath},
		CreatedAt:       time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC),
	}

	metaPath, err := WriteMetadata(txtPath, meta)
	if err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	if want := filepath.Join(dir, "lecture.meta.json"); metaPath != want {
		t.Errorf("path = %q, want %q", metaPath, want)
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatalf("read meta file: %v", err)
	}

	var got TranscriptMetadata
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Model != "base" {
		t.Errorf("model = %q, want %q", got.Model, "base")
	}
	if got.Policy != "coarse" {
		t.Errorf("policy = %q, want %q", got.Policy, "coarse")
	}
	if got.SegmentCount != 3 {
		t.Errorf("segment_count = %d, want 3", got.SegmentCount)
	}
	if got.DurationSeconds != 12.5 {
		t.Errorf("duration_seconds = %v, want 12.5", got.DurationSeconds)
	}
}

func TestWriteMetadata_NilAudioOmitted(t *testing.T) {
	txtPath := filepath.Join(t.TempDir(), "clip.txt")

	metaPath, err := WriteMetadata(txtPath, &TranscriptMetadata{Version: "dev"})
	if err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["audio"]; ok {
		t.Error("expected no 'audio' field in JSON when Audio is nil")
	}
}

func TestWriteMetadata_NonExistentDir(t *testing.T) {
	badPath := filepath.Join(t.TempDir(), "nonexistent", "sub", "clip.txt")
	if _, err := WriteMetadata(badPath, &TranscriptMetadata{Version: "dev"}); err == nil {
		t.Fatal("expected error for non-existent directory")
	}
}

func TestWriteMetadata_SilenceHasFinitePeak(t *testing.T) {
	// json cannot encode -Inf; callers must clamp digital silence first.
	txtPath := filepath.Join(t.TempDir(), "clip.txt")
	meta := &TranscriptMetadata{Audio: &Audio{PeakDBFS: math.Inf(-1)}}
	if _, err := WriteMetadata(txtPath, meta); err == nil {
		t.Fatal("expected encode error for -Inf peak")
	}
	if _, err := os.Stat(MetadataPath(txtPath)); !os.IsNotExist(err) {
		t.Errorf("expected no sidecar after failed encode, stat err = %v", err)
	}
}

func TestMetadataPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"lecture.txt", "lecture.meta.json"},
		{"/path/to/file.srt", "/path/to/file.meta.json"},
		{"no-ext", "no-ext.meta.json"},
	}
	for _, tt := range tests {
		if got := MetadataPath(tt.input); got != tt.want {
			t.Errorf("MetadataPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
