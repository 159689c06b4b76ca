// Package fileutil provides file naming helpers and the transcript sidecar.
package fileutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TranscriptMetadata is the sidecar written alongside each transcript.
type TranscriptMetadata struct {
	Version         string    `json:"version"`
	Input           string    `json:"input"`
	InputHash       string    `json:"input_hash,omitempty"`
	Model           string    `json:"model"`
	ModelResource   string    `json:"model_resource"`
	Policy          string    `json:"policy"`
	DurationSeconds float64   `json:"duration_seconds"`
	SegmentCount    int       `json:"segment_count"`
	Outputs         []string  `json:"outputs"`
	Cached          bool      `json:"cached"`
	CreatedAt       time.Time `json:"created_at"`
	Audio           *Audio    `json:"audio,omitempty"`
}

// Audio describes the decoded WAV the transcript was built from.
type Audio struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	BitDepth   int     `json:"bit_depth"`
	Format     string  `json:"format"`
	PeakDBFS   float64 `json:"peak_dbfs"`
}

// WriteMetadata writes a <basepath>.meta.json sidecar next to
// transcriptPath using temp file + rename.
func WriteMetadata(transcriptPath string, meta *TranscriptMetadata) (string, error) {
	metaPath := MetadataPath(transcriptPath)
	dir := filepath.Dir(metaPath)

	tmpFile, err := os.CreateTemp(dir, "meta-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create metadata temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(meta); err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return "", fmt.Errorf("sync metadata: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("close metadata temp: %w", err)
	}
	success = true

	if err := os.Rename(tmpPath, metaPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename metadata: %w", err)
	}
	return metaPath, nil
}

// MetadataPath returns <basepath>.meta.json for a transcript path.
func MetadataPath(transcriptPath string) string {
	return ReplaceExt(transcriptPath, ".meta.json")
}
