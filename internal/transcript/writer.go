// Package transcript renders an asr.Transcript as plain text, SubRip,
// WebVTT, or JSON and writes the result atomically.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tiroq/scribe/internal/asr"
)

// Output formats.
const (
	FormatText = "txt"
	FormatSRT  = "srt"
	FormatVTT  = "vtt"
	FormatJSON = "json"
)

// Formats lists every supported output format.
var Formats = []string{FormatText, FormatSRT, FormatVTT, FormatJSON}

// UnknownFormatError reports a format name Render does not know.
type UnknownFormatError struct {
	Format string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown format %q", e.Format)
}

// ValidateFormats returns an error for the first unsupported name.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if !isKnown(f) {
			return &UnknownFormatError{Format: f}
		}
	}
	return nil
}

func isKnown(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Render returns the transcript in the given format.
func Render(format string, t *asr.Transcript) ([]byte, error) {
	switch format {
	case FormatText:
		return renderText(t), nil
	case FormatSRT:
		return renderSRT(t), nil
	case FormatVTT:
		return renderVTT(t), nil
	case FormatJSON:
		return renderJSON(t)
	}
	return nil, &UnknownFormatError{Format: format}
}

// Write renders t in format and writes it to path.
func Write(path, format string, t *asr.Transcript) error {
	data, err := Render(format, t)
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

// WriteText writes a plain text transcript with one segment per line, each
// prefixed by its start time in [HH:MM:SS] format.
func WriteText(path string, t *asr.Transcript) error {
	return atomicWrite(path, renderText(t))
}

// WriteSRT writes a SubRip (.srt) subtitle file.
func WriteSRT(path string, t *asr.Transcript) error {
	return atomicWrite(path, renderSRT(t))
}

// WriteVTT writes a WebVTT (.vtt) subtitle file.
func WriteVTT(path string, t *asr.Transcript) error {
	return atomicWrite(path, renderVTT(t))
}

// WriteJSON writes the transcript as an indented JSON document.
func WriteJSON(path string, t *asr.Transcript) error {
	data, err := renderJSON(t)
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

// WriteAll writes the transcript in every requested format. basePath is the
// file path without extension (e.g. "/videos/lecture"). If formats is empty
// it defaults to ["txt"]. Formats that fail do not stop the others; the
// returned paths are the files actually written.
func WriteAll(basePath string, t *asr.Transcript, formats []string) ([]string, error) {
	if len(formats) == 0 {
		formats = []string{FormatText}
	}
	var (
		written []string
		errs    []string
	)
	for _, f := range formats {
		data, err := Render(f, t)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		path := basePath + "." + f
		if err := atomicWrite(path, data); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", f, err))
			continue
		}
		written = append(written, path)
	}
	if len(errs) > 0 {
		return written, fmt.Errorf("transcript write errors: %s", strings.Join(errs, "; "))
	}
	return written, nil
}

func renderText(t *asr.Transcript) []byte {
	var b strings.Builder
	for _, seg := range t.Segments {
		fmt.Fprintf(&b, "[%s] %s\n", formatTextTimestamp(seg.StartDuration()), strings.TrimSpace(seg.Text))
	}
	return []byte(b.String())
}

func renderSRT(t *asr.Transcript) []byte {
	var b strings.Builder
	for i, seg := range t.Segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", formatSRTTimestamp(seg.StartDuration()), formatSRTTimestamp(seg.EndDuration()))
		fmt.Fprintf(&b, "%s\n", strings.TrimSpace(seg.Text))
	}
	return []byte(b.String())
}

func renderVTT(t *asr.Transcript) []byte {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for _, seg := range t.Segments {
		b.WriteByte('\n')
		fmt.Fprintf(&b, "%s --> %s\n", formatVTTTimestamp(seg.StartDuration()), formatVTTTimestamp(seg.EndDuration()))
		fmt.Fprintf(&b, "%s\n", strings.TrimSpace(seg.Text))
	}
	return []byte(b.String())
}

type jsonSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type jsonTranscript struct {
	Text     string        `json:"text"`
	Duration float64       `json:"duration"`
	Model    string        `json:"model,omitempty"`
	Policy   string        `json:"policy,omitempty"`
	Segments []jsonSegment `json:"segments"`
}

func renderJSON(t *asr.Transcript) ([]byte, error) {
	doc := jsonTranscript{
		Text:     t.FullText,
		Duration: t.Duration,
		Model:    t.Model,
		Policy:   t.Policy,
		Segments: make([]jsonSegment, len(t.Segments)),
	}
	for i, seg := range t.Segments {
		doc.Segments[i] = jsonSegment{Start: seg.Start, End: seg.End, Text: seg.Text}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding transcript: %w", err)
	}
	return append(data, '\n'), nil
}

// formatTextTimestamp formats a duration as HH:MM:SS for plain text output.
func formatTextTimestamp(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatSRTTimestamp formats a duration as HH:MM:SS,mmm (SRT subtitle format).
func formatSRTTimestamp(d time.Duration) string {
	h, m, s, ms := splitDuration(d)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// formatVTTTimestamp formats a duration as HH:MM:SS.mmm (WebVTT format).
func formatVTTTimestamp(d time.Duration) string {
	h, m, s, ms := splitDuration(d)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func splitDuration(d time.Duration) (h, m, s, ms int) {
	total := int(d.Round(time.Millisecond).Milliseconds())
	return total / 3600000, total / 60000 % 60, total / 1000 % 60, total % 1000
}

// atomicWrite writes data to path atomically using a temp file + rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, "transcript-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("syncing transcript: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing transcript: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming transcript: %w", err)
	}
	return nil
}
