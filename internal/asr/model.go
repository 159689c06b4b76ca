package asr

import (
	"fmt"
	"strings"
)

// Model selects a Whisper model size. It is configuration only: the
// placeholder policies record it in the transcript but never load it.
type Model int

const (
	ModelTiny Model = iota
	ModelBase
	ModelSmall
	ModelMedium
	ModelLarge
)

// DefaultModel is used when no model is configured.
const DefaultModel = ModelBase

// UnsupportedModelError is returned by ParseModel for unknown names.
type UnsupportedModelError struct {
	Value string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("asr: unsupported model size %q (use: tiny, base, small, medium, large)", e.Value)
}

var models = [...]struct {
	name        string
	resource    string
	description string
}{
	ModelTiny:   {"tiny", "openai/whisper-tiny", "Tiny (fastest, least accurate)"},
	ModelBase:   {"base", "openai/whisper-base", "Base (good balance of speed/accuracy)"},
	ModelSmall:  {"small", "openai/whisper-small", "Small (better accuracy, slower)"},
	ModelMedium: {"medium", "openai/whisper-medium", "Medium (high accuracy, slower)"},
	ModelLarge:  {"large", "openai/whisper-large-v3", "Large (highest accuracy, slowest)"},
}

// ParseModel maps a case-insensitive model name to a Model.
func ParseModel(s string) (Model, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, info := range models {
		if info.name == name {
			return Model(m), nil
		}
	}
	return 0, &UnsupportedModelError{Value: s}
}

// Name returns the short model name ("base").
func (m Model) Name() string {
	if !m.valid() {
		return fmt.Sprintf("model(%d)", int(m))
	}
	return models[m].name
}

// String implements fmt.Stringer.
func (m Model) String() string { return m.Name() }

// Resource returns the remote model identifier ("openai/whisper-base").
func (m Model) Resource() string {
	if !m.valid() {
		return ""
	}
	return models[m].resource
}

// Description returns a human-readable speed/accuracy summary.
func (m Model) Description() string {
	if !m.valid() {
		return ""
	}
	return models[m].description
}

func (m Model) valid() bool {
	return m >= 0 && int(m) < len(models)
}
