package pcm

import (
	"math"
	"testing"
)

func TestMeasure(t *testing.T) {
	s := Measure([]float32{0.5, -1, 0, 0})
	if s.Peak != 1 {
		t.Errorf("expected peak 1, got %v", s.Peak)
	}
	want := math.Sqrt(1.25) / 4
	if math.Abs(s.RMS-want) > 1e-12 {
		t.Errorf("expected rms %v, got %v", want, s.RMS)
	}
	if s.Count != 4 {
		t.Errorf("expected count 4, got %d", s.Count)
	}
}

func TestMeasureEmpty(t *testing.T) {
	s := Measure(nil)
	if s != (Stats{}) {
		t.Errorf("expected zero stats, got %+v", s)
	}
	if !math.IsInf(s.PeakDBFS(), -1) {
		t.Errorf("expected -Inf dBFS for silence, got %v", s.PeakDBFS())
	}
}

func TestBufferSlice(t *testing.T) {
	b := &Buffer{Samples: []float32{1, 2, 3, 4, 5}, SampleRate: 5}
	if got := b.Slice(3, 10); len(got) != 2 || got[0] != 4 {
		t.Errorf("expected clamped tail [4 5], got %v", got)
	}
	if got := b.Slice(4, 2); got != nil {
		t.Errorf("expected nil for inverted range, got %v", got)
	}
	if b.Duration() != 1 {
		t.Errorf("expected duration 1, got %v", b.Duration())
	}
	var nilBuf *Buffer
	if nilBuf.Duration() != 0 || nilBuf.Frames() != 0 {
		t.Error("nil buffer should report zero frames and duration")
	}
}
