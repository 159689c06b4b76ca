package pcm

import "math"

// Stats holds amplitude statistics over a run of samples.
type Stats struct {
	Peak  float64 // max |x|
	RMS   float64 // sqrt(sum(x^2)) / n
	Count int
}

// Measure computes Stats over samples. An empty slice yields zero Stats.
//
// RMS is sqrt(sum(x^2)) / n rather than sqrt(sum(x^2) / n); the silence gate
// thresholds used by the chunked policy are expressed on this scale.
func Measure(samples []float32) Stats {
	if len(samples) == 0 {
		return Stats{}
	}
	var sum, peak float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return Stats{
		Peak:  peak,
		RMS:   math.Sqrt(sum) / float64(len(samples)),
		Count: len(samples),
	}
}

// PeakDBFS returns the peak level in dBFS, or -Inf for digital silence.
func (s Stats) PeakDBFS() float64 {
	if s.Peak == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(s.Peak)
}
