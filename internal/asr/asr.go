// Package asr defines the transcript model shared by every segmentation
// policy, the model selector, and the policy registry.
package asr

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tiroq/scribe/internal/pcm"
)

// Segment is one time-bounded piece of transcript text. Times are seconds
// from the start of the audio.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// StartDuration returns Start as a time.Duration.
func (s Segment) StartDuration() time.Duration { return secondsToDuration(s.Start) }

// EndDuration returns End as a time.Duration.
func (s Segment) EndDuration() time.Duration { return secondsToDuration(s.End) }

// Transcript is the complete result of one pipeline run. It is read-only
// once built by NewTranscript.
type Transcript struct {
	Segments []Segment
	FullText string
	Duration float64 // seconds
	Model    string
	Policy   string
}

// NewTranscript builds a Transcript and derives FullText: each segment's
// text trimmed, joined by single spaces, in segment order.
func NewTranscript(segments []Segment, duration float64, model, policy string) *Transcript {
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = strings.TrimSpace(seg.Text)
	}
	return &Transcript{
		Segments: segments,
		FullText: strings.Join(texts, " "),
		Duration: duration,
		Model:    model,
		Policy:   policy,
	}
}

// Policy turns a decoded buffer into an ordered, contiguous segment sequence
// covering [0, buf.Duration()]. Implementations must be deterministic and
// must not fail on any valid buffer, including an empty one.
type Policy interface {
	Name() string
	Segments(buf *pcm.Buffer) []Segment
}

// Fingerprinter is implemented by policies whose output depends on settings
// beyond their name.
type Fingerprinter interface {
	Fingerprint() string
}

// Fingerprint identifies p together with the settings that shape its output.
// Policies that do not implement Fingerprinter are identified by name.
func Fingerprint(p Policy) string {
	if f, ok := p.(Fingerprinter); ok {
		return f.Fingerprint()
	}
	return p.Name()
}

// Validate checks the segment sequence invariants: the first segment starts
// at 0, every segment ends where the next begins, and the last segment ends
// at duration.
func Validate(segments []Segment, duration float64) error {
	if len(segments) == 0 {
		return fmt.Errorf("asr: empty segment sequence")
	}
	if segments[0].Start != 0 {
		return fmt.Errorf("asr: first segment starts at %v, want 0", segments[0].Start)
	}
	for i, seg := range segments {
		if seg.End < seg.Start {
			return fmt.Errorf("asr: segment %d ends (%v) before it starts (%v)", i, seg.End, seg.Start)
		}
		if i > 0 && segments[i-1].End != seg.Start {
			return fmt.Errorf("asr: gap between segment %d (end %v) and %d (start %v)", i-1, segments[i-1].End, i, seg.Start)
		}
	}
	if last := segments[len(segments)-1]; last.End != duration {
		return fmt.Errorf("asr: last segment ends at %v, want %v", last.End, duration)
	}
	return nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}
