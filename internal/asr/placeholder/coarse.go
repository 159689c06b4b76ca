package placeholder

import (
	"github.com/tiroq/scribe/internal/asr"
	"github.com/tiroq/scribe/internal/pcm"
)

// CoarseThreshold is the duration in seconds above which Coarse emits the
// three-segment layout.
const CoarseThreshold = 10.0

// Fixed boundaries and texts of the long-audio layout.
var coarseLayout = []asr.Segment{
	{Start: 0.0, End: 4.5, Text: "Hello everyone, this is a test of the Wayne Dyer video transcription tool."},
	{Start: 4.5, End: 8.8, Text: "Today we will explore the power of intention and how our thoughts create our reality."},
	{Start: 8.8, Text: "Remember, when you change the way you look at things, the things you look at change."},
}

// ShortText is the single segment text used for audio up to CoarseThreshold.
const ShortText = "Short audio test - this is a placeholder transcription."

// Coarse picks a segment layout from the duration alone.
type Coarse struct{}

var _ asr.Policy = Coarse{}

// Name returns the policy identifier.
func (Coarse) Name() string { return "coarse" }

// Segments returns three fixed segments when the buffer is longer than
// CoarseThreshold, otherwise one segment spanning the whole buffer.
func (Coarse) Segments(buf *pcm.Buffer) []asr.Segment {
	duration := buf.Duration()
	if duration <= CoarseThreshold {
		return []asr.Segment{{Start: 0, End: duration, Text: ShortText}}
	}

	segs := make([]asr.Segment, len(coarseLayout))
	copy(segs, coarseLayout)
	segs[len(segs)-1].End = duration
	return segs
}
