package placeholder

import "github.com/tiroq/scribe/internal/pcm"

// Chunk is one fixed-length window of the buffer with its statistics.
type Chunk struct {
	Index int
	Start float64 // seconds
	End   float64 // seconds, clamped to the buffer duration
	Stats pcm.Stats
}

// TextSource supplies the text for an emitted chunk.
type TextSource interface {
	Text(c Chunk) string
}

// TextFunc adapts a plain function to TextSource.
type TextFunc func(c Chunk) string

// Text implements TextSource.
func (f TextFunc) Text(c Chunk) string { return f(c) }

// timelineBounds are the chunk start times (seconds) separating the blocks.
var timelineBounds = [...]float64{60, 120, 240, 360, 480, 600}

var timelineBlocks = [len(timelineBounds) + 1]string{
	"Welcome, everyone. Thank you for being here today as we begin this conversation.",
	"Let us start with a simple idea: the way we think shapes the way we live.",
	"Many of us carry old stories about who we are and what we are capable of.",
	"When we let go of those stories, we make room for something new to arrive.",
	"Notice how often the mind reaches for worry when it could reach for gratitude.",
	"Practice a few quiet minutes each day and watch how your attention changes.",
	"As we close, remember that every moment offers a fresh place to begin again.",
}

// Timeline selects one of seven fixed text blocks by the chunk's start time.
type Timeline struct{}

// Text implements TextSource.
func (Timeline) Text(c Chunk) string {
	for i, bound := range timelineBounds {
		if c.Start < bound {
			return timelineBlocks[i]
		}
	}
	return timelineBlocks[len(timelineBlocks)-1]
}

// Fingerprint implements asr.Fingerprinter.
func (Timeline) Fingerprint() string { return "timeline" }
