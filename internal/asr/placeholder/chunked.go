package placeholder

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/tiroq/scribe/internal/asr"
	"github.com/tiroq/scribe/internal/pcm"
)

const (
	// DefaultChunkSeconds is the chunk length: 32000 frames at 16 kHz.
	DefaultChunkSeconds = 2.0

	// NoSpeechText marks the fallback segment of an empty buffer.
	NoSpeechText = "[no speech detected]"
)

// Analysis is the per-chunk breakdown computed by Chunked.Analyze.
type Analysis struct {
	Chunks   []Chunk
	Overall  pcm.Stats
	Duration float64
}

// Chunked splits the buffer into fixed-length chunks and emits one segment
// per chunk whose RMS reaches Threshold. With the default threshold of 0
// every chunk is emitted. Chunks below the threshold are merged into the
// preceding segment so the sequence stays contiguous.
type Chunked struct {
	chunkSeconds float64
	threshold    float64
	workers      int
	text         TextSource
}

var _ asr.Policy = (*Chunked)(nil)

// ChunkedOption configures a Chunked policy.
type ChunkedOption func(*Chunked)

// WithChunkSeconds overrides the chunk length.
func WithChunkSeconds(s float64) ChunkedOption {
	return func(c *Chunked) {
		if s > 0 {
			c.chunkSeconds = s
		}
	}
}

// WithThreshold sets the RMS silence gate.
func WithThreshold(rms float64) ChunkedOption {
	return func(c *Chunked) {
		if rms >= 0 {
			c.threshold = rms
		}
	}
}

// WithWorkers bounds the number of chunks measured concurrently.
func WithWorkers(n int) ChunkedOption {
	return func(c *Chunked) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithTextSource replaces the Timeline text blocks.
func WithTextSource(ts TextSource) ChunkedOption {
	return func(c *Chunked) {
		if ts != nil {
			c.text = ts
		}
	}
}

// NewChunked creates a Chunked policy.
func NewChunked(opts ...ChunkedOption) *Chunked {
	c := &Chunked{
		chunkSeconds: DefaultChunkSeconds,
		workers:      runtime.GOMAXPROCS(0),
		text:         Timeline{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the policy identifier.
func (c *Chunked) Name() string { return "chunked" }

// Fingerprint encodes the settings that change the segments, such as
// "chunked:2s:t0:timeline". The worker count is left out since it never
// changes the output. A TextSource that does not implement
// asr.Fingerprinter is identified by its type only.
func (c *Chunked) Fingerprint() string {
	text := fmt.Sprintf("%T", c.text)
	if f, ok := c.text.(asr.Fingerprinter); ok {
		text = f.Fingerprint()
	}
	return fmt.Sprintf("chunked:%gs:t%g:%s", c.chunkSeconds, c.threshold, text)
}

// Analyze measures every chunk. Each chunk depends only on its own samples,
// so chunks are measured concurrently and stored by index.
func (c *Chunked) Analyze(buf *pcm.Buffer) Analysis {
	a := Analysis{Duration: buf.Duration()}
	frames := buf.Frames()
	if frames == 0 || buf.SampleRate <= 0 {
		return a
	}

	rate := float64(buf.SampleRate)
	size := int(math.Round(c.chunkSeconds * rate))
	if size < 1 {
		size = 1
	}
	n := (frames + size - 1) / size

	a.Chunks = make([]Chunk, n)
	var g errgroup.Group
	g.SetLimit(c.workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			start := i * size
			end := min(start+size, frames)
			chunk := Chunk{
				Index: i,
				Start: float64(start) / rate,
				End:   float64(end) / rate,
				Stats: pcm.Measure(buf.Slice(start, end)),
			}
			if i == n-1 {
				chunk.End = a.Duration
			}
			a.Chunks[i] = chunk
			return nil
		})
	}
	_ = g.Wait()

	a.Overall = pcm.Measure(buf.Samples)
	return a
}

// Segments implements asr.Policy.
func (c *Chunked) Segments(buf *pcm.Buffer) []asr.Segment {
	return c.segments(c.Analyze(buf))
}

func (c *Chunked) segments(a Analysis) []asr.Segment {
	var segs []asr.Segment
	for _, chunk := range a.Chunks {
		if chunk.Stats.RMS >= c.threshold {
			segs = append(segs, asr.Segment{
				Start: chunk.Start,
				End:   chunk.End,
				Text:  c.text.Text(chunk),
			})
			continue
		}
		if len(segs) > 0 {
			segs[len(segs)-1].End = chunk.End
		}
	}

	if len(segs) == 0 {
		return []asr.Segment{{Start: 0, End: a.Duration, Text: NoSpeechText}}
	}
	segs[0].Start = 0
	segs[len(segs)-1].End = a.Duration
	return segs
}
