package placeholder

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/tiroq/scribe/internal/asr"
	"github.com/tiroq/scribe/internal/pcm"
)

func TestChunkedTwoSecondsSilence(t *testing.T) {
	buf := &pcm.Buffer{Samples: make([]float32, 32000), SampleRate: 16000, Channels: 1, BitDepth: 16}
	segs := NewChunked().Segments(buf)

	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Start != 0 || segs[0].End != 2.0 {
		t.Errorf("expected [0, 2], got [%v, %v]", segs[0].Start, segs[0].End)
	}
	if segs[0].Text != timelineBlocks[0] {
		t.Errorf("unexpected text %q", segs[0].Text)
	}
}

func TestChunkedEmptyBufferFallback(t *testing.T) {
	buf := &pcm.Buffer{SampleRate: 16000, Channels: 1, BitDepth: 16}
	segs := NewChunked().Segments(buf)

	if len(segs) != 1 {
		t.Fatalf("expected 1 fallback segment, got %d", len(segs))
	}
	if segs[0].Start != 0 || segs[0].End != 0 || segs[0].Text != NoSpeechText {
		t.Errorf("unexpected fallback segment %+v", segs[0])
	}
}

func TestChunkedClampsLastChunk(t *testing.T) {
	segs := NewChunked().Segments(silence(5))

	want := [][2]float64{{0, 2}, {2, 4}, {4, 5}}
	if len(segs) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(segs))
	}
	for i, w := range want {
		if segs[i].Start != w[0] || segs[i].End != w[1] {
			t.Errorf("segment %d: expected [%v, %v], got [%v, %v]", i, w[0], w[1], segs[i].Start, segs[i].End)
		}
	}
}

func TestChunkedSegmentsAreContiguous(t *testing.T) {
	for _, frames := range []int{1, 31999, 32000, 32001, 100000, 16000 * 61} {
		buf := &pcm.Buffer{Samples: make([]float32, frames), SampleRate: 16000, Channels: 1, BitDepth: 16}
		if err := asr.Validate(NewChunked().Segments(buf), buf.Duration()); err != nil {
			t.Errorf("%d frames: %v", frames, err)
		}
	}
}

func TestChunkedParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	samples := make([]float32, 16000*30+123)
	for i := range samples {
		samples[i] = rng.Float32()*2 - 1
	}
	buf := &pcm.Buffer{Samples: samples, SampleRate: 16000, Channels: 1, BitDepth: 16}

	seq := NewChunked(WithWorkers(1)).Analyze(buf)
	par := NewChunked(WithWorkers(8)).Analyze(buf)
	if !reflect.DeepEqual(seq, par) {
		t.Error("parallel analysis differs from sequential analysis")
	}
	if len(seq.Chunks) != 16 {
		t.Errorf("expected 16 chunks, got %d", len(seq.Chunks))
	}
	for i, c := range seq.Chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
	}
}

func TestChunkedThresholdMergesQuietChunks(t *testing.T) {
	samples := make([]float32, 16000*6)
	for i := 32000; i < 64000; i++ {
		samples[i] = 0.5
	}
	buf := &pcm.Buffer{Samples: samples, SampleRate: 16000, Channels: 1, BitDepth: 16}

	segs := NewChunked(WithThreshold(0.001)).Segments(buf)
	if len(segs) != 1 {
		t.Fatalf("expected quiet chunks merged into 1 segment, got %d", len(segs))
	}
	if segs[0].Start != 0 || segs[0].End != 6 {
		t.Errorf("expected [0, 6], got [%v, %v]", segs[0].Start, segs[0].End)
	}
}

func TestChunkedThresholdAllQuiet(t *testing.T) {
	buf := silence(4)
	segs := NewChunked(WithThreshold(0.001)).Segments(buf)
	if len(segs) != 1 || segs[0].Text != NoSpeechText || segs[0].End != 4 {
		t.Errorf("expected a single [0, 4] fallback segment, got %+v", segs)
	}
}

func TestChunkedCustomTextSource(t *testing.T) {
	var seen []int
	ts := TextFunc(func(c Chunk) string {
		seen = append(seen, c.Index)
		return "chunk"
	})
	segs := NewChunked(WithTextSource(ts), WithChunkSeconds(1)).Segments(silence(3))

	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if !reflect.DeepEqual(seen, []int{0, 1, 2}) {
		t.Errorf("expected text requested for chunks in order, got %v", seen)
	}
	for _, s := range segs {
		if s.Text != "chunk" {
			t.Errorf("unexpected text %q", s.Text)
		}
	}
}

func TestTimelineBlocks(t *testing.T) {
	cases := []struct {
		start float64
		block int
	}{
		{0, 0}, {59.9, 0}, {60, 1}, {119.9, 1}, {120, 2},
		{240, 3}, {360, 4}, {479, 4}, {480, 5}, {599, 5}, {600, 6}, {3600, 6},
	}
	for _, tc := range cases {
		if got := (Timeline{}).Text(Chunk{Start: tc.start}); got != timelineBlocks[tc.block] {
			t.Errorf("start %v: expected block %d, got %q", tc.start, tc.block, got)
		}
	}
}

type namedText string

func (n namedText) Text(Chunk) string   { return string(n) }
func (n namedText) Fingerprint() string { return "fixed-" + string(n) }

func TestChunkedFingerprint(t *testing.T) {
	if got := NewChunked().Fingerprint(); got != "chunked:2s:t0:timeline" {
		t.Errorf("default fingerprint %q", got)
	}
	if got := asr.Fingerprint(NewChunked(WithWorkers(1))); got != asr.Fingerprint(NewChunked(WithWorkers(8))) {
		t.Errorf("worker count must not change the fingerprint: %q", got)
	}

	distinct := map[string]bool{}
	for _, c := range []*Chunked{
		NewChunked(),
		NewChunked(WithChunkSeconds(1)),
		NewChunked(WithChunkSeconds(2.5)),
		NewChunked(WithThreshold(0.001)),
		NewChunked(WithTextSource(namedText("a"))),
		NewChunked(WithTextSource(namedText("b"))),
		NewChunked(WithTextSource(TextFunc(func(Chunk) string { return "" }))),
	} {
		fp := asr.Fingerprint(c)
		if distinct[fp] {
			t.Errorf("duplicate fingerprint %q", fp)
		}
		distinct[fp] = true
	}
}
