package pcm

// SampleFormat is the encoding of samples inside the data chunk.
type SampleFormat int

const (
	FormatInt SampleFormat = iota
	FormatFloat
)

func (f SampleFormat) String() string {
	if f == FormatFloat {
		return "float"
	}
	return "int"
}

// Buffer is a decoded mono sample sequence. Samples must be treated as
// read-only once a Buffer has been returned by Decode.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int // channel count of the source before downmixing
	BitDepth   int
	Format     SampleFormat
}

// Frames returns the number of mono frames.
func (b *Buffer) Frames() int {
	if b == nil {
		return 0
	}
	return len(b.Samples)
}

// Duration returns frames / sample rate in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Slice returns the samples in [start, end), clamped to the buffer bounds.
func (b *Buffer) Slice(start, end int) []float32 {
	n := b.Frames()
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start >= end {
		return nil
	}
	return b.Samples[start:end]
}
