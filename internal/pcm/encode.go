package pcm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Spec describes the layout of a WAV file written by Encode.
type Spec struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Format     SampleFormat
}

// canonicalHeader is the 44-byte header of a WAV file with a single fmt and
// data chunk.
type canonicalHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

func (s Spec) validate() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("pcm: sample rate must be positive, got %d", s.SampleRate)
	}
	if s.Channels <= 0 {
		return fmt.Errorf("pcm: channel count must be positive, got %d", s.Channels)
	}
	switch {
	case s.Format == FormatFloat && s.BitDepth == 32:
	case s.Format == FormatInt && (s.BitDepth == 8 || s.BitDepth == 16 || s.BitDepth == 24 || s.BitDepth == 32):
	default:
		return fmt.Errorf("pcm: cannot encode %d-bit %s samples", s.BitDepth, s.Format)
	}
	return nil
}

func writeHeader(w io.Writer, s Spec, samples int) error {
	width := s.BitDepth / 8
	dataSize := uint32(samples * width)
	tag := uint16(tagPCM)
	if s.Format == FormatFloat {
		tag = tagIEEEFloat
	}
	h := canonicalHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   tag,
		NumChannels:   uint16(s.Channels),
		SampleRate:    uint32(s.SampleRate),
		ByteRate:      uint32(s.SampleRate * s.Channels * width),
		BlockAlign:    uint16(s.Channels * width),
		BitsPerSample: uint16(s.BitDepth),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("pcm: writing header: %w", err)
	}
	return nil
}

// EncodeInts writes raw integer sample values (interleaved when Channels > 1).
// 8-bit values are signed here and stored offset by 128 as WAV requires.
func EncodeInts(w io.Writer, s Spec, samples []int32) error {
	if err := s.validate(); err != nil {
		return err
	}
	if s.Format != FormatInt {
		return fmt.Errorf("pcm: EncodeInts needs an integer spec")
	}
	if err := writeHeader(w, s, len(samples)); err != nil {
		return err
	}

	buf := make([]byte, 4)
	width := s.BitDepth / 8
	for _, v := range samples {
		switch s.BitDepth {
		case 8:
			buf[0] = byte(v + 128)
		case 16:
			binary.LittleEndian.PutUint16(buf, uint16(int16(v)))
		case 24:
			buf[0], buf[1], buf[2] = byte(v), byte(v>>8), byte(v>>16)
		case 32:
			binary.LittleEndian.PutUint32(buf, uint32(v))
		}
		if _, err := w.Write(buf[:width]); err != nil {
			return fmt.Errorf("pcm: writing samples: %w", err)
		}
	}
	return nil
}

// Encode writes normalized samples. Integer specs quantize with the same
// divisor the decoder uses, clamping to the representable range.
func Encode(w io.Writer, s Spec, samples []float32) error {
	if err := s.validate(); err != nil {
		return err
	}
	if s.Format == FormatInt {
		ints := make([]int32, len(samples))
		scale := math.Ldexp(1, s.BitDepth-1)
		for i, x := range samples {
			v := math.Round(float64(x) * scale)
			ints[i] = int32(math.Max(-scale, math.Min(scale-1, v)))
		}
		return EncodeInts(w, s, ints)
	}

	if err := writeHeader(w, s, len(samples)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("pcm: writing samples: %w", err)
	}
	return nil
}

// WriteFile encodes samples into a new file at path.
func WriteFile(path string, s Spec, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pcm: creating %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := Encode(bw, s, samples); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("pcm: flushing %s: %w", path, err)
	}
	return f.Close()
}
