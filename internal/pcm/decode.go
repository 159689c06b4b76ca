package pcm

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// WAVE format tags.
const (
	tagPCM        = 0x0001
	tagIEEEFloat  = 0x0003
	tagExtensible = 0xFFFE
)

// unknownDataSize is written by encoders that could not seek back to patch
// the data chunk length (e.g. when streaming to a pipe).
const unknownDataSize = 0xFFFFFFFF

// Integer normalization divisors, one per supported bit depth.
const (
	divisor16 = 32768.0
	divisor24 = 8388608.0
	divisor32 = 2147483648.0
)

var (
	// ErrOpenFailed is returned when the file is not a readable RIFF/WAVE container.
	ErrOpenFailed = errors.New("pcm: failed to open wav container")
	// ErrSampleReadFailed is returned when sample data ends mid-frame or cannot be read.
	ErrSampleReadFailed = errors.New("pcm: failed to read samples")
)

// UnsupportedBitDepthError reports an integer bit depth without a divisor.
type UnsupportedBitDepthError struct {
	Bits int
}

func (e *UnsupportedBitDepthError) Error() string {
	return fmt.Sprintf("pcm: unsupported bit depth: %d bits", e.Bits)
}

// Header is the parsed fmt chunk plus the declared data length.
type Header struct {
	Format     SampleFormat
	Channels   int
	SampleRate int
	BitDepth   int
	DataSize   int64 // -1 when the encoder left the length unknown
}

// Decode opens path and decodes it with DecodeReader.
func Decode(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	defer f.Close()
	return DecodeReader(bufio.NewReaderSize(f, 64*1024))
}

// DecodeReader reads a complete WAV stream and returns its samples as mono
// float32 values. Multi-channel frames are averaged.
func DecodeReader(r io.Reader) (*Buffer, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	sample, err := sampleDecoder(h)
	if err != nil {
		return nil, err
	}

	var data []byte
	if h.DataSize < 0 {
		data, err = io.ReadAll(r)
	} else {
		data, err = io.ReadAll(io.LimitReader(r, h.DataSize))
		if err == nil && int64(len(data)) != h.DataSize {
			err = fmt.Errorf("data chunk declares %d bytes, got %d", h.DataSize, len(data))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSampleReadFailed, err)
	}

	width := h.BitDepth / 8
	frameSize := width * h.Channels
	if len(data)%frameSize != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after last complete frame", ErrSampleReadFailed, len(data)%frameSize)
	}

	frames := len(data) / frameSize
	samples := make([]float32, frames)
	if h.Channels == 1 {
		for i := range samples {
			samples[i] = sample(data[i*width:])
		}
	} else {
		ch := float32(h.Channels)
		for i := range samples {
			frame := data[i*frameSize : (i+1)*frameSize]
			var sum float32
			for c := 0; c < h.Channels; c++ {
				sum += sample(frame[c*width:])
			}
			samples[i] = sum / ch
		}
	}

	return &Buffer{
		Samples:    samples,
		SampleRate: h.SampleRate,
		Channels:   h.Channels,
		BitDepth:   h.BitDepth,
		Format:     h.Format,
	}, nil
}

// ReadHeader walks the RIFF chunks up to the start of the data chunk. Chunks
// other than "fmt " and "data" are skipped.
func ReadHeader(r io.Reader) (Header, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Header{}, fmt.Errorf("%w: reading RIFF header: %v", ErrOpenFailed, err)
	}
	if string(riff[0:4]) != "RIFF" {
		return Header{}, fmt.Errorf("%w: missing RIFF header", ErrOpenFailed)
	}
	if string(riff[8:12]) != "WAVE" {
		return Header{}, fmt.Errorf("%w: missing WAVE format", ErrOpenFailed)
	}

	var (
		h      Header
		haveFm bool
		chunk  [8]byte
	)
	for {
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return Header{}, fmt.Errorf("%w: missing data chunk", ErrOpenFailed)
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			if size < 16 || size > 1024 {
				return Header{}, fmt.Errorf("%w: fmt chunk size %d", ErrOpenFailed, size)
			}
			body := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, body); err != nil {
				return Header{}, fmt.Errorf("%w: reading fmt chunk: %v", ErrOpenFailed, err)
			}
			if err := parseFmt(body[:size], &h); err != nil {
				return Header{}, err
			}
			haveFm = true
		case "data":
			if !haveFm {
				return Header{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrOpenFailed)
			}
			h.DataSize = size
			if size == unknownDataSize {
				h.DataSize = -1
			}
			return h, nil
		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return Header{}, fmt.Errorf("%w: skipping %q chunk: %v", ErrOpenFailed, id, err)
			}
		}
	}
}

func parseFmt(b []byte, h *Header) error {
	tag := binary.LittleEndian.Uint16(b[0:2])
	h.Channels = int(binary.LittleEndian.Uint16(b[2:4]))
	h.SampleRate = int(binary.LittleEndian.Uint32(b[4:8]))
	h.BitDepth = int(binary.LittleEndian.Uint16(b[14:16]))

	if tag == tagExtensible {
		// cbSize(2) validBits(2) channelMask(4) then the sub-format GUID whose
		// first two bytes carry the real format tag.
		if len(b) < 40 {
			return fmt.Errorf("%w: truncated WAVE_FORMAT_EXTENSIBLE chunk", ErrOpenFailed)
		}
		tag = binary.LittleEndian.Uint16(b[24:26])
	}

	switch tag {
	case tagPCM:
		h.Format = FormatInt
	case tagIEEEFloat:
		h.Format = FormatFloat
	default:
		return fmt.Errorf("%w: unsupported format tag 0x%04x", ErrOpenFailed, tag)
	}
	if h.Channels == 0 {
		return fmt.Errorf("%w: zero channels", ErrOpenFailed)
	}
	if h.SampleRate == 0 {
		return fmt.Errorf("%w: zero sample rate", ErrOpenFailed)
	}
	return nil
}

// sampleDecoder picks the normalization for one little-endian sample.
func sampleDecoder(h Header) (func([]byte) float32, error) {
	if h.Format == FormatFloat {
		switch h.BitDepth {
		case 32:
			return func(b []byte) float32 {
				return math.Float32frombits(binary.LittleEndian.Uint32(b))
			}, nil
		case 64:
			return func(b []byte) float32 {
				return float32(math.Float64frombits(binary.LittleEndian.Uint64(b)))
			}, nil
		}
		return nil, &UnsupportedBitDepthError{Bits: h.BitDepth}
	}

	switch h.BitDepth {
	case 16:
		return func(b []byte) float32 {
			return float32(int16(binary.LittleEndian.Uint16(b))) / divisor16
		}, nil
	case 24:
		return func(b []byte) float32 {
			v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
			return float32(v) / divisor24
		}, nil
	case 32:
		return func(b []byte) float32 {
			return float32(int32(binary.LittleEndian.Uint32(b))) / divisor32
		}, nil
	}
	return nil, &UnsupportedBitDepthError{Bits: h.BitDepth}
}
