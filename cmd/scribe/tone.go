package main

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/spf13/pflag"

	"github.com/tiroq/scribe/internal/pcm"
)

// runTone writes a WAV test fixture: a sine tone, or silence with
// --amplitude 0.
func runTone(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("scribe tone", stderr)
	seconds := fs.Float64("seconds", 3, "duration in seconds")
	freq := fs.Float64("freq", 440, "tone frequency in Hz")
	amplitude := fs.Float64("amplitude", 0.5, "peak amplitude in [0, 1]")
	rate := fs.Int("rate", 16000, "sample rate in Hz")
	channels := fs.Int("channels", 1, "channel count")
	bits := fs.Int("bits", 16, "bit depth: 8, 16, 24 or 32")
	float := fs.Bool("float", false, "write 32-bit IEEE float samples")
	fs.Usage = func() { printUsage(stderr, "scribe tone [flags] <out.wav>", fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	if *seconds < 0 || *amplitude < 0 || *amplitude > 1 || *channels < 1 {
		fmt.Fprintln(stderr, "error: seconds must be >= 0, amplitude in [0, 1], channels >= 1")
		return exitUsage
	}

	spec := pcm.Spec{SampleRate: *rate, Channels: *channels, BitDepth: *bits, Format: pcm.FormatInt}
	if *float {
		spec.BitDepth = 32
		spec.Format = pcm.FormatFloat
	}

	samples := sine(*seconds, *freq, *amplitude, *rate, *channels)
	path := fs.Arg(0)
	if err := pcm.WriteFile(path, spec, samples); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "Wrote: %s (%d frames)\n", path, len(samples) / *channels)
	return exitOK
}

// sine returns interleaved frames with the same value on every channel.
func sine(seconds, freq, amplitude float64, rate, channels int) []float32 {
	frames := int(math.Round(seconds * float64(rate)))
	out := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		v := float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
		for c := 0; c < channels; c++ {
			out[i*channels+c] = v
		}
	}
	return out
}
