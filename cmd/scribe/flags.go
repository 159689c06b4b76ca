package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/tiroq/scribe/internal/config"
	"github.com/tiroq/scribe/internal/transcript"
)

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false
	return fs
}

// addPipelineFlags registers the flags shared by every command that runs the
// pipeline. Their names match the keys config.LoadFlags binds.
func addPipelineFlags(fs *pflag.FlagSet) *string {
	defaults := config.Default()
	configPath := fs.String("config", "", "config file (default: ./scribe.yaml or ~/.config/scribe/scribe.yaml)")
	fs.StringP("model", "m", defaults.Model, "model size: tiny, base, small, medium, large")
	fs.String("policy", defaults.Policy, "segmentation policy: "+strings.Join(config.Policies, ", "))
	fs.StringSliceP("format", "f", defaults.Output.Formats, "output formats: "+strings.Join(transcript.Formats, ", "))
	fs.String("output-dir", "", "directory for transcripts (default: next to the input)")
	fs.Bool("metadata", false, "write a .meta.json sidecar next to the transcript")
	fs.String("ffmpeg", defaults.FFmpeg.Binary, "ffmpeg executable")
	fs.Int("timeout", defaults.FFmpeg.TimeoutSeconds, "transcoder timeout in seconds, 0 for none")
	fs.String("scratch", "", "directory for extracted audio (default: system temp dir)")
	fs.Bool("cache", false, "reuse transcripts of identical inputs")
	fs.Float64("threshold", defaults.Chunked.Threshold, "chunked policy RMS silence gate")
	fs.Int("workers", defaults.Chunked.Workers, "chunked policy analysis workers, 0 for one per CPU")
	fs.Bool("debug", false, "verbose console logs and the NDJSON diagnostic log")
	return configPath
}

func printUsage(w io.Writer, usage string, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: %s\n\nFlags:\n%s", usage, fs.FlagUsages())
}
