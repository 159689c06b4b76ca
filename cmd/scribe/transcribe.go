package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/spf13/pflag"

	"github.com/tiroq/scribe/internal/config"
	"github.com/tiroq/scribe/internal/diaglog"
	"github.com/tiroq/scribe/internal/logging"
	"github.com/tiroq/scribe/internal/media"
)

func runTranscribe(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("scribe", stderr)
	output := fs.StringP("output", "o", "", "output file (default: input with the format's extension)")
	configPath := addPipelineFlags(fs)
	showVersion := fs.BoolP("version", "v", false, "print the version and exit")
	usage := "scribe [flags] <input>\n       scribe watch|export-diag|tone|config|version ..."
	fs.Usage = func() { printUsage(stderr, usage, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if *showVersion {
		fmt.Fprintf(stdout, "scribe %s\n", Version)
		return exitOK
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	input := fs.Arg(0)

	cfg, err := config.LoadFlags(*configPath, fs)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitUsage
	}

	log := logging.New(cfg.Debug || diaglog.IsDebugEnabled())
	a, err := newApp(cfg, log)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitUsage
	}
	defer a.close()

	if cfg.Source != "" {
		log.Debugw("loaded config", "path", cfg.Source)
	}
	log.Infow("starting transcription",
		"input", input,
		"output", *output,
		"formats", cfg.Output.Formats,
		"model", cfg.Model,
		"policy", cfg.Policy,
	)

	written, err := a.transcribe(ctx, input, *output)
	for _, path := range written {
		fmt.Fprintf(stdout, "Wrote: %s\n", path)
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintln(stderr, "hint:", hint)
		}
		return exitFailure
	}
	log.Infow("transcription completed", "outputs", written)
	return exitOK
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return "install ffmpeg or point ffmpeg.binary (--ffmpeg) at it"
	case errors.Is(err, media.ErrInputNotFound):
		return "check the input path"
	case errors.Is(err, errOverwriteInput):
		return "pass -o with a different path"
	case errors.Is(err, context.DeadlineExceeded):
		return "raise ffmpeg.timeout_seconds (--timeout) for long inputs"
	}
	return ""
}
