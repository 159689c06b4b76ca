// Command scribe converts a video or audio file into a time-segmented
// transcript.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Version is set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches to a subcommand, or transcribes when the first argument is
// not one.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "watch":
			return runWatch(ctx, args[1:], stdout, stderr)
		case "export-diag":
			return runExportDiag(args[1:], stdout, stderr)
		case "tone":
			return runTone(args[1:], stdout, stderr)
		case "config":
			return runConfig(args[1:], stdout, stderr)
		case "version":
			return runVersion(ctx, args[1:], stdout, stderr)
		}
	}
	return runTranscribe(ctx, args, stdout, stderr)
}
