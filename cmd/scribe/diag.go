package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/tiroq/scribe/internal/diaglog"
)

// runExportDiag bundles the diagnostic log for a bug report. Exit code 1
// means there is no log yet, 2 any other failure.
func runExportDiag(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("scribe export-diag", stderr)
	logPath := fs.String("log", "", "diagnostic log (default: $SCRIBE_DIAG_LOG or the user cache dir)")
	dest := fs.String("dest", ".", "directory for the bundle")
	fs.Usage = func() { printUsage(stderr, "scribe export-diag [flags]", fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	path := *logPath
	if path == "" {
		path = os.Getenv("SCRIBE_DIAG_LOG")
	}
	if path == "" {
		path = diaglog.DefaultPath()
	}

	diaglog.Version = Version
	out, n, err := diaglog.Export(path, *dest)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(stderr, "hint: run with SCRIBE_DEBUG=true to enable logging")
			return exitFailure
		}
		return exitUsage
	}
	fmt.Fprintf(stdout, "Wrote: %s (%d lines)\n", out, n)
	return exitOK
}
