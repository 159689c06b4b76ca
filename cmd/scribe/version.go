package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/tiroq/scribe/internal/update"
)

// runVersion prints the version and, with --check, asks GitHub for a newer
// release. SCRIBE_RELEASES_URL overrides the API base URL.
func runVersion(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("scribe version", stderr)
	check := fs.Bool("check", false, "check GitHub for a newer release")
	pre := fs.Bool("prerelease", false, "include beta and rc releases in --check")
	fs.Usage = func() { printUsage(stderr, "scribe version [--check]", fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	fmt.Fprintf(stdout, "scribe %s\n", Version)
	if !*check {
		return exitOK
	}

	channel := update.ChannelStable
	if *pre {
		channel = update.ChannelPrerelease
	}
	checker := update.NewChecker("tiroq", "scribe", Version,
		update.WithAPIURL(os.Getenv("SCRIBE_RELEASES_URL")),
		update.WithChannel(channel),
	)
	available, rel, err := checker.Check(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitFailure
	}
	if available {
		fmt.Fprintf(stdout, "update available: %s %s\n", rel.TagName, rel.HTMLURL)
	} else {
		fmt.Fprintln(stdout, "up to date")
	}
	return exitOK
}
