package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/tiroq/scribe/internal/config"
	"github.com/tiroq/scribe/internal/diaglog"
	"github.com/tiroq/scribe/internal/logging"
	"github.com/tiroq/scribe/internal/pidfile"
	"github.com/tiroq/scribe/internal/watch"
)

func runWatch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("scribe watch", stderr)
	configPath := addPipelineFlags(fs)
	fs.Int("poll", config.Default().Watch.PollSeconds, "scan interval in seconds")
	pollingOnly := fs.Bool("polling", false, "scan on the interval only, without fsnotify")
	fs.Usage = func() { printUsage(stderr, "scribe watch [flags] <dir>", fs) }

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
	dir := fs.Arg(0)

	cfg, err := config.LoadFlags(*configPath, fs)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitUsage
	}

	log := logging.New(cfg.Debug || diaglog.IsDebugEnabled())
	pidPath := cfg.Watch.PIDFile
	if pidPath == "" {
		pidPath = pidfile.DefaultPath("scribe-watch")
	}
	pf, err := pidfile.New(pidPath)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		fmt.Fprintf(stderr, "hint: if no other watcher is running, remove %s\n", pidPath)
		return exitFailure
	}
	defer func() {
		if err := pf.Remove(); err != nil {
			log.Warnw("failed to remove PID file", "path", pidPath, "error", err)
		}
	}()

	a, err := newApp(cfg, log)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitUsage
	}
	defer a.close()

	statusPath := cfg.Watch.StatusFile
	if statusPath == "" {
		statusPath = watch.DefaultStatusPath()
	}

	proc := watch.ProcessorFunc(func(ctx context.Context, path string) error {
		written, err := a.transcribe(ctx, path, "")
		for _, p := range written {
			fmt.Fprintf(stdout, "Wrote: %s\n", p)
		}
		a.flushMetrics()
		return err
	})

	opts := []watch.Option{
		watch.WithPollInterval(time.Duration(cfg.Watch.PollSeconds) * time.Second),
		watch.WithStableScans(cfg.Watch.StableScans),
		watch.WithStatusFile(statusPath),
		watch.WithLogger(log.Named("watch")),
		watch.WithDiagLog(a.diag),
		watch.WithMetrics(a.metrics),
	}
	if *pollingOnly {
		opts = append(opts, watch.WithPollingOnly())
	}

	log.Infow("watch started", "dir", dir, "pid", pf.Path(), "status", statusPath)
	if err := watch.New(dir, proc, opts...).Run(ctx); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitFailure
	}
	return exitOK
}
