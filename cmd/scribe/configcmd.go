package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/tiroq/scribe/internal/config"
)

// runConfig handles "config init [path]" and "config show".
func runConfig(args []string, stdout, stderr io.Writer) int {
	usage := "scribe config init [path] | scribe config show [--config file]"
	if len(args) == 0 {
		fmt.Fprintf(stderr, "Usage: %s\n", usage)
		return exitUsage
	}

	switch args[0] {
	case "init":
		path := filepath.Join(config.UserDir(), config.FileName+".yaml")
		if len(args) > 1 {
			path = args[1]
		}
		if err := config.WriteDefault(path); err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return exitFailure
		}
		fmt.Fprintf(stdout, "Wrote: %s\n", path)
		return exitOK

	case "show":
		fs := newFlagSet("scribe config show", stderr)
		configPath := fs.String("config", "", "config file")
		if err := fs.Parse(args[1:]); err != nil {
			if errors.Is(err, pflag.ErrHelp) {
				return exitOK
			}
			return exitUsage
		}
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return exitFailure
		}
		data, err := cfg.YAML()
		if err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return exitFailure
		}
		if cfg.Source != "" {
			fmt.Fprintf(stdout, "# %s\n", cfg.Source)
		}
		stdout.Write(data)
		return exitOK
	}

	fmt.Fprintf(stderr, "Usage: %s\n", usage)
	return exitUsage
}
