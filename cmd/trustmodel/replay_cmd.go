package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/Synavera-Discorporated/trust-model/pkg/config"
	"github.com/Synavera-Discorporated/trust-model/pkg/exemplar"
)

func runReplayCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("replay", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		dir        string
		configPath string
	)
	cmd.StringVar(&dir, "dir", "", "Directory holding exemplar bundles (default: configured capture dir)")
	cmd.StringVar(&configPath, "config", "", "Optional YAML configuration file")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	logger := newLogger(stderr)
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return 2
	}
	if dir == "" {
		dir = cfg.Capture.Dir
	}
	store := exemplar.NewStore(dir)
	paths, err := store.List()
	if err != nil {
		logger.Error("failed to list exemplars", "dir", dir, "error", err)
		return 2
	}
	if len(paths) == 0 {
		_, _ = fmt.Fprintf(stdout, "No exemplar bundles under %s\n", dir)
		return 0
	}

	failures := 0
	for _, path := range paths {
		bundle, err := store.Load(path)
		if err != nil {
			logger.Error("failed to load bundle", "path", path, "error", err)
			failures++
			continue
		}
		if _, _, err := exemplar.Replay(bundle); err != nil {
			logger.Error("replay diverged", "id", bundle.ID, "error", err)
			_, _ = fmt.Fprintf(stdout, "FAIL %s: %v\n", bundle.ID, err)
			failures++
			continue
		}
		_, _ = fmt.Fprintf(stdout, "OK   %s (%s)\n", bundle.ID, bundle.Kind)
	}
	_, _ = fmt.Fprintf(stdout, "%d bundle(s), %d failure(s)\n", len(paths), failures)
	if failures > 0 {
		return 1
	}
	return 0
}
