package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/Synavera-Discorporated/trust-model/pkg/config"
	"github.com/Synavera-Discorporated/trust-model/pkg/trust"
)

func runQueryCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("query", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		eventsPath string
		configPath string
		decisionID string
	)
	cmd.StringVar(&eventsPath, "events", "", "Path to JSONL event stream, or - for stdin (REQUIRED)")
	cmd.StringVar(&configPath, "config", "", "Optional YAML configuration file")
	cmd.StringVar(&decisionID, "decision", "", "Decision id to query (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if eventsPath == "" || decisionID == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --events and --decision are required")
		return 2
	}

	logger := newLogger(stderr)
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return 2
	}
	events, err := loadEventsFile(eventsPath)
	if err != nil {
		logger.Error("failed to load events", "path", eventsPath, "error", err)
		return 2
	}

	state := applyAll(cfg, events)
	summary := trust.QueryDecision(state, decisionID)
	if err := writeJSON(stdout, summary); err != nil {
		logger.Error("failed to encode summary", "error", err)
		return 1
	}
	return 0
}
