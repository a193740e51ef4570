package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/Synavera-Discorporated/trust-model/pkg/config"
)

func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		eventsPath string
		configPath string
	)
	cmd.StringVar(&eventsPath, "events", "", "Path to JSONL event stream, or - for stdin (REQUIRED)")
	cmd.StringVar(&configPath, "config", "", "Optional YAML configuration file")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if eventsPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --events is required")
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
	ok, detail := state.VerifyChains()
	if !ok {
		_, _ = fmt.Fprintf(stdout, "FAIL: %s\n", detail)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "OK: %s (%d events, %d receipts)\n", detail, len(state.EventLog), len(state.ReceiptLog))
	return 0
}
