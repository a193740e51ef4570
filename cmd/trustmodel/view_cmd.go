package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/Synavera-Discorporated/trust-model/pkg/config"
	"github.com/Synavera-Discorporated/trust-model/pkg/trust"
)

func runViewCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("view", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		eventsPath string
		configPath string
		suserID    string
		evaluate   bool
	)
	cmd.StringVar(&eventsPath, "events", "", "Path to JSONL event stream, or - for stdin (REQUIRED)")
	cmd.StringVar(&configPath, "config", "", "Optional YAML configuration file")
	cmd.StringVar(&suserID, "suser", "", "S-User id requesting the view (REQUIRED)")
	cmd.BoolVar(&evaluate, "evaluate", false, "Also evaluate the trust rules over the view")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if eventsPath == "" || suserID == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --events and --suser are required")
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
	view := trust.SUserView(state, suserID)
	out := map[string]any{
		"suser_id": view.SUserID,
		"receipts": view.Receipts,
	}
	if evaluate {
		report := trust.EvaluateTrustView(state, suserID)
		out["labels"] = report.Labels()
		out["violations"] = report.Violations
	}
	logger.Info("built view", "suser", suserID, "receipts", len(view.Receipts))
	if err := writeJSON(stdout, out); err != nil {
		logger.Error("failed to encode view", "error", err)
		return 1
	}
	return 0
}
