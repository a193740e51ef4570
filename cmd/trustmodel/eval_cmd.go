package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/Synavera-Discorporated/trust-model/pkg/config"
	"github.com/Synavera-Discorporated/trust-model/pkg/exemplar"
	"github.com/Synavera-Discorporated/trust-model/pkg/trust"
	"github.com/Synavera-Discorporated/trust-model/pkg/violations"
)

func runEvalCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("eval", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		eventsPath string
		configPath string
		kind       string
		withDebug  bool
	)
	cmd.StringVar(&eventsPath, "events", "", "Path to JSONL event stream, or - for stdin (REQUIRED)")
	cmd.StringVar(&configPath, "config", "", "Optional YAML configuration file")
	cmd.StringVar(&kind, "kind", "trust", "Rule set to evaluate: trust or respect")
	cmd.BoolVar(&withDebug, "debug", false, "Include the event/receipt debug context in output")

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
	var report *violations.Report
	switch kind {
	case "trust":
		report = trust.EvaluateTrust(state)
	case "respect":
		report = trust.EvaluateRespect(state)
	default:
		_, _ = fmt.Fprintf(stderr, "Error: unknown kind %q (want trust or respect)\n", kind)
		return 2
	}
	logger.Info("evaluated", "kind", kind, "events", len(events), "violations", len(report.Violations))

	if exemplar.Enabled() && len(report.Violations) > 0 {
		bundle := exemplar.BuildBundle("", kind, state.EventLog, state.ReceiptLog, report,
			exemplar.Source{TestName: "cli-eval", Profile: cfg.Profile.Name})
		path, err := exemplar.CaptureIfEnabled(bundle)
		if err != nil {
			logger.Error("failed to capture exemplar", "error", err)
		} else if path != "" {
			logger.Info("captured exemplar", "path", path)
		}
	}

	out := map[string]any{
		"kind":       report.Kind,
		"labels":     report.Labels(),
		"violations": report.Violations,
	}
	if report.Score != nil {
		out["score"] = *report.Score
	}
	if withDebug {
		out["debug"] = report.Debug
	}
	if err := writeJSON(stdout, out); err != nil {
		logger.Error("failed to encode report", "error", err)
		return 1
	}
	return 0
}
