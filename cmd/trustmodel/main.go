package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Synavera-Discorporated/trust-model/pkg/config"
	"github.com/Synavera-Discorporated/trust-model/pkg/trust"
)

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "eval":
		return runEvalCmd(args[2:], stdout, stderr)
	case "view":
		return runViewCmd(args[2:], stdout, stderr)
	case "query":
		return runQueryCmd(args[2:], stdout, stderr)
	case "replay":
		return runReplayCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: trustmodel <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  eval    Apply an event stream and evaluate trust or respect rules")
	fmt.Fprintln(w, "  view    Build the S-User receipt view and evaluate it")
	fmt.Fprintln(w, "  query   Look up a decision summary by id")
	fmt.Fprintln(w, "  replay  Replay exemplar bundles and verify their violations reproduce")
	fmt.Fprintln(w, "  verify  Apply an event stream and verify the hash chains")
}

func newLogger(stderr io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(stderr, nil))
}

// loadEvents reads one JSON event object per line. Numbers decode as
// json.Number so logical times survive without float drift.
func loadEvents(r io.Reader) ([]map[string]any, error) {
	var events []map[string]any
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		var event map[string]any
		if err := dec.Decode(&event); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func loadEventsFile(path string) ([]map[string]any, error) {
	if path == "-" {
		return loadEvents(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return loadEvents(f)
}

// applyAll folds events into a fresh state anchored at the configured base
// time.
func applyAll(cfg *config.Config, events []map[string]any) *trust.State {
	state := trust.NewStateAt(cfg.BaseTimeUTC)
	for _, event := range events {
		state, _ = trust.ApplyEvent(state, event)
	}
	return state
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
