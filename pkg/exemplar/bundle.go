// Package exemplar captures invalid-state exemplars: frozen event/receipt
// sequences plus the violation labels they produced, written as canonical
// JSON bundles so failing evaluations become reviewable, replayable audit
// artifacts. Capture is opt-in and never changes evaluation outcomes.
package exemplar

import (
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/Synavera-Discorporated/trust-model/pkg/trust"
	"github.com/Synavera-Discorporated/trust-model/pkg/violations"
)

// FormatVersion is written into every bundle. Loaders accept any 1.x bundle.
const FormatVersion = "1.0.2"

var supportedFormats = mustConstraint("^1")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Volatile fields are stripped so bundles stay byte-stable across runs.
var (
	volatileEventFields   = []string{"event_hash", "event_hash_prev", "time_utc"}
	volatileReceiptFields = []string{"receipt_hash", "receipt_hash_prev", "receipt_id", "time_utc"}
)

// Source records where an exemplar came from.
type Source struct {
	TestName string `json:"test_name"`
	Profile  string `json:"profile,omitempty"`
	Seed     string `json:"seed,omitempty"`
	SUserID  string `json:"suser_id,omitempty"`
}

// ViolationSummary holds the deduplicated, sorted violation labels and the
// evidence ids recorded under each.
type ViolationSummary struct {
	Labels   []string            `json:"labels"`
	Evidence map[string][]string `json:"evidence"`
}

// Bundle is one exemplar: the normalized input sequence, the receipts it
// produced, and the violations the evaluator reported for it.
type Bundle struct {
	ID            string           `json:"id"`
	CreatedUTC    string           `json:"created_utc"`
	Source        Source           `json:"source"`
	Kind          string           `json:"kind"`
	Events        []map[string]any `json:"events"`
	Receipts      []map[string]any `json:"receipts"`
	Violations    ViolationSummary `json:"violations"`
	Notes         string           `json:"notes,omitempty"`
	FormatVersion string           `json:"format_version"`
}

// BuildBundle freezes an evaluation into a bundle. An empty id is replaced
// with a fresh UUID; volatile hash and time fields are stripped so the bundle
// content depends only on semantics.
func BuildBundle(id, kind string, events, receipts []map[string]any, report *violations.Report, source Source) *Bundle {
	if id == "" {
		id = uuid.NewString()
	}
	return &Bundle{
		ID:            id,
		CreatedUTC:    time.Now().UTC().Format(time.RFC3339),
		Source:        source,
		Kind:          kind,
		Events:        normalize(events, volatileEventFields),
		Receipts:      normalize(receipts, volatileReceiptFields),
		Violations:    summarize(report),
		FormatVersion: FormatVersion,
	}
}

func normalize(entries []map[string]any, volatile []string) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		cleaned := make(map[string]any, len(entry))
		for key, value := range entry {
			cleaned[key] = value
		}
		for _, key := range volatile {
			delete(cleaned, key)
		}
		out = append(out, cleaned)
	}
	return out
}

// summarize extracts sorted labels and per-label evidence from a report.
// Sorting keeps bundle diffs deterministic.
func summarize(report *violations.Report) ViolationSummary {
	labels := sortedSet(report.Labels())
	evidence := make(map[string][]string)
	for label, ids := range report.EvidenceIndex() {
		evidence[label] = sortedSet(ids)
	}
	return ViolationSummary{Labels: labels, Evidence: evidence}
}

func sortedSet(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	sort.Strings(out)
	return out
}

// CheckFormat verifies that a bundle's format version is one this code can
// interpret.
func CheckFormat(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("exemplar: bad format_version %q: %w", version, err)
	}
	if !supportedFormats.Check(v) {
		return fmt.Errorf("exemplar: unsupported format_version %q (want %s)", version, supportedFormats)
	}
	return nil
}

// Replay folds the bundle's events through a fresh state, evaluates it with
// the evaluator matching the bundle kind, and verifies the violation labels
// reproduce exactly. A clean replay proves the exemplar still demonstrates
// the violations it was captured for.
func Replay(bundle *Bundle) (*trust.State, *violations.Report, error) {
	state := trust.NewState()
	for _, event := range bundle.Events {
		state, _ = trust.ApplyEvent(state, event)
	}
	var report *violations.Report
	switch bundle.Kind {
	case "trust":
		report = trust.EvaluateTrust(state)
	case "respect":
		report = trust.EvaluateRespect(state)
	case "trust_view":
		report = trust.EvaluateTrustView(state, bundle.Source.SUserID)
	default:
		return nil, nil, fmt.Errorf("exemplar %s: unknown kind %q", bundle.ID, bundle.Kind)
	}
	got := sortedSet(report.Labels())
	want := sortedSet(bundle.Violations.Labels)
	if !equalStrings(got, want) {
		return state, report, fmt.Errorf("exemplar %s: labels diverged: got %v, want %v", bundle.ID, got, want)
	}
	return state, report, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
