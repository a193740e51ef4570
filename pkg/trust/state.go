// Package trust implements the reference evaluator for the delegation/
// consent/accountability governance model: a deterministic event-application
// engine over an append-only, hash-chained state, plus the total trust and
// respect evaluators, the S-User scoped view layer, and the decision query
// surface.
//
// Events and receipts are dynamic map payloads. The evaluators must be total
// over arbitrarily malformed dict-shaped input (classify, never crash), so a
// closed tagged union would be the wrong shape here; typed access goes
// through the helpers in values.go instead.
package trust

import (
	"fmt"

	"github.com/Synavera-Discorporated/trust-model/pkg/canonicalize"
)

// DefaultBaseTimeUTC anchors logical clock zero. It is fixed so receipts are
// stable across runs for audit replay.
const DefaultBaseTimeUTC = "2026-01-01T00:00:00Z"

// State is the sole mutable aggregate of the model.
//
// EventLog and ReceiptLog only grow; entries are immutable once appended.
// Indexed records (a delegation's revocation fields, a consent's withdrawn
// flag) may be updated in place, but never removed. The logical Clock
// advances only through explicit time_advance events.
type State struct {
	SUsers           map[string]bool
	Services         map[string]bool
	TelemetrySources map[string]bool

	Delegations     map[string]map[string]any
	Consents        map[string]map[string]any
	Telemetry       map[string]map[string]any
	Boundaries      map[string]map[string]any
	EntryConditions map[string]map[string]any
	Audits          map[string]map[string]any

	// First-insertion key order for the indexed records above. Evaluation
	// iterates these lists, never the maps, so label and evidence order is
	// a pure function of the event sequence.
	DelegationOrder     []string
	ConsentOrder        []string
	TelemetryOrder      []string
	EntryConditionOrder []string

	Decisions             []map[string]any
	SharedActions         []map[string]any
	Defaults              []map[string]any
	Enforcement           []map[string]any
	Disclosures           []map[string]any
	LimitationDisclosures []map[string]any

	EventLog   []map[string]any
	ReceiptLog []map[string]any

	NextReceiptID     int
	Clock             int
	TelemetryExposure map[string]int
	BaseTimeUTC       string

	// Chain tails. Empty string means genesis (encoded as null when hashed).
	EventHashPrev   string
	ReceiptHashPrev string
}

// NewState creates an empty state anchored at the deterministic base time.
func NewState() *State {
	return &State{
		SUsers:            make(map[string]bool),
		Services:          make(map[string]bool),
		TelemetrySources:  make(map[string]bool),
		Delegations:       make(map[string]map[string]any),
		Consents:          make(map[string]map[string]any),
		Telemetry:         make(map[string]map[string]any),
		Boundaries:        make(map[string]map[string]any),
		EntryConditions:   make(map[string]map[string]any),
		Audits:            make(map[string]map[string]any),
		TelemetryExposure: make(map[string]int),
		NextReceiptID:     1,
		BaseTimeUTC:       DefaultBaseTimeUTC,
	}
}

// NewStateAt creates an empty state anchored at the given RFC-3339 base
// time. An empty base falls back to DefaultBaseTimeUTC.
func NewStateAt(baseTimeUTC string) *State {
	s := NewState()
	if baseTimeUTC != "" {
		s.BaseTimeUTC = baseTimeUTC
	}
	return s
}

// Clone returns a deep, independent copy of the state. ApplyEvent clones
// before mutating so callers may retain prior snapshots without aliasing
// hazards.
func (s *State) Clone() *State {
	c := &State{
		SUsers:                cloneStringSet(s.SUsers),
		Services:              cloneStringSet(s.Services),
		TelemetrySources:      cloneStringSet(s.TelemetrySources),
		Delegations:           cloneRecordIndex(s.Delegations),
		Consents:              cloneRecordIndex(s.Consents),
		Telemetry:             cloneRecordIndex(s.Telemetry),
		Boundaries:            cloneRecordIndex(s.Boundaries),
		EntryConditions:       cloneRecordIndex(s.EntryConditions),
		Audits:                cloneRecordIndex(s.Audits),
		DelegationOrder:       append([]string(nil), s.DelegationOrder...),
		ConsentOrder:          append([]string(nil), s.ConsentOrder...),
		TelemetryOrder:        append([]string(nil), s.TelemetryOrder...),
		EntryConditionOrder:   append([]string(nil), s.EntryConditionOrder...),
		Decisions:             cloneRecordList(s.Decisions),
		SharedActions:         cloneRecordList(s.SharedActions),
		Defaults:              cloneRecordList(s.Defaults),
		Enforcement:           cloneRecordList(s.Enforcement),
		Disclosures:           cloneRecordList(s.Disclosures),
		LimitationDisclosures: cloneRecordList(s.LimitationDisclosures),
		EventLog:              cloneRecordList(s.EventLog),
		ReceiptLog:            cloneRecordList(s.ReceiptLog),
		NextReceiptID:         s.NextReceiptID,
		Clock:                 s.Clock,
		TelemetryExposure:     make(map[string]int, len(s.TelemetryExposure)),
		BaseTimeUTC:           s.BaseTimeUTC,
		EventHashPrev:         s.EventHashPrev,
		ReceiptHashPrev:       s.ReceiptHashPrev,
	}
	for k, v := range s.TelemetryExposure {
		c.TelemetryExposure[k] = v
	}
	return c
}

// VerifyChains recomputes both hash chains over the logs and reports the
// first break found. A clean pair of chains proves the logs were neither
// reordered nor rewritten since application.
func (s *State) VerifyChains() (bool, string) {
	prev := ""
	for i, event := range s.EventLog {
		payload := canonicalize.StripHashFields(event, "event_hash", "event_hash_prev")
		want, err := canonicalize.HashChain(payload, prev)
		if err != nil {
			return false, fmt.Sprintf("event %d: hash failed: %v", i, err)
		}
		got, _ := event["event_hash"].(string)
		if got != want {
			return false, fmt.Sprintf("event chain broken at index %d", i)
		}
		prev = got
	}
	prev = ""
	for i, receipt := range s.ReceiptLog {
		payload := canonicalize.StripHashFields(receipt, "receipt_hash", "receipt_hash_prev")
		want, err := canonicalize.HashChain(payload, prev)
		if err != nil {
			return false, fmt.Sprintf("receipt %d: hash failed: %v", i, err)
		}
		got, _ := receipt["receipt_hash"].(string)
		if got != want {
			return false, fmt.Sprintf("receipt chain broken at index %d", i)
		}
		prev = got
	}
	return true, "chains verified"
}

func cloneStringSet(src map[string]bool) map[string]bool {
	dst := make(map[string]bool, len(src))
	for k := range src {
		dst[k] = true
	}
	return dst
}

func cloneRecordIndex(src map[string]map[string]any) map[string]map[string]any {
	dst := make(map[string]map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneRecord(v)
	}
	return dst
}

func cloneRecordList(src []map[string]any) []map[string]any {
	if src == nil {
		return nil
	}
	dst := make([]map[string]any, len(src))
	for i, v := range src {
		dst[i] = cloneRecord(v)
	}
	return dst
}

func cloneRecord(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneRecord(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []map[string]any:
		return cloneRecordList(t)
	default:
		// Scalars (and nil) are immutable by convention.
		return v
	}
}
