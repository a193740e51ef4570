package trust

import (
	"fmt"

	"github.com/Synavera-Discorporated/trust-model/pkg/violations"
)

// evaluateTotal runs an evaluator with the totality safety net: any internal
// fault is caught at this single boundary and converted into the guaranteed
// INVALID_STATE + ACCOUNTABILITY_BREAK pair with the fault captured in
// debug. A crash would erase accountability exactly when the input is most
// adversarial, so the evaluators classify, never fail.
func evaluateTotal(kind string, state *State, unsafe func(*State) *violations.Report) (report *violations.Report) {
	defer func() {
		if r := recover(); r == nil {
			return
		} else {
			rep := violations.NewReport(kind)
			rep.Add(violations.StructuralInvalidState, []string{"evaluator"})
			rep.Add(violations.TrustAccountabilityBreak, []string{"evaluator"})
			faultType := "panic"
			message := fmt.Sprint(r)
			if f, ok := r.(evalFault); ok {
				faultType = f.Kind
				message = f.Message
			}
			rep.Debug = map[string]any{
				"events":   state.EventLog,
				"receipts": state.ReceiptLog,
				"evaluator_error": map[string]any{
					"type":    faultType,
					"message": message,
				},
			}
			report = rep
		}
	}()
	return unsafe(state)
}

// eventIDKeys are probed in order to build a stable evidence identifier for
// an event or derived record.
var eventIDKeys = []string{
	"delegation_id",
	"consent_id",
	"telemetry_id",
	"decision_id",
	"environment_id",
	"enforcement_id",
	"default_id",
	"audit_id",
	"disclosure_id",
	"limitation_id",
}

// eventID builds a stable identifier from an entry's type and first known
// id field. Id-less entries fall back to a prefix of their chained hash,
// which is deterministic under replay.
func eventID(entry map[string]any) string {
	typeName := fmt.Sprintf("%v", entry["type"])
	for _, key := range eventIDKeys {
		if v, ok := entry[key]; ok && v != nil {
			return fmt.Sprintf("%s:%v", typeName, v)
		}
	}
	if hash, ok := entry["event_hash"].(string); ok && len(hash) >= 12 {
		return fmt.Sprintf("%s:event-%s", typeName, hash[:12])
	}
	return fmt.Sprintf("%s:event-anon", typeName)
}

// receiptEvidence formats the evidence id for a receipt.
func receiptEvidence(receipt map[string]any) string {
	if id, ok := receipt["receipt_id"]; ok && id != nil {
		return fmt.Sprintf("receipt:%v", id)
	}
	return "receipt:unknown"
}

// delegationActiveAt checks whether a delegation held authority at a logical
// time: issued on or before it, not yet expired, and not revoked as of it.
// A scheduled revocation takes precedence over the eager revoked flag.
func delegationActiveAt(delegation map[string]any, when int) bool {
	if issuedAt, ok := asInt(delegation["issued_at"]); ok && delegation["issued_at"] != nil && when < issuedAt {
		return false
	}
	if expiresAt, ok := asInt(delegation["expires_at"]); ok && delegation["expires_at"] != nil && when >= expiresAt {
		return false
	}
	if effective, ok := asInt(delegation["revocation_effective_at"]); ok && delegation["revocation_effective_at"] != nil {
		return when < effective
	}
	return !truthy(delegation["revoked"])
}

// attachDebug records the event/receipt context consumed by audit tooling
// and test diagnostics.
func attachDebug(report *violations.Report, events, receipts []map[string]any) {
	report.Debug = map[string]any{"events": events, "receipts": receipts}
}

// applyScore transfers a recorded reductionist score onto the report and
// flags its presence. A scalar score is a violation of multi-dimensional
// evaluation even when every other rule passes.
func applyScore(report *violations.Report, score any, present bool) {
	if !present || score == nil {
		return
	}
	if f, ok := asFloat(score); ok {
		report.Score = &f
	}
	report.Add(violations.EvaluationReductionism, []string{"reductionism"})
}
