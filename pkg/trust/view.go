package trust

import (
	"fmt"
	"sort"

	"github.com/Synavera-Discorporated/trust-model/pkg/violations"
)

// View is the S-User scoped audit surface. It is receipt-only: decisions are
// interpreted through the receipts delivered to the requesting S-User, never
// through the raw event log.
type View struct {
	SUserID  string           `json:"suser_id"`
	Receipts []map[string]any `json:"receipts"`
}

// SUserView builds the receipt view for one S-User, applying visibility rules
// and per-receipt redaction.
func SUserView(state *State, suserID string) *View {
	receipts := make([]map[string]any, 0)
	for _, receipt := range state.ReceiptLog {
		if receiptVisibleToSUser(receipt, suserID) {
			receipts = append(receipts, redactReceipt(receipt))
		}
	}
	return &View{SUserID: suserID, Receipts: receipts}
}

// receiptVisibleToSUser applies the visibility rules: decision receipts show
// to their S-User only when delivered, delegation and consent receipts to
// their owner, shared-action receipts to the actor and affected S-Users.
// Everything else stays hidden.
func receiptVisibleToSUser(receipt map[string]any, suserID string) bool {
	switch strField(receipt, "type") {
	case "decision_receipt":
		delivered, present := receipt["delivered_to_suser"]
		if !present || delivered == nil {
			// Delivery defaults from the reporting obligation.
			delivered = !isFalse(receipt["report_to_suser"])
		}
		return valuesEqual(receipt["suser_id"], suserID) && truthy(delivered)
	case "delegation_receipt", "consent_receipt":
		return valuesEqual(receipt["suser_id"], suserID)
	case "shared_action_receipt":
		return valuesEqual(receipt["actor_suser_id"], suserID) ||
			containsString(receipt["affected_susers"], suserID)
	default:
		return false
	}
}

// redactReceipt removes declared-redacted fields from a copy of the receipt.
// Undelivered explanations force redaction of the explanation fields. The
// surviving receipt records which fields were withheld.
func redactReceipt(receipt map[string]any) map[string]any {
	view := make(map[string]any, len(receipt))
	for k, v := range receipt {
		view[k] = v
	}
	redacted := make(map[string]bool)
	for _, field := range stringsIn(view["redacted_fields"]) {
		redacted[field] = true
	}
	if isFalse(view["explanation_delivered"]) {
		redacted["explanation"] = true
		redacted["explanation_legible"] = true
	}
	if len(redacted) == 0 {
		return view
	}
	names := make([]string, 0, len(redacted))
	for field := range redacted {
		delete(view, field)
		names = append(names, field)
	}
	sort.Strings(names)
	view["redacted_fields"] = names
	return view
}

// EvaluateTrustView evaluates the trust rules visible to one S-User: every
// decision that names or affects them must be covered by delivered, legible,
// accountable receipts. Redaction never hides a violation; a redacted
// authority chain reads as an accountability break.
func EvaluateTrustView(state *State, suserID string) *violations.Report {
	report := violations.NewReport("trust_view")
	view := SUserView(state, suserID)

	// Receipts group by decision so each decision's coverage is judged whole.
	byDecision := make(map[string][]map[string]any)
	for _, receipt := range view.Receipts {
		if strField(receipt, "type") != "decision_receipt" {
			continue
		}
		decisionID := fmt.Sprintf("%v", receipt["decision_id"])
		byDecision[decisionID] = append(byDecision[decisionID], receipt)
	}

	for _, decision := range state.Decisions {
		decisionID := decision["decision_id"]
		if !valuesEqual(decision["suser_id"], suserID) &&
			!containsString(decision["affected_susers"], suserID) {
			continue
		}
		receipts := byDecision[fmt.Sprintf("%v", decisionID)]
		if len(receipts) == 0 {
			report.Add(violations.AccountabilityMissingReporting,
				[]string{fmt.Sprintf("decision:%v:missing_receipt", decisionID)})
			continue
		}
		for _, receipt := range receipts {
			evidence := []string{receiptEvidence(receipt)}
			if !truthy(receipt["explanation"]) {
				report.Add(violations.AccountabilityNonLegibleExplanation, evidence)
			}
			if !isTrue(receipt["report_to_suser"]) {
				report.Add(violations.AccountabilityMissingReporting, evidence)
			}
			if !truthy(receipt["explanation_legible"]) {
				report.Add(violations.AccountabilityIllegibleReporting, evidence)
			}
			if isFalse(receipt["explanation_contextual"]) {
				report.Add(violations.AccountabilityNonLegibleExplanation, evidence)
			}
			if truthy(decision["telemetry_refs"]) && !truthy(receipt["telemetry_refs"]) {
				report.Add(violations.TelemetryOpaqueInfluence, evidence)
			}
			if !truthy(receipt["contest_path"]) || !truthy(receipt["revocation_path"]) {
				report.Add(violations.AccountabilityNonAccountableOutcome, evidence)
			}
			chain, isList := anyList(receipt["authority_chain"])
			containsBranch := false
			for _, item := range chain {
				switch item.(type) {
				case []any, []string, map[string]any:
					containsBranch = true
				}
			}
			terminates := isList && len(chain) > 0 && valuesEqual(chain[len(chain)-1], suserID)
			if !truthy(receipt["authority_chain"]) || containsBranch || !terminates {
				report.Add(violations.TrustAccountabilityBreak, evidence)
			}
		}
	}
	attachDebug(report, state.EventLog, view.Receipts)
	return report
}
