package trust

import (
	"fmt"

	"github.com/Synavera-Discorporated/trust-model/pkg/violations"
)

// EvaluateTrust scans the state and reports every applicable trust, consent,
// telemetry, accountability, and enforcement violation. It is total: a
// malformed state yields INVALID_STATE + ACCOUNTABILITY_BREAK instead of a
// failure.
func EvaluateTrust(state *State) *violations.Report {
	return evaluateTotal("trust", state, evaluateTrustUnsafe)
}

func evaluateTrustUnsafe(state *State) *violations.Report {
	report := violations.NewReport("trust")

	// Evidence is collected first so all applicable violations are emitted
	// together, not just the first match.
	invalidState := false
	var score any
	var justificationEvidence []string
	var missingReportingEvidence []string
	var delegationInvalidEvidence []string
	var implicitDelegationEvidence []string
	var sovereigntyDisplacedEvidence []string
	var consentInvalidEvidence []string
	var consentCoercedEvidence []string
	var telemetryPrescriptiveEvidence []string
	var telemetryOpaqueEvidence []string
	var telemetryReportingEvidence []string

	recordJustification := func(entry map[string]any) {
		// Justification never excuses an invalid state; it is preserved as
		// additional evidence of operator intent.
		if justification := entry["justification"]; truthy(justification) {
			justificationEvidence = append(justificationEvidence,
				fmt.Sprintf("%s:justification:%v", eventID(entry), justification))
		}
	}

	for _, event := range state.EventLog {
		if strField(event, "type") == "reductionist_metric" {
			score = event["score"]
		}
		if strField(event, "type") == "delegation" && isFalse(event["revocable"]) {
			recordJustification(event)
		}
		if strField(event, "type") == "consent" &&
			(truthy(event["bundled"]) || truthy(event["coerced"]) ||
				truthy(event["dark_pattern"]) || truthy(event["assumed_by_use"])) {
			recordJustification(event)
		}
		if strField(event, "type") == "telemetry" &&
			(truthy(event["prescriptive_use"]) ||
				(truthy(event["influences"]) && !truthy(event["explained"])) ||
				(truthy(event["influences"]) && !truthy(event["human_explainable"]))) {
			recordJustification(event)
		}
	}

	for _, receipt := range state.ReceiptLog {
		evidence := receiptEvidence(receipt)
		receiptType := strField(receipt, "type")
		// Receipts drive accountability checks even when events are missing.
		if receiptType == "decision_receipt" && isFalse(receipt["report_to_suser"]) {
			missingReportingEvidence = append(missingReportingEvidence, evidence)
		}
		if receiptType == "decision_receipt" {
			if decisionTime, ok := asInt(receipt["decision_time"]); ok && receipt["decision_time"] != nil {
				// Posthoc authority guard: a receipt must not cite a
				// delegation issued after the decision it covers.
				for _, entry := range listField(receipt, "authority_chain") {
					id, ok := entry.(string)
					if !ok {
						continue
					}
					delegation := state.Delegations[id]
					if delegation == nil {
						continue
					}
					if issuedAt, ok := asInt(delegation["issued_at"]); ok && delegation["issued_at"] != nil && issuedAt > decisionTime {
						report.Add(violations.TrustAuthorityUntraceable, []string{evidence})
						break
					}
				}
			}
		}
		if receiptType == "delegation_receipt" {
			if isFalse(receipt["explicit"]) || isFalse(receipt["scoped"]) || isFalse(receipt["revocable"]) {
				delegationInvalidEvidence = append(delegationInvalidEvidence, evidence)
			}
			if truthy(receipt["derived_from_use"]) {
				implicitDelegationEvidence = append(implicitDelegationEvidence, evidence)
			}
			if isFalse(receipt["suser_can_inspect"]) || isFalse(receipt["suser_can_contest"]) || isFalse(receipt["suser_can_revoke"]) {
				sovereigntyDisplacedEvidence = append(sovereigntyDisplacedEvidence, evidence)
			}
			if isFalse(receipt["revocable"]) {
				invalidState = true
			}
		}
		if receiptType == "consent_receipt" {
			if isFalse(receipt["informed"]) || isFalse(receipt["specific"]) ||
				isFalse(receipt["revocable"]) || isFalse(receipt["revocation_effective"]) {
				consentInvalidEvidence = append(consentInvalidEvidence, evidence)
			}
			if truthy(receipt["bundled"]) || truthy(receipt["coerced"]) ||
				truthy(receipt["dark_pattern"]) || truthy(receipt["assumed_by_use"]) {
				consentCoercedEvidence = append(consentCoercedEvidence, evidence)
				invalidState = true
			}
		}
		if receiptType == "telemetry_receipt" {
			if truthy(receipt["prescriptive_use"]) {
				telemetryPrescriptiveEvidence = append(telemetryPrescriptiveEvidence, evidence)
			}
			if truthy(receipt["influences"]) && !truthy(receipt["explained"]) {
				telemetryOpaqueEvidence = append(telemetryOpaqueEvidence, evidence)
				invalidState = true
			}
			if truthy(receipt["influences"]) && !truthy(receipt["human_explainable"]) {
				invalidState = true
			}
			if isFalse(receipt["reports_to_service"]) {
				telemetryReportingEvidence = append(telemetryReportingEvidence, evidence)
				missingReportingEvidence = append(missingReportingEvidence, evidence)
			}
		}
	}

	for _, id := range state.DelegationOrder {
		delegation := state.Delegations[id]
		evidence := []string{eventID(delegation)}
		if !truthy(delegation["explicit"]) || !truthy(delegation["scoped"]) || !truthy(delegation["revocable"]) {
			report.Add(violations.TrustDelegationInvalid, evidence)
		}
		if !truthy(delegation["suser_can_inspect"]) || !truthy(delegation["suser_can_contest"]) {
			report.Add(violations.TrustSovereigntyDisplaced, evidence)
		}
		if !truthy(delegation["suser_can_revoke"]) {
			report.Add(violations.TrustSovereigntyDisplaced, evidence)
		}
		if truthy(delegation["derived_from_use"]) {
			report.Add(violations.ConsentImplicitDelegation, evidence)
		}
		if !truthy(delegation["revocable"]) {
			invalidState = true
			recordJustification(delegation)
		}
	}

	for _, id := range state.ConsentOrder {
		consent := state.Consents[id]
		evidence := []string{eventID(consent)}
		if !truthy(consent["informed"]) || !truthy(consent["specific"]) ||
			!truthy(consent["revocable"]) || !truthy(consent["revocation_effective"]) {
			report.Add(violations.ConsentInvalid, evidence)
		}
		if truthy(consent["bundled"]) || truthy(consent["coerced"]) ||
			truthy(consent["dark_pattern"]) || truthy(consent["assumed_by_use"]) {
			report.Add(violations.ConsentCoercedOrOpaque, evidence)
			invalidState = true
			recordJustification(consent)
		}
	}

	for _, id := range state.TelemetryOrder {
		telemetry := state.Telemetry[id]
		evidence := []string{eventID(telemetry)}
		if truthy(telemetry["prescriptive_use"]) {
			report.Add(violations.TelemetryPrescriptiveUse, evidence)
		}
		if truthy(telemetry["influences"]) && !truthy(telemetry["explained"]) {
			report.Add(violations.TelemetryOpaqueInfluence, evidence)
			invalidState = true
			recordJustification(telemetry)
		}
		if truthy(telemetry["influences"]) && !truthy(telemetry["human_explainable"]) {
			invalidState = true
			recordJustification(telemetry)
		}
		if isFalse(telemetry["reports_to_service"]) {
			report.Add(violations.AccountabilityMissingReporting, evidence)
		}
	}

	for _, decision := range state.Decisions {
		evidence := []string{eventID(decision)}
		// Decisions must anchor authority to an identifiable S-User.
		if !truthy(decision["suser_id"]) {
			report.Add(violations.TrustSUserUnidentified, evidence)
			invalidState = true
			recordJustification(decision)
		}
		if truthy(decision["admin_override"]) {
			report.Add(violations.TrustSovereigntyAssumed, evidence)
		}
		delegationID := strField(decision, "delegation_id")
		delegation := state.Delegations[delegationID]
		decisionTime := state.Clock
		if v, present := decision["time"]; present && v != nil {
			decisionTime = coerceInt(v)
		}
		// Decision-time authority cannot be retroactively established.
		if delegation == nil || !valuesEqual(delegation["suser_id"], decision["suser_id"]) ||
			!delegationActiveAt(delegation, decisionTime) {
			report.Add(violations.TrustAuthorityUntraceable, evidence)
		}
		if truthy(decision["automated"]) && !truthy(decision["within_scope"]) {
			report.Add(violations.TrustAutonomyOverreach, evidence)
		}
		if truthy(decision["behavior_drift"]) && !truthy(decision["mutation_authority"]) {
			report.Add(violations.TrustAutonomyOverreach, evidence)
		}
		if !truthy(decision["disclosed"]) || !truthy(decision["justified"]) || !truthy(decision["basis_in_delegation"]) {
			report.Add(violations.ServiceSovereignSubstitution, evidence)
		}
		if truthy(decision["ordering_inverted"]) {
			report.Add(violations.TrustOrderingInverted, evidence)
		}
		if !truthy(decision["report_to_suser"]) {
			report.Add(violations.AccountabilityMissingReporting, evidence)
		}
		if truthy(decision["reporting_constraints"]) && !truthy(decision["reporting_constraints_disclosed"]) {
			report.Add(violations.AccountabilityMissingReporting, evidence)
		}
		if truthy(decision["report_to_suser"]) && !truthy(decision["explanation_legible"]) {
			report.Add(violations.AccountabilityIllegibleReporting, evidence)
		}
		if !truthy(decision["explanation_legible"]) {
			report.Add(violations.AccountabilityNonLegibleExplanation, evidence)
		}
		if !truthy(decision["explanation"]) {
			report.Add(violations.AccountabilityNonLegibleExplanation, evidence)
		}
		if isFalse(decision["explanation_contextual"]) {
			report.Add(violations.AccountabilityNonLegibleExplanation, evidence)
		}
		if !truthy(decision["contest_path"]) || !truthy(decision["revocation_path"]) {
			report.Add(violations.AccountabilityNonAccountableOutcome, evidence)
		}
		if !truthy(decision["authority_chain_complete"]) {
			report.Add(violations.TrustAccountabilityBreak, evidence)
		}
		telemetryRefs := mustList(decision, "telemetry_refs")
		// Aggregate influence must be attributable to named sources.
		if len(telemetryRefs) > 1 {
			if v, present := decision["telemetry_attribution_complete"]; present && !truthy(v) {
				report.Add(violations.TelemetryOpaqueInfluence, evidence)
			}
		}
		if truthy(decision["telemetry_aggregate"]) {
			// Falsy aggregate sources collapse to an empty list; a truthy
			// non-list is a structural fault.
			var aggregateSources []any
			if v := decision["telemetry_aggregate_sources"]; truthy(v) {
				l, ok := anyList(v)
				if !ok {
					fault("TypeError", "field %q has type %T, expected list", "telemetry_aggregate_sources", v)
				}
				aggregateSources = l
			}
			if len(aggregateSources) == 0 {
				report.Add(violations.TelemetryOpaqueInfluence, evidence)
			} else {
				for _, source := range aggregateSources {
					if s, ok := source.(string); !ok || !containsString(decision["telemetry_refs"], s) {
						report.Add(violations.TelemetryOpaqueInfluence, evidence)
						break
					}
				}
			}
		}
		if len(telemetryRefs) > 0 {
			usesSelfOriginating := false
			for _, ref := range telemetryRefs {
				id, ok := ref.(string)
				if !ok {
					continue
				}
				if t := state.Telemetry[id]; t != nil && truthy(t["self_originating"]) {
					usesSelfOriginating = true
					break
				}
			}
			// Self-originating telemetry requires explicit containment.
			if usesSelfOriginating && !truthy(decision["self_telemetry_contained"]) {
				report.Add(violations.TelemetryOpaqueInfluence, evidence)
			}
		}
		if chainOverride, present := decision["authority_chain_override"]; present && chainOverride != nil {
			chain, ok := anyList(chainOverride)
			if !ok {
				report.Add(violations.TrustAccountabilityBreak, evidence)
			} else {
				containsBranch := false
				for _, item := range chain {
					switch item.(type) {
					case []any, []string, map[string]any:
						containsBranch = true
					}
				}
				terminates := len(chain) > 0 && valuesEqual(chain[len(chain)-1], decision["suser_id"])
				if containsBranch || !terminates {
					report.Add(violations.TrustAccountabilityBreak, evidence)
				}
			}
		}
		if truthy(decision["lower_layer_authority_accumulation"]) || !truthy(decision["higher_layer_can_intervene"]) {
			report.Add(violations.TrustDirectionalityBreach, evidence)
		}
		if isFalse(decision["diagnostic_ready"]) {
			report.Add(violations.AccountabilityDiagnosticGap, evidence)
		}
		if truthy(decision["inferred_intent"]) {
			invalidState = true
			recordJustification(decision)
		}
		if consentID := strField(decision, "consent_id"); consentID != "" {
			if consent := state.Consents[consentID]; consent != nil && truthy(consent["withdrawn"]) {
				report.Add(violations.ConsentInvalid, evidence)
			}
		}
	}

	if invalidState {
		// Invalid states always surface even when specific violations exist.
		report.Add(violations.StructuralInvalidState, []string{"structural"})
		if len(justificationEvidence) > 0 {
			report.Add(violations.StructuralJustifiedInvalidity, justificationEvidence)
		}
	}

	if len(delegationInvalidEvidence) > 0 {
		report.Add(violations.TrustDelegationInvalid, delegationInvalidEvidence)
	}
	if len(implicitDelegationEvidence) > 0 {
		report.Add(violations.ConsentImplicitDelegation, implicitDelegationEvidence)
	}
	if len(sovereigntyDisplacedEvidence) > 0 {
		report.Add(violations.TrustSovereigntyDisplaced, sovereigntyDisplacedEvidence)
	}
	if len(consentInvalidEvidence) > 0 {
		report.Add(violations.ConsentInvalid, consentInvalidEvidence)
	}
	if len(consentCoercedEvidence) > 0 {
		report.Add(violations.ConsentCoercedOrOpaque, consentCoercedEvidence)
	}
	if len(telemetryPrescriptiveEvidence) > 0 {
		report.Add(violations.TelemetryPrescriptiveUse, telemetryPrescriptiveEvidence)
	}
	if len(telemetryOpaqueEvidence) > 0 {
		report.Add(violations.TelemetryOpaqueInfluence, telemetryOpaqueEvidence)
	}
	if len(telemetryReportingEvidence) > 0 {
		report.Add(violations.AccountabilityMissingReporting, telemetryReportingEvidence)
	}
	if len(missingReportingEvidence) > 0 {
		report.Add(violations.AccountabilityMissingReporting, missingReportingEvidence)
	}

	if audit := state.Audits["trust"]; audit != nil && !truthy(audit["minimum_met"]) {
		report.Add(violations.AuditTrustMinimumMissing, []string{eventID(audit)})
	}

	for _, disclosure := range state.Disclosures {
		if !truthy(disclosure["user_actionable"]) {
			report.Add(violations.AccountabilityNonActionableDisclosure, []string{eventID(disclosure)})
		}
	}

	for _, limitation := range state.LimitationDisclosures {
		if !truthy(limitation["limits_disclosed"]) {
			report.Add(violations.AccountabilityLimitsUndisclosed, []string{eventID(limitation)})
		}
	}

	for _, enforcement := range state.Enforcement {
		evidence := []string{eventID(enforcement)}
		if !truthy(enforcement["proportionate"]) || !truthy(enforcement["transparent"]) ||
			!truthy(enforcement["contestable"]) || isFalse(enforcement["reversible"]) ||
			truthy(enforcement["punitive"]) {
			report.Add(violations.EnforcementSovereigntyIncompatible, evidence)
		}
		if !truthy(enforcement["attributable"]) || !truthy(enforcement["enforcer_id"]) {
			report.Add(violations.EnforcementNoAttribution, evidence)
		}
	}

	for _, event := range state.EventLog {
		// Indeterminate properties default to non-compliant, never to pass.
		if truthy(event["undeterminable"]) {
			report.Add(violations.EvaluationUndeterminablePass, []string{"undeterminable"})
			break
		}
	}

	applyScore(report, score, true)
	attachDebug(report, state.EventLog, state.ReceiptLog)
	return report
}
