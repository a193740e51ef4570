package trust

import (
	"github.com/Synavera-Discorporated/trust-model/pkg/violations"
)

// EvaluateRespect scans the state for shared-environment violations: boundary
// integrity, mutual consent, entry conditions, revocation policy, federated
// governance, defaults, and enforcement. Total over malformed input.
func EvaluateRespect(state *State) *violations.Report {
	return evaluateTotal("respect", state, evaluateRespectUnsafe)
}

func evaluateRespectUnsafe(state *State) *violations.Report {
	report := violations.NewReport("respect")

	// Track the earliest delay disclosure so later revocations are judged
	// against what the S-User could have known at the time.
	disclosedAt := -1
	for _, event := range state.EventLog {
		if strField(event, "type") == "revocation_policy" &&
			truthy(event["revocation_delay"]) && truthy(event["revocation_delay_disclosed"]) {
			eventTime := mustIntOr0(event["time"])
			if disclosedAt < 0 || eventTime < disclosedAt {
				disclosedAt = eventTime
			}
		}
	}

	var score any
	for _, event := range state.EventLog {
		if strField(event, "type") == "reductionist_metric" {
			score = event["score"]
		}
	}

	for _, action := range state.SharedActions {
		evidence := []string{eventID(action)}
		// Shared actions are judged on consent, scope, and boundary integrity.
		actor := action["actor_suser_id"]
		affectsOthers := false
		for _, suser := range mustList(action, "affected_susers") {
			if !valuesEqual(suser, actor) {
				affectsOthers = true
				break
			}
		}
		consentBasis := strField(action, "consent_basis")
		if affectsOthers && consentBasis != "mutual" && consentBasis != "federated" {
			report.Add(violations.RespectUnilateralImpact, evidence)
			report.Add(violations.RespectMutualConsentMissing, evidence)
		}
		if affectsOthers && !truthy(action["consent_legible"]) {
			report.Add(violations.RespectUnilateralImpact, evidence)
		}
		if !truthy(action["boundary_constraints_met"]) || !truthy(action["internal_accountable"]) {
			report.Add(violations.RespectBoundaryIgnored, evidence)
		}
		if truthy(action["cross_context"]) && !truthy(action["renewed_consent"]) {
			report.Add(violations.RespectContextLeak, evidence)
		}
		if affectsOthers && !truthy(action["influence_disclosed"]) {
			report.Add(violations.RespectNonInterferenceBreach, evidence)
		}
		if affectsOthers && consentBasis == "unilateral" {
			report.Add(violations.RespectUnilateralConsentBasis, evidence)
		}
		if affectsOthers && consentBasis == "none" && !truthy(action["scope_constrained"]) {
			report.Add(violations.RespectMutualConsentMissing, evidence)
		}
		if isFalse(action["diagnostic_ready"]) {
			report.Add(violations.RespectDiagnosticGap, evidence)
		}
	}

	for _, id := range state.EntryConditionOrder {
		entry := state.EntryConditions[id]
		// Entry conditions must exist before access is granted.
		if !truthy(entry["conditions_defined"]) {
			report.Add(violations.GovernanceMissingEntryConditions, []string{eventID(entry)})
		}
	}

	for _, event := range state.EventLog {
		switch strField(event, "type") {
		case "entry_request":
			if !truthy(event["entry_conditions_declared"]) || !truthy(event["entry_conditions_met"]) {
				report.Add(violations.GovernanceMissingEntryConditions, []string{eventID(event)})
			}
		case "boundary_rule":
			if isFalse(event["interface_rules_present"]) {
				report.Add(violations.GovernanceInterfaceGap, []string{eventID(event)})
			}
		case "revocation_policy":
			evidence := []string{eventID(event)}
			if !truthy(event["monitoring"]) || !truthy(event["revocation_legible"]) ||
				!truthy(event["revocation_contestable"]) {
				report.Add(violations.GovernanceRevocationDefect, evidence)
			}
			if truthy(event["revocation_delay"]) && !truthy(event["revocation_delay_disclosed"]) {
				report.Add(violations.GovernanceRevocationDefect, evidence)
			}
		case "revoke_delegation":
			if delay := mustIntOr0(event["delay"]); delay != 0 {
				disclosed, present := event["delay_disclosed"]
				eventTime := mustIntOr0(event["time"])
				undisclosed := (!present || disclosed == nil) &&
					(disclosedAt < 0 || eventTime < disclosedAt)
				if isFalse(disclosed) || undisclosed {
					report.Add(violations.GovernanceRevocationDefect, []string{eventID(event)})
				}
			}
		case "boundary_declaration":
			if !truthy(event["explicit"]) {
				report.Add(violations.RespectImplicitBoundaries, []string{eventID(event)})
			}
		case "federated_governance":
			if !truthy(event["entry_exit_defined"]) || !truthy(event["non_interference"]) ||
				!truthy(event["auditability"]) || !truthy(event["contestable"]) {
				report.Add(violations.GovernanceFederatedGap, []string{eventID(event)})
			}
		case "boundary_failure_modes":
			if truthy(event["implicit_consent"]) || truthy(event["opaque_enforcement"]) ||
				truthy(event["hidden_influence"]) || truthy(event["irrevocable_participation"]) {
				report.Add(violations.GovernanceFailureModeIgnored, []string{eventID(event)})
			}
		case "respect_principles":
			if !truthy(event["boundary_integrity"]) || !truthy(event["non_coercion"]) ||
				!truthy(event["mutual_legibility"]) || !truthy(event["contextual_consent"]) ||
				!truthy(event["contestability"]) {
				report.Add(violations.RespectPrincipleBreach, []string{eventID(event)})
			}
		case "participation_declaration":
			if !truthy(event["scope_declared"]) || !truthy(event["influence_declared"]) ||
				!truthy(event["boundaries_declared"]) || !truthy(event["enforcement_legible"]) ||
				!truthy(event["enforcement_proportionate"]) || !truthy(event["enforcement_contestable"]) {
				report.Add(violations.RespectOpaqueEnforcement, []string{eventID(event)})
			}
		}
	}

	for _, def := range state.Defaults {
		evidence := []string{eventID(def)}
		// Defaults must remain reversible and non-coercive over time.
		expired := false
		if expiresAt, ok := asInt(def["expires_at"]); ok && def["expires_at"] != nil {
			active, present := def["active"]
			expired = (!present || truthy(active)) && state.Clock >= expiresAt
		}
		if truthy(def["exploits_bias"]) || truthy(def["expands_scope"]) ||
			truthy(def["privileges_platform"]) || !truthy(def["justifiable"]) ||
			!truthy(def["reversible"]) || expired {
			report.Add(violations.RespectCoerciveDefault, evidence)
		}
	}

	if audit := state.Audits["respect"]; audit != nil && !truthy(audit["minimum_met"]) {
		report.Add(violations.AuditRespectMinimumMissing, []string{eventID(audit)})
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
		if truthy(event["undeterminable"]) {
			report.Add(violations.EvaluationUndeterminablePass, []string{"undeterminable"})
			break
		}
	}

	applyScore(report, score, true)
	attachDebug(report, state.EventLog, state.ReceiptLog)
	return report
}
