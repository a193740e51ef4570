package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Synavera-Discorporated/trust-model/pkg/violations"
)

func compliantServiceAction(id, suser, svc, delegation string) map[string]any {
	return map[string]any{
		"type":                       "service_action",
		"decision_id":                id,
		"suser_id":                   suser,
		"service_id":                 svc,
		"delegation_id":              delegation,
		"disclosed":                  true,
		"justified":                  true,
		"basis_in_delegation":        true,
		"report_to_suser":            true,
		"explanation":                "scheduled per standing delegation",
		"explanation_legible":        true,
		"contest_path":               "/contest",
		"revocation_path":            "/revoke",
		"authority_chain_complete":   true,
		"higher_layer_can_intervene": true,
	}
}

func TestEvaluateTrustCompliantBaseline(t *testing.T) {
	state := applySequence(t,
		compliantDelegation("d1", "alice", "svc"),
		compliantServiceAction("dec1", "alice", "svc", "d1"),
	)
	report := EvaluateTrust(state)

	assert.Equal(t, "trust", report.Kind)
	assert.False(t, report.Has(violations.TrustAuthorityUntraceable))
	assert.False(t, report.Has(violations.TrustDelegationInvalid))
	assert.False(t, report.Has(violations.ServiceSovereignSubstitution))
	assert.False(t, report.Has(violations.AccountabilityMissingReporting))
	assert.False(t, report.Has(violations.TrustAccountabilityBreak))
	assert.False(t, report.Has(violations.StructuralInvalidState))
	assert.Nil(t, report.Score)
}

func TestEvaluateTrustExpiredDelegation(t *testing.T) {
	delegation := compliantDelegation("d1", "alice", "svc")
	delegation["scope"] = map[string]any{"duration": 10}
	state := applySequence(t,
		delegation,
		map[string]any{"type": "time_advance", "ticks": 15},
		compliantServiceAction("dec1", "alice", "svc", "d1"),
	)
	report := EvaluateTrust(state)
	assert.True(t, report.Has(violations.TrustAuthorityUntraceable))
}

func TestEvaluateTrustScheduledRevocationWindow(t *testing.T) {
	events := []map[string]any{
		compliantDelegation("d1", "alice", "svc"),
		{"type": "time_advance", "ticks": 3},
		{"type": "revoke_delegation", "delegation_id": "d1", "delay": 4, "delay_disclosed": true},
		{"type": "time_advance", "ticks": 2},
	}

	// At t=5 the revocation is requested but not yet effective.
	before := applySequence(t, append(events,
		compliantServiceAction("dec1", "alice", "svc", "d1"))...)
	assert.False(t, EvaluateTrust(before).Has(violations.TrustAuthorityUntraceable))

	// At t=8 the scheduled revocation has taken effect.
	after := applySequence(t, append(events,
		map[string]any{"type": "time_advance", "ticks": 3},
		compliantServiceAction("dec2", "alice", "svc", "d1"))...)
	assert.True(t, EvaluateTrust(after).Has(violations.TrustAuthorityUntraceable))
}

func TestEvaluateTrustPosthocDelegation(t *testing.T) {
	// The decision precedes the delegation it claims authority from; a later
	// passing audit cannot launder the inversion.
	state := applySequence(t,
		compliantServiceAction("dec1", "alice", "svc", "d1"),
		map[string]any{"type": "time_advance", "ticks": 5},
		compliantDelegation("d1", "alice", "svc"),
		map[string]any{"type": "trust_audit", "audit_id": "a1", "minimum_met": true},
	)
	report := EvaluateTrust(state)
	assert.True(t, report.Has(violations.TrustAuthorityUntraceable))
	assert.False(t, report.Has(violations.AuditTrustMinimumMissing))
}

func TestEvaluateTrustPosthocAuthorityInReceiptChain(t *testing.T) {
	action := compliantServiceAction("dec1", "alice", "svc", "d1")
	action["authority_chain_override"] = []any{"d1", "alice"}
	state := applySequence(t,
		action,
		map[string]any{"type": "time_advance", "ticks": 5},
		compliantDelegation("d1", "alice", "svc"),
	)
	report := EvaluateTrust(state)

	require.True(t, report.Has(violations.TrustAuthorityUntraceable))
	index := report.EvidenceIndex()
	assert.Contains(t, index[string(violations.TrustAuthorityUntraceable)], "receipt:1")
}

func TestEvaluateTrustWithdrawnConsent(t *testing.T) {
	action := compliantServiceAction("dec1", "alice", "svc", "d1")
	action["consent_id"] = "c1"
	state := applySequence(t,
		compliantDelegation("d1", "alice", "svc"),
		map[string]any{"type": "consent", "consent_id": "c1", "suser_id": "alice",
			"informed": true, "specific": true, "revocable": true, "revocation_effective": true},
		map[string]any{"type": "withdraw_consent", "consent_id": "c1"},
		action,
	)
	report := EvaluateTrust(state)
	assert.True(t, report.Has(violations.ConsentInvalid))
}

func TestEvaluateTrustCoercedConsentInvalidatesState(t *testing.T) {
	state := applySequence(t, map[string]any{
		"type": "consent", "consent_id": "c1", "suser_id": "alice",
		"informed": true, "specific": true, "revocable": true, "revocation_effective": true,
		"dark_pattern": true, "justification": "growth experiment",
	})
	report := EvaluateTrust(state)

	assert.True(t, report.Has(violations.ConsentCoercedOrOpaque))
	assert.True(t, report.Has(violations.StructuralInvalidState))
	require.True(t, report.Has(violations.StructuralJustifiedInvalidity))
	index := report.EvidenceIndex()
	assert.Contains(t, index[string(violations.StructuralJustifiedInvalidity)],
		"consent:c1:justification:growth experiment")
}

func TestEvaluateTrustIrrevocableDelegation(t *testing.T) {
	delegation := compliantDelegation("d1", "alice", "svc")
	delegation["revocable"] = false
	state := applySequence(t, delegation)
	report := EvaluateTrust(state)

	assert.True(t, report.Has(violations.TrustDelegationInvalid))
	assert.True(t, report.Has(violations.StructuralInvalidState))
}

func TestEvaluateTrustImplicitDelegation(t *testing.T) {
	delegation := compliantDelegation("d1", "alice", "svc")
	delegation["derived_from_use"] = true
	state := applySequence(t, delegation)
	report := EvaluateTrust(state)
	assert.True(t, report.Has(violations.ConsentImplicitDelegation))
}

func TestEvaluateTrustPrescriptiveTelemetry(t *testing.T) {
	state := applySequence(t, map[string]any{
		"type": "telemetry", "telemetry_id": "t1",
		"influences": true, "explained": true, "human_explainable": true,
		"prescriptive_use": true, "reports_to_service": true,
	})
	report := EvaluateTrust(state)

	require.True(t, report.Has(violations.TelemetryPrescriptiveUse))
	// The violation is reported for both the telemetry record and its receipt.
	index := report.EvidenceIndex()
	assert.Contains(t, index[string(violations.TelemetryPrescriptiveUse)], "telemetry:t1")
	assert.Contains(t, index[string(violations.TelemetryPrescriptiveUse)], "receipt:1")
}

func TestEvaluateTrustOpaqueTelemetryInvalidatesState(t *testing.T) {
	state := applySequence(t, map[string]any{
		"type": "telemetry", "telemetry_id": "t1",
		"influences": true, "explained": false, "human_explainable": true,
		"reports_to_service": true,
	})
	report := EvaluateTrust(state)
	assert.True(t, report.Has(violations.TelemetryOpaqueInfluence))
	assert.True(t, report.Has(violations.StructuralInvalidState))
}

func TestEvaluateTrustSelfOriginatingTelemetry(t *testing.T) {
	action := compliantServiceAction("dec1", "alice", "svc", "d1")
	action["telemetry_refs"] = []any{"t1"}
	state := applySequence(t,
		compliantDelegation("d1", "alice", "svc"),
		map[string]any{"type": "telemetry", "telemetry_id": "t1",
			"influences": true, "explained": true, "human_explainable": true,
			"reports_to_service": true, "self_originating": true},
		action,
	)
	report := EvaluateTrust(state)
	assert.True(t, report.Has(violations.TelemetryOpaqueInfluence))

	action["self_telemetry_contained"] = true
	contained := applySequence(t,
		compliantDelegation("d1", "alice", "svc"),
		map[string]any{"type": "telemetry", "telemetry_id": "t1",
			"influences": true, "explained": true, "human_explainable": true,
			"reports_to_service": true, "self_originating": true},
		action,
	)
	assert.False(t, EvaluateTrust(contained).Has(violations.TelemetryOpaqueInfluence))
}

func TestEvaluateTrustBranchingChainOverride(t *testing.T) {
	action := compliantServiceAction("dec1", "alice", "svc", "d1")
	action["authority_chain_override"] = []any{"d1", []any{"alice", "bob"}}
	state := applySequence(t,
		compliantDelegation("d1", "alice", "svc"),
		action,
	)
	report := EvaluateTrust(state)
	assert.True(t, report.Has(violations.TrustAccountabilityBreak))
}

func TestEvaluateTrustAdminOverride(t *testing.T) {
	action := compliantServiceAction("dec1", "alice", "svc", "d1")
	action["admin_override"] = true
	state := applySequence(t, compliantDelegation("d1", "alice", "svc"), action)
	assert.True(t, EvaluateTrust(state).Has(violations.TrustSovereigntyAssumed))
}

func TestEvaluateTrustAuditMinimum(t *testing.T) {
	state := applySequence(t,
		map[string]any{"type": "trust_audit", "audit_id": "a1", "minimum_met": false},
	)
	assert.True(t, EvaluateTrust(state).Has(violations.AuditTrustMinimumMissing))

	met := applySequence(t,
		map[string]any{"type": "trust_audit", "audit_id": "a1", "minimum_met": true},
	)
	assert.False(t, EvaluateTrust(met).Has(violations.AuditTrustMinimumMissing))
}

func TestEvaluateTrustDisclosuresAndLimits(t *testing.T) {
	state := applySequence(t,
		map[string]any{"type": "disclosure", "disclosure_id": "dis1", "user_actionable": false},
		map[string]any{"type": "limitation_disclosure", "limitation_id": "lim1", "limits_disclosed": false},
	)
	report := EvaluateTrust(state)
	assert.True(t, report.Has(violations.AccountabilityNonActionableDisclosure))
	assert.True(t, report.Has(violations.AccountabilityLimitsUndisclosed))
}

func TestEvaluateTrustEnforcementAttribution(t *testing.T) {
	state := applySequence(t, map[string]any{
		"type": "enforcement", "enforcement_id": "e1",
		"proportionate": true, "transparent": true, "contestable": true,
		"attributable": true,
	})
	report := EvaluateTrust(state)
	// Attributable but anonymous enforcement still fails attribution.
	assert.True(t, report.Has(violations.EnforcementNoAttribution))
	assert.False(t, report.Has(violations.EnforcementSovereigntyIncompatible))
}

func TestEvaluateTrustReductionistScore(t *testing.T) {
	state := applySequence(t,
		map[string]any{"type": "reductionist_metric", "score": 0.87},
	)
	report := EvaluateTrust(state)
	assert.True(t, report.Has(violations.EvaluationReductionism))
	require.NotNil(t, report.Score)
	assert.InDelta(t, 0.87, *report.Score, 1e-9)
}

func TestEvaluateTrustUndeterminable(t *testing.T) {
	delegation := compliantDelegation("d1", "alice", "svc")
	delegation["undeterminable"] = true
	state := applySequence(t, delegation)
	assert.True(t, EvaluateTrust(state).Has(violations.EvaluationUndeterminablePass))
}

func TestEvaluateTrustLabelOrderDeterministic(t *testing.T) {
	implicit := compliantDelegation("d-implicit", "alice", "svc")
	implicit["derived_from_use"] = true
	irrevocable := compliantDelegation("d-irrevocable", "bob", "svc")
	irrevocable["revocable"] = false
	displaced := compliantDelegation("d-displaced", "carol", "svc")
	displaced["suser_can_inspect"] = false

	state := applySequence(t, implicit, irrevocable, displaced)

	baseline := EvaluateTrust(state)
	require.NotEmpty(t, baseline.Labels())
	for i := 0; i < 25; i++ {
		report := EvaluateTrust(state)
		require.Equal(t, baseline.Labels(), report.Labels())
		require.Equal(t, baseline.EvidenceIndex(), report.EvidenceIndex())
	}
}

func TestEvaluateTrustTelemetryInertia(t *testing.T) {
	compliant := map[string]any{
		"type": "telemetry", "telemetry_id": "t1",
		"influences": true, "explained": true, "human_explainable": true,
		"reports_to_service": true,
	}
	once := EvaluateTrust(applySequence(t, compliant))
	thrice := EvaluateTrust(applySequence(t, compliant, compliant, compliant))
	assert.Empty(t, once.Labels())
	assert.Empty(t, thrice.Labels())

	flagged := map[string]any{
		"type": "telemetry", "telemetry_id": "t2",
		"influences": true, "explained": true, "human_explainable": true,
		"prescriptive_use": true, "reports_to_service": true,
	}
	onceFlagged := EvaluateTrust(applySequence(t, flagged))
	thriceFlagged := EvaluateTrust(applySequence(t, flagged, flagged, flagged))
	assert.Equal(t, distinctLabels(onceFlagged), distinctLabels(thriceFlagged))
}

func distinctLabels(report *violations.Report) []string {
	seen := make(map[string]bool)
	var out []string
	for _, label := range report.Labels() {
		if !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	return out
}

func TestEvaluateTrustTotalOverMalformedState(t *testing.T) {
	state := NewState()
	state.Decisions = append(state.Decisions, map[string]any{
		"type":        "service_action",
		"decision_id": "dec1",
		"suser_id":    "alice",
		// A scalar where a list is required must classify, not crash.
		"telemetry_refs": 5,
	})

	report := EvaluateTrust(state)

	assert.True(t, report.Has(violations.StructuralInvalidState))
	assert.True(t, report.Has(violations.TrustAccountabilityBreak))
	index := report.EvidenceIndex()
	assert.Contains(t, index[string(violations.StructuralInvalidState)], "evaluator")

	require.Contains(t, report.Debug, "evaluator_error")
	detail, ok := report.Debug["evaluator_error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "TypeError", detail["type"])
}

func TestEvaluateTrustDebugCarriesLogs(t *testing.T) {
	state := applySequence(t, compliantDelegation("d1", "alice", "svc"))
	report := EvaluateTrust(state)
	assert.Equal(t, state.EventLog, report.Debug["events"])
	assert.Equal(t, state.ReceiptLog, report.Debug["receipts"])
}
