package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Synavera-Discorporated/trust-model/pkg/violations"
)

func compliantSharedAction(actor string, affected ...any) map[string]any {
	return map[string]any{
		"type":                     "shared_action",
		"environment_id":           "env1",
		"actor_suser_id":           actor,
		"affected_susers":          affected,
		"consent_basis":            "mutual",
		"consent_legible":          true,
		"boundary_constraints_met": true,
		"internal_accountable":     true,
		"influence_disclosed":      true,
	}
}

func TestEvaluateRespectCompliantSharedAction(t *testing.T) {
	state := applySequence(t, compliantSharedAction("alice", "alice", "bob"))
	report := EvaluateRespect(state)

	assert.Equal(t, "respect", report.Kind)
	assert.False(t, report.Has(violations.RespectUnilateralImpact))
	assert.False(t, report.Has(violations.RespectMutualConsentMissing))
	assert.False(t, report.Has(violations.RespectBoundaryIgnored))
}

func TestEvaluateRespectUnilateralSharedAction(t *testing.T) {
	action := compliantSharedAction("alice", "bob")
	action["consent_basis"] = "unilateral"
	state := applySequence(t, action)
	report := EvaluateRespect(state)

	assert.True(t, report.Has(violations.RespectUnilateralImpact))
	assert.True(t, report.Has(violations.RespectMutualConsentMissing))
	assert.True(t, report.Has(violations.RespectUnilateralConsentBasis))
}

func TestEvaluateRespectSelfOnlyActionIsNotUnilateral(t *testing.T) {
	action := compliantSharedAction("alice", "alice")
	action["consent_basis"] = "none"
	state := applySequence(t, action)
	report := EvaluateRespect(state)
	assert.False(t, report.Has(violations.RespectUnilateralImpact))
}

func TestEvaluateRespectContextLeak(t *testing.T) {
	action := compliantSharedAction("alice", "bob")
	action["cross_context"] = true
	state := applySequence(t, action)
	assert.True(t, EvaluateRespect(state).Has(violations.RespectContextLeak))

	action["renewed_consent"] = true
	renewed := applySequence(t, action)
	assert.False(t, EvaluateRespect(renewed).Has(violations.RespectContextLeak))
}

func TestEvaluateRespectEntryConditions(t *testing.T) {
	state := applySequence(t,
		map[string]any{"type": "entry_condition", "environment_id": "env1", "conditions_defined": false},
		map[string]any{"type": "entry_request", "environment_id": "env1",
			"entry_conditions_declared": true, "entry_conditions_met": false},
	)
	report := EvaluateRespect(state)

	index := report.EvidenceIndex()
	require.True(t, report.Has(violations.GovernanceMissingEntryConditions))
	assert.Contains(t, index[string(violations.GovernanceMissingEntryConditions)], "entry_condition:env1")
	assert.Contains(t, index[string(violations.GovernanceMissingEntryConditions)], "entry_request:env1")
}

func TestEvaluateRespectBoundaryRuleInterfaceGap(t *testing.T) {
	state := applySequence(t, map[string]any{
		"type": "boundary_rule", "environment_id": "env1", "interface_rules_present": false,
	})
	assert.True(t, EvaluateRespect(state).Has(violations.GovernanceInterfaceGap))

	silent := applySequence(t, map[string]any{
		"type": "boundary_rule", "environment_id": "env1",
	})
	// Absent interface rules are not the same as declared-absent ones.
	assert.False(t, EvaluateRespect(silent).Has(violations.GovernanceInterfaceGap))
}

func TestEvaluateRespectRevocationPolicyDefects(t *testing.T) {
	state := applySequence(t, map[string]any{
		"type": "revocation_policy", "environment_id": "env1",
		"monitoring": true, "revocation_legible": true, "revocation_contestable": false,
	})
	assert.True(t, EvaluateRespect(state).Has(violations.GovernanceRevocationDefect))

	undisclosedDelay := applySequence(t, map[string]any{
		"type": "revocation_policy", "environment_id": "env1",
		"monitoring": true, "revocation_legible": true, "revocation_contestable": true,
		"revocation_delay": 5,
	})
	assert.True(t, EvaluateRespect(undisclosedDelay).Has(violations.GovernanceRevocationDefect))
}

func TestEvaluateRespectRevocationDelayDisclosureOrdering(t *testing.T) {
	policy := map[string]any{
		"type": "revocation_policy", "environment_id": "env1",
		"monitoring": true, "revocation_legible": true, "revocation_contestable": true,
		"revocation_delay": 5, "revocation_delay_disclosed": true,
	}
	revoke := map[string]any{"type": "revoke_delegation", "delegation_id": "d1", "delay": 5}

	// Delay disclosed before the delayed revocation: no defect for the revoke.
	disclosedFirst := applySequence(t,
		policy,
		map[string]any{"type": "time_advance", "ticks": 1},
		compliantDelegation("d1", "alice", "svc"),
		revoke,
	)
	assert.False(t, EvaluateRespect(disclosedFirst).Has(violations.GovernanceRevocationDefect))

	// Revocation with delay lands before any disclosure existed.
	revokeFirst := applySequence(t,
		compliantDelegation("d1", "alice", "svc"),
		revoke,
		map[string]any{"type": "time_advance", "ticks": 1},
		policy,
	)
	assert.True(t, EvaluateRespect(revokeFirst).Has(violations.GovernanceRevocationDefect))
}

func TestEvaluateRespectImplicitBoundary(t *testing.T) {
	state := applySequence(t, map[string]any{
		"type": "boundary_declaration", "environment_id": "env1", "explicit": false,
	})
	assert.True(t, EvaluateRespect(state).Has(violations.RespectImplicitBoundaries))
}

func TestEvaluateRespectFederatedGap(t *testing.T) {
	state := applySequence(t, map[string]any{
		"type": "federated_governance", "environment_id": "env1",
		"entry_exit_defined": true, "non_interference": true,
		"auditability": false, "contestable": true,
	})
	assert.True(t, EvaluateRespect(state).Has(violations.GovernanceFederatedGap))
}

func TestEvaluateRespectFailureModes(t *testing.T) {
	state := applySequence(t, map[string]any{
		"type": "boundary_failure_modes", "environment_id": "env1",
		"hidden_influence": true,
	})
	assert.True(t, EvaluateRespect(state).Has(violations.GovernanceFailureModeIgnored))
}

func TestEvaluateRespectPrincipleBreach(t *testing.T) {
	state := applySequence(t, map[string]any{
		"type": "respect_principles", "environment_id": "env1",
		"boundary_integrity": true, "non_coercion": true, "mutual_legibility": true,
		"contextual_consent": true, "contestability": false,
	})
	assert.True(t, EvaluateRespect(state).Has(violations.RespectPrincipleBreach))
}

func TestEvaluateRespectOpaqueParticipation(t *testing.T) {
	state := applySequence(t, map[string]any{
		"type": "participation_declaration", "environment_id": "env1",
		"scope_declared": true, "influence_declared": true, "boundaries_declared": true,
		"enforcement_legible": true, "enforcement_proportionate": true,
		"enforcement_contestable": false,
	})
	assert.True(t, EvaluateRespect(state).Has(violations.RespectOpaqueEnforcement))
}

func compliantDefault(id string) map[string]any {
	return map[string]any{
		"type": "default_setting", "default_id": id,
		"justifiable": true, "reversible": true,
	}
}

func TestEvaluateRespectCoerciveDefault(t *testing.T) {
	def := compliantDefault("def1")
	def["exploits_bias"] = true
	state := applySequence(t, def)
	assert.True(t, EvaluateRespect(state).Has(violations.RespectCoerciveDefault))

	clean := applySequence(t, compliantDefault("def1"))
	assert.False(t, EvaluateRespect(clean).Has(violations.RespectCoerciveDefault))
}

func TestEvaluateRespectDefaultExpiryBecomesCoercive(t *testing.T) {
	def := compliantDefault("def1")
	def["duration"] = 10

	active := applySequence(t, def, map[string]any{"type": "time_advance", "ticks": 5})
	assert.False(t, EvaluateRespect(active).Has(violations.RespectCoerciveDefault))

	// A default left active past its expiry coerces by inertia.
	expired := applySequence(t, def, map[string]any{"type": "time_advance", "ticks": 10})
	assert.True(t, EvaluateRespect(expired).Has(violations.RespectCoerciveDefault))
}

func TestEvaluateRespectAuditMinimum(t *testing.T) {
	state := applySequence(t,
		map[string]any{"type": "respect_audit", "audit_id": "a1", "minimum_met": false},
	)
	assert.True(t, EvaluateRespect(state).Has(violations.AuditRespectMinimumMissing))
}

func TestEvaluateRespectEnforcementMirror(t *testing.T) {
	state := applySequence(t, map[string]any{
		"type": "enforcement", "enforcement_id": "e1", "enforcer_id": "svc",
		"proportionate": true, "transparent": true, "contestable": true,
		"attributable": true, "punitive": true,
	})
	report := EvaluateRespect(state)
	assert.True(t, report.Has(violations.EnforcementSovereigntyIncompatible))
	assert.False(t, report.Has(violations.EnforcementNoAttribution))
}

func TestEvaluateRespectTotalOverMalformedState(t *testing.T) {
	state := NewState()
	state.SharedActions = append(state.SharedActions, map[string]any{
		"type":            "shared_action",
		"actor_suser_id":  "alice",
		"affected_susers": "not-a-list",
	})

	report := EvaluateRespect(state)

	assert.Equal(t, "respect", report.Kind)
	assert.True(t, report.Has(violations.StructuralInvalidState))
	assert.True(t, report.Has(violations.TrustAccountabilityBreak))
	require.Contains(t, report.Debug, "evaluator_error")
}

func TestEvaluateRespectReductionismAndUndeterminable(t *testing.T) {
	state := applySequence(t,
		map[string]any{"type": "reductionist_metric", "score": 0.5},
		map[string]any{"type": "boundary_declaration", "environment_id": "env1",
			"explicit": true, "undeterminable": true},
	)
	report := EvaluateRespect(state)
	assert.True(t, report.Has(violations.EvaluationReductionism))
	assert.True(t, report.Has(violations.EvaluationUndeterminablePass))
	require.NotNil(t, report.Score)
	assert.InDelta(t, 0.5, *report.Score, 1e-9)
}

func TestEvaluateRespectEntryConditionOrderDeterministic(t *testing.T) {
	state := applySequence(t,
		map[string]any{"type": "entry_condition", "environment_id": "env-a", "conditions_defined": false},
		map[string]any{"type": "entry_condition", "environment_id": "env-b", "conditions_defined": false},
		map[string]any{"type": "entry_condition", "environment_id": "env-c", "conditions_defined": false},
	)

	baseline := EvaluateRespect(state)
	require.True(t, baseline.Has(violations.GovernanceMissingEntryConditions))
	for i := 0; i < 25; i++ {
		report := EvaluateRespect(state)
		require.Equal(t, baseline.Labels(), report.Labels())
		require.Equal(t, baseline.EvidenceIndex(), report.EvidenceIndex())
	}
}
