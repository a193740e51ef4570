package exemplar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Synavera-Discorporated/trust-model/pkg/trust"
)

func invalidConsentEvents() []map[string]any {
	return []map[string]any{
		{"type": "consent", "consent_id": "c1", "suser_id": "alice",
			"informed": false, "specific": true, "revocable": true, "revocation_effective": true},
	}
}

func captureBundle(t *testing.T, id, kind string, events []map[string]any) *Bundle {
	t.Helper()
	state := trust.NewState()
	for _, event := range events {
		state, _ = trust.ApplyEvent(state, event)
	}
	report := trust.EvaluateTrust(state)
	if kind == "respect" {
		report = trust.EvaluateRespect(state)
	}
	return BuildBundle(id, kind, state.EventLog, state.ReceiptLog, report,
		Source{TestName: t.Name(), Profile: "ci"})
}

func TestBuildBundleStripsVolatileFields(t *testing.T) {
	bundle := captureBundle(t, "ex-invalid-consent", "trust", invalidConsentEvents())

	require.Len(t, bundle.Events, 1)
	assert.NotContains(t, bundle.Events[0], "event_hash")
	assert.NotContains(t, bundle.Events[0], "event_hash_prev")
	assert.NotContains(t, bundle.Events[0], "time_utc")
	assert.Contains(t, bundle.Events[0], "time")

	require.NotEmpty(t, bundle.Receipts)
	assert.NotContains(t, bundle.Receipts[0], "receipt_id")
	assert.NotContains(t, bundle.Receipts[0], "receipt_hash")

	assert.Contains(t, bundle.Violations.Labels, "CONSENT_VIOLATION.INVALID_CONSENT")
	assert.Equal(t, FormatVersion, bundle.FormatVersion)
}

func TestBuildBundleGeneratesID(t *testing.T) {
	a := captureBundle(t, "", "trust", invalidConsentEvents())
	b := captureBundle(t, "", "trust", invalidConsentEvents())
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestReplayReproducesViolations(t *testing.T) {
	bundle := captureBundle(t, "ex-replay", "trust", invalidConsentEvents())

	state, report, err := Replay(bundle)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.NotEmpty(t, report.Violations)
}

func TestReplayDetectsLabelDrift(t *testing.T) {
	bundle := captureBundle(t, "ex-drift", "trust", invalidConsentEvents())
	bundle.Violations.Labels = append(bundle.Violations.Labels, "TRUST_VIOLATION.SOVEREIGNTY_ASSUMED")

	_, _, err := Replay(bundle)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "labels diverged")
}

func TestReplayTrustViewKind(t *testing.T) {
	state := trust.NewState()
	state, _ = trust.ApplyEvent(state, map[string]any{
		"type": "service_action", "decision_id": "dec1",
		"suser_id": "alice", "service_id": "svc",
	})
	report := trust.EvaluateTrustView(state, "alice")
	bundle := BuildBundle("ex-view", "trust_view", state.EventLog, state.ReceiptLog, report,
		Source{TestName: t.Name(), SUserID: "alice"})

	_, replayed, err := Replay(bundle)
	require.NoError(t, err)
	assert.Contains(t, replayed.Labels(), "ACCOUNTABILITY_VIOLATION.NON_LEGIBLE_EXPLANATION")
}

func TestReplayRejectsUnknownKind(t *testing.T) {
	bundle := captureBundle(t, "ex-kind", "trust", invalidConsentEvents())
	bundle.Kind = "karma"
	_, _, err := Replay(bundle)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, CheckFormat("1.0.0"))
	assert.NoError(t, CheckFormat("1.9.3"))
	assert.Error(t, CheckFormat("2.0.0"))
	assert.Error(t, CheckFormat("garbage"))
}

func TestRenderMarkdown(t *testing.T) {
	bundle := captureBundle(t, "ex-render", "trust", invalidConsentEvents())
	bundle.Notes = "captured from a failing consent scenario"

	md := RenderMarkdown(bundle)
	assert.Contains(t, md, "# Exemplar ex-render")
	assert.Contains(t, md, "CONSENT_VIOLATION.INVALID_CONSENT")
	assert.Contains(t, md, "Consent integrity failed (invalid consent).")
	assert.Contains(t, md, "## What Would Make This Valid")
	assert.Contains(t, md, "## Notes")
}
