package trust

// QueryDecision returns the audit summary for a decision id: origin service,
// data influence, the S-User holding authorise/inspect/revoke powers, and the
// legible explanation. The latest matching decision wins. Missing decisions
// return a minimal non-legible response rather than an error.
func QueryDecision(state *State, decisionID string) map[string]any {
	var decision map[string]any
	for i := len(state.Decisions) - 1; i >= 0; i-- {
		if valuesEqual(state.Decisions[i]["decision_id"], decisionID) {
			decision = state.Decisions[i]
			break
		}
	}
	if decision == nil {
		return map[string]any{"decision_id": decisionID, "legible": false}
	}
	dataInfluence := decision["telemetry_refs"]
	if _, present := decision["telemetry_refs"]; !present {
		dataInfluence = []any{}
	}
	affected := decision["affected_susers"]
	if _, present := decision["affected_susers"]; !present {
		affected = []any{}
	}
	return map[string]any{
		"decision_id":     decisionID,
		"origin":          decision["service_id"],
		"data_influence":  dataInfluence,
		"authoriser":      decision["suser_id"],
		"inspector":       decision["suser_id"],
		"revoker":         decision["suser_id"],
		"legible":         decision["explanation_legible"],
		"explanation":     decision["explanation"],
		"context_id":      decision["context_id"],
		"affected_susers": affected,
	}
}
