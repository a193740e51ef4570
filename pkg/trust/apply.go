package trust

import (
	"fmt"

	"github.com/Synavera-Discorporated/trust-model/pkg/canonicalize"
)

// knownEventTypes is the closed set of event kinds the engine dispatches on.
// Anything else is rewritten to an error pseudo-event rather than rejected.
var knownEventTypes = map[string]bool{
	"delegation":                true,
	"revoke_delegation":         true,
	"consent":                   true,
	"withdraw_consent":          true,
	"telemetry":                 true,
	"service_action":            true,
	"shared_action":             true,
	"time_advance":              true,
	"boundary_declaration":      true,
	"entry_condition":           true,
	"entry_request":             true,
	"boundary_rule":             true,
	"revocation_policy":         true,
	"default_setting":           true,
	"federated_governance":      true,
	"boundary_failure_modes":    true,
	"respect_principles":        true,
	"participation_declaration": true,
	"trust_audit":               true,
	"respect_audit":             true,
	"enforcement":               true,
	"disclosure":                true,
	"limitation_disclosure":     true,
	"reductionist_metric":       true,
}

// ApplyEvent folds one event into the state and returns the new snapshot
// plus the receipts emitted for this event. It is total over any map-shaped
// event and never mutates the input state.
func ApplyEvent(state *State, event map[string]any) (*State, []map[string]any) {
	ns := state.Clone()
	eventTime := ns.Clock
	ev := make(map[string]any, len(event))
	for k, v := range event {
		ev[k] = v
	}
	var receipts []map[string]any

	// Strip upstream hash/time metadata so the chain is rebuilt locally and
	// cannot be gamed by replaying already-stamped payloads.
	originalType, hasType := ev["type"]
	delete(ev, "event_hash")
	delete(ev, "event_hash_prev")
	delete(ev, "time_utc")

	eventTimeUTC := ns.eventTimeUTC(eventTime)

	typeName, typeIsString := originalType.(string)
	if !hasType || originalType == nil || !typeIsString || !knownEventTypes[typeName] {
		var origForReceipt any
		errText := "missing_event_type"
		if hasType && originalType != nil {
			origForReceipt = originalType
			errText = fmt.Sprintf("unknown_event_type:%v", originalType)
		}
		ev["type"] = "error"
		ev["original_type"] = origForReceipt
		ev["error"] = errText
		ns.stampEvent(ev, eventTime, eventTimeUTC)

		receipt := map[string]any{
			"type":       "error_receipt",
			"event_type": origForReceipt,
			"error":      errText,
		}
		ns.finalizeReceipt(receipt, eventTime, eventTimeUTC)
		receipts = append(receipts, receipt)
		ns.ReceiptLog = append(ns.ReceiptLog, receipts...)
		return ns, receipts
	}

	ns.stampEvent(ev, eventTime, eventTimeUTC)

	addReceipt := func(data map[string]any) {
		ns.finalizeReceipt(data, eventTime, eventTimeUTC)
		receipts = append(receipts, data)
	}

	switch typeName {
	case "delegation":
		delegationID := strField(ev, "delegation_id")
		scope := mapField(ev, "scope")
		var expiresAt any = ev["expires_at"]
		if expiresAt == nil && scope != nil && scope["duration"] != nil {
			if duration, ok := asInt(scope["duration"]); ok {
				expiresAt = eventTime + duration
			}
		}
		ev["issued_at"] = eventTime
		ev["expires_at"] = expiresAt
		putIndexed(ns.Delegations, &ns.DelegationOrder, delegationID, ev)
		ns.SUsers[strField(ev, "suser_id")] = true
		ns.Services[strField(ev, "grantee_id")] = true
		addReceipt(map[string]any{
			"type":              "delegation_receipt",
			"delegation_id":     delegationID,
			"suser_id":          ev["suser_id"],
			"grantee_id":        ev["grantee_id"],
			"explicit":          ev["explicit"],
			"scoped":            ev["scoped"],
			"revocable":         ev["revocable"],
			"suser_can_inspect": ev["suser_can_inspect"],
			"suser_can_contest": ev["suser_can_contest"],
			"suser_can_revoke":  ev["suser_can_revoke"],
			"derived_from_use":  ev["derived_from_use"],
			"scope":             ev["scope"],
			"revocation_path":   ev["revocation_path"],
			"issued_at":         eventTime,
			"expires_at":        expiresAt,
		})

	case "revoke_delegation":
		delegationID := strField(ev, "delegation_id")
		delay := mustIntOr0(ev["delay"])
		effectiveAt := eventTime + delay
		if delegation, ok := ns.Delegations[delegationID]; ok {
			delegation["revocation_requested_at"] = eventTime
			delegation["revocation_effective_at"] = effectiveAt
			if delay == 0 {
				delegation["revoked"] = true
			}
		}
		addReceipt(map[string]any{
			"type":            "delegation_revocation_receipt",
			"delegation_id":   delegationID,
			"revoked":         delay == 0,
			"delay":           delay,
			"delay_disclosed": ev["delay_disclosed"],
			"requested_at":    eventTime,
			"effective_at":    effectiveAt,
		})

	case "consent":
		consentID := strField(ev, "consent_id")
		putIndexed(ns.Consents, &ns.ConsentOrder, consentID, ev)
		ns.SUsers[strField(ev, "suser_id")] = true
		addReceipt(map[string]any{
			"type":                 "consent_receipt",
			"consent_id":           consentID,
			"suser_id":             ev["suser_id"],
			"purpose":              ev["purpose"],
			"informed":             ev["informed"],
			"specific":             ev["specific"],
			"revocable":            ev["revocable"],
			"revocation_effective": ev["revocation_effective"],
			"bundled":              ev["bundled"],
			"coerced":              ev["coerced"],
			"dark_pattern":         ev["dark_pattern"],
			"assumed_by_use":       ev["assumed_by_use"],
		})

	case "withdraw_consent":
		consentID := strField(ev, "consent_id")
		if consent, ok := ns.Consents[consentID]; ok {
			consent["withdrawn"] = true
		}
		addReceipt(map[string]any{
			"type":       "consent_withdrawal_receipt",
			"consent_id": consentID,
			"withdrawn":  true,
		})

	case "telemetry":
		telemetryID := strField(ev, "telemetry_id")
		putIndexed(ns.Telemetry, &ns.TelemetryOrder, telemetryID, ev)
		ns.TelemetrySources[telemetryID] = true
		ns.TelemetryExposure[telemetryID]++
		addReceipt(map[string]any{
			"type":               "telemetry_receipt",
			"telemetry_id":       telemetryID,
			"influences":         ev["influences"],
			"explained":          ev["explained"],
			"human_explainable":  ev["human_explainable"],
			"prescriptive_use":   ev["prescriptive_use"],
			"reports_to_service": ev["reports_to_service"],
			"self_originating":   ev["self_originating"],
			"exposure_count":     ns.TelemetryExposure[telemetryID],
		})

	case "service_action":
		decisionID := strField(ev, "decision_id")
		ns.Decisions = append(ns.Decisions, ev)
		ns.Services[strField(ev, "service_id")] = true
		ns.SUsers[strField(ev, "suser_id")] = true
		delegationID := strField(ev, "delegation_id")
		var authorityChain []any
		if chainOverride, present := ev["authority_chain_override"]; present && chainOverride != nil {
			l, ok := anyList(chainOverride)
			if !ok {
				l = []any{chainOverride}
			}
			authorityChain = append([]any{}, l...)
		} else if delegation, ok := ns.Delegations[delegationID]; ok {
			authorityChain = []any{delegationID, delegation["suser_id"]}
		}
		addReceipt(map[string]any{
			"type":                            "decision_receipt",
			"decision_id":                     decisionID,
			"suser_id":                        ev["suser_id"],
			"service_id":                      ev["service_id"],
			"delegation_id":                   ev["delegation_id"],
			"consent_id":                      ev["consent_id"],
			"telemetry_refs":                  fieldOrEmptyList(ev, "telemetry_refs"),
			"explanation":                     ev["explanation"],
			"explanation_legible":             ev["explanation_legible"],
			"report_to_suser":                 ev["report_to_suser"],
			"contest_path":                    ev["contest_path"],
			"revocation_path":                 ev["revocation_path"],
			"authority_chain":                 authorityChain,
			"context_id":                      ev["context_id"],
			"affected_susers":                 fieldOrEmptyList(ev, "affected_susers"),
			"reporting_constraints":           ev["reporting_constraints"],
			"reporting_constraints_disclosed": ev["reporting_constraints_disclosed"],
			"decision_time":                   eventTime,
			"delivered_to_suser":              ev["receipt_delivered"],
			"explanation_delivered":           ev["explanation_delivered"],
			"redacted_fields":                 redactedOrEmpty(ev),
			"explanation_contextual":          ev["explanation_contextual"],
		})

	case "shared_action":
		ns.SharedActions = append(ns.SharedActions, ev)
		addReceipt(map[string]any{
			"type":            "shared_action_receipt",
			"environment_id":  ev["environment_id"],
			"actor_suser_id":  ev["actor_suser_id"],
			"affected_susers": fieldOrEmptyList(ev, "affected_susers"),
			"consent_basis":   ev["consent_basis"],
		})

	case "time_advance":
		ticks := mustIntOr0(ev["ticks"])
		ns.Clock += ticks
		addReceipt(map[string]any{
			"type":      "time_receipt",
			"ticks":     ticks,
			"from_time": eventTime,
			"to_time":   ns.Clock,
		})

	case "boundary_declaration":
		environmentID := strField(ev, "environment_id")
		ns.Boundaries[environmentID] = ev
		addReceipt(map[string]any{
			"type":           "boundary_receipt",
			"environment_id": environmentID,
			"explicit":       ev["explicit"],
			"scope":          ev["scope"],
			"constraints":    ev["constraints"],
		})

	case "entry_condition":
		environmentID := strField(ev, "environment_id")
		putIndexed(ns.EntryConditions, &ns.EntryConditionOrder, environmentID, ev)
		addReceipt(map[string]any{
			"type":               "entry_condition_receipt",
			"environment_id":     environmentID,
			"conditions_defined": ev["conditions_defined"],
		})

	case "entry_request":
		addReceipt(map[string]any{
			"type":                      "entry_request_receipt",
			"environment_id":            ev["environment_id"],
			"entry_conditions_met":      ev["entry_conditions_met"],
			"entry_conditions_declared": ev["entry_conditions_declared"],
		})

	case "boundary_rule":
		environmentID := strField(ev, "environment_id")
		mergeBoundary(ns, environmentID, ev)
		addReceipt(map[string]any{
			"type":                    "boundary_rule_receipt",
			"environment_id":          ev["environment_id"],
			"interface_rules_present": ev["interface_rules_present"],
		})

	case "revocation_policy":
		addReceipt(map[string]any{
			"type":                       "revocation_policy_receipt",
			"environment_id":             ev["environment_id"],
			"monitoring":                 ev["monitoring"],
			"revocation_legible":         ev["revocation_legible"],
			"revocation_contestable":     ev["revocation_contestable"],
			"revocation_delay":           ev["revocation_delay"],
			"revocation_delay_disclosed": ev["revocation_delay_disclosed"],
		})

	case "default_setting":
		var expiresAt any = ev["expires_at"]
		if expiresAt == nil && ev["duration"] != nil {
			if duration, ok := asInt(ev["duration"]); ok {
				expiresAt = eventTime + duration
			}
		}
		ev["issued_at"] = eventTime
		ev["expires_at"] = expiresAt
		ns.Defaults = append(ns.Defaults, ev)
		active := any(true)
		if v, present := ev["active"]; present {
			active = v
		}
		addReceipt(map[string]any{
			"type":        "default_receipt",
			"default_id":  ev["default_id"],
			"justifiable": ev["justifiable"],
			"reversible":  ev["reversible"],
			"active":      active,
			"issued_at":   eventTime,
			"expires_at":  expiresAt,
		})

	case "federated_governance":
		mergeBoundary(ns, strField(ev, "environment_id"), ev)
		addReceipt(map[string]any{
			"type":               "federated_receipt",
			"environment_id":     ev["environment_id"],
			"entry_exit_defined": ev["entry_exit_defined"],
			"non_interference":   ev["non_interference"],
			"auditability":       ev["auditability"],
			"contestable":        ev["contestable"],
		})

	case "boundary_failure_modes":
		addReceipt(map[string]any{
			"type":                      "failure_modes_receipt",
			"environment_id":            ev["environment_id"],
			"implicit_consent":          ev["implicit_consent"],
			"opaque_enforcement":        ev["opaque_enforcement"],
			"hidden_influence":          ev["hidden_influence"],
			"irrevocable_participation": ev["irrevocable_participation"],
		})

	case "respect_principles":
		addReceipt(map[string]any{
			"type":               "respect_principles_receipt",
			"environment_id":     ev["environment_id"],
			"boundary_integrity": ev["boundary_integrity"],
			"non_coercion":       ev["non_coercion"],
			"mutual_legibility":  ev["mutual_legibility"],
			"contextual_consent": ev["contextual_consent"],
			"contestability":     ev["contestability"],
		})

	case "participation_declaration":
		addReceipt(map[string]any{
			"type":                      "participation_declaration_receipt",
			"environment_id":            ev["environment_id"],
			"scope_declared":            ev["scope_declared"],
			"influence_declared":        ev["influence_declared"],
			"boundaries_declared":       ev["boundaries_declared"],
			"enforcement_legible":       ev["enforcement_legible"],
			"enforcement_proportionate": ev["enforcement_proportionate"],
			"enforcement_contestable":   ev["enforcement_contestable"],
		})

	case "trust_audit":
		ns.Audits["trust"] = ev
		addReceipt(map[string]any{
			"type":        "trust_audit_receipt",
			"audit_id":    ev["audit_id"],
			"minimum_met": ev["minimum_met"],
		})

	case "respect_audit":
		ns.Audits["respect"] = ev
		addReceipt(map[string]any{
			"type":        "respect_audit_receipt",
			"audit_id":    ev["audit_id"],
			"minimum_met": ev["minimum_met"],
		})

	case "enforcement":
		ns.Enforcement = append(ns.Enforcement, ev)
		addReceipt(map[string]any{
			"type":           "enforcement_receipt",
			"enforcement_id": ev["enforcement_id"],
			"enforcer_id":    ev["enforcer_id"],
			"proportionate":  ev["proportionate"],
			"transparent":    ev["transparent"],
			"contestable":    ev["contestable"],
			"reversible":     ev["reversible"],
			"punitive":       ev["punitive"],
			"attributable":   ev["attributable"],
			"contest_path":   ev["contest_path"],
		})

	case "disclosure":
		ns.Disclosures = append(ns.Disclosures, ev)
		addReceipt(map[string]any{
			"type":            "disclosure_receipt",
			"disclosure_id":   ev["disclosure_id"],
			"user_actionable": ev["user_actionable"],
		})

	case "limitation_disclosure":
		ns.LimitationDisclosures = append(ns.LimitationDisclosures, ev)
		addReceipt(map[string]any{
			"type":             "limitation_receipt",
			"limitation_id":    ev["limitation_id"],
			"limits_disclosed": ev["limits_disclosed"],
		})

		// reductionist_metric is logged but emits no receipt; the evaluators
		// flag its score as a reductionism violation.
	}

	ns.ReceiptLog = append(ns.ReceiptLog, receipts...)
	return ns, receipts
}

// eventTimeUTC derives the RFC-3339 timestamp for a logical time, falling
// back to the default base if the configured base is malformed (application
// must never fail for domain input).
func (s *State) eventTimeUTC(eventTime int) string {
	ts, err := canonicalize.EventTimeUTC(s.BaseTimeUTC, eventTime)
	if err != nil {
		ts, _ = canonicalize.EventTimeUTC(DefaultBaseTimeUTC, eventTime)
	}
	return ts
}

// stampEvent assigns time metadata and links the event into the hash chain,
// then appends it to the event log.
func (s *State) stampEvent(ev map[string]any, eventTime int, eventTimeUTC string) {
	ev["time"] = eventTime
	ev["time_utc"] = eventTimeUTC
	hash := s.chainDigest(canonicalize.StripHashFields(ev, "event_hash", "event_hash_prev"), s.EventHashPrev)
	ev["event_hash_prev"] = nullableHash(s.EventHashPrev)
	ev["event_hash"] = hash
	s.EventHashPrev = hash
	s.EventLog = append(s.EventLog, ev)
}

// finalizeReceipt assigns the receipt id and time metadata and links the
// receipt into the receipt chain.
func (s *State) finalizeReceipt(data map[string]any, eventTime int, eventTimeUTC string) {
	data["receipt_id"] = s.NextReceiptID
	data["time"] = eventTime
	data["time_utc"] = eventTimeUTC
	hash := s.chainDigest(canonicalize.StripHashFields(data, "receipt_hash", "receipt_hash_prev"), s.ReceiptHashPrev)
	data["receipt_hash_prev"] = nullableHash(s.ReceiptHashPrev)
	data["receipt_hash"] = hash
	s.ReceiptHashPrev = hash
	s.NextReceiptID++
}

// chainDigest hashes a payload into the chain. Unserializable payloads still
// chain deterministically via their formatted representation, keeping
// application total.
func (s *State) chainDigest(payload map[string]any, prev string) string {
	hash, err := canonicalize.HashChain(payload, prev)
	if err != nil {
		return canonicalize.HashBytes([]byte(fmt.Sprintf("%s|%v", prev, payload)))
	}
	return hash
}

func nullableHash(h string) any {
	if h == "" {
		return nil
	}
	return h
}

// fieldOrEmptyList mirrors dict.get(key, []): absent keys default to an
// empty list, but an explicit value (even null) passes through unchanged.
func fieldOrEmptyList(m map[string]any, key string) any {
	if v, ok := m[key]; ok {
		return v
	}
	return []any{}
}

func redactedOrEmpty(ev map[string]any) any {
	if v := ev["redacted_fields"]; truthy(v) {
		return v
	}
	return []any{}
}

// putIndexed stores a record under id, appending first-seen ids to the order
// list so index iteration follows event order.
func putIndexed(index map[string]map[string]any, order *[]string, id string, rec map[string]any) {
	if _, ok := index[id]; !ok {
		*order = append(*order, id)
	}
	index[id] = rec
}

func mergeBoundary(s *State, environmentID string, ev map[string]any) {
	boundary, ok := s.Boundaries[environmentID]
	if !ok {
		boundary = make(map[string]any)
		s.Boundaries[environmentID] = boundary
	}
	for k, v := range ev {
		boundary[k] = v
	}
}
