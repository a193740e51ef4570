// Package violations defines the closed violation taxonomy and the Report
// structure produced by the trust and respect evaluators.
//
// Labels are stable wire identifiers: they are persisted in exemplar bundles
// and compared across replays, so renaming a label is a breaking change.
package violations

// Label identifies one violation kind. The string value is the wire format.
type Label string

// Trust-layer violations: authority and delegation integrity.
const (
	TrustSUserUnidentified    Label = "TRUST_VIOLATION.SUSER_UNIDENTIFIED"
	TrustSovereigntyAssumed   Label = "TRUST_VIOLATION.SOVEREIGNTY_ASSUMED"
	TrustAuthorityUntraceable Label = "TRUST_VIOLATION.AUTHORITY_UNTRACEABLE"
	TrustDelegationInvalid    Label = "TRUST_VIOLATION.DELEGATION_INVALID"
	TrustSovereigntyDisplaced Label = "TRUST_VIOLATION.SOVEREIGNTY_DISPLACED"
	TrustAutonomyOverreach    Label = "TRUST_VIOLATION.AUTONOMY_OVERREACH"
	TrustAccountabilityBreak  Label = "TRUST_VIOLATION.ACCOUNTABILITY_BREAK"
	TrustDirectionalityBreach Label = "TRUST_VIOLATION.DIRECTIONALITY_BREACH"
	TrustOrderingInverted     Label = "TRUST_VIOLATION.ORDERING_INVERTED"
)

// Consent violations.
const (
	ConsentImplicitDelegation Label = "CONSENT_VIOLATION.IMPLICIT_DELEGATION"
	ConsentInvalid            Label = "CONSENT_VIOLATION.INVALID_CONSENT"
	ConsentCoercedOrOpaque    Label = "CONSENT_VIOLATION.COERCED_OR_OPAQUE"
)

// Telemetry subordination violations.
const (
	TelemetryPrescriptiveUse Label = "TELEMETRY_VIOLATION.PRESCRIPTIVE_USE"
	TelemetryOpaqueInfluence Label = "TELEMETRY_VIOLATION.OPAQUE_INFLUENCE"
)

// Service sovereignty violations.
const (
	ServiceSovereignSubstitution Label = "SERVICE_VIOLATION.SOVEREIGN_SUBSTITUTION"
)

// Accountability and reporting violations.
const (
	AccountabilityIllegibleReporting      Label = "ACCOUNTABILITY_VIOLATION.ILLEGIBLE_REPORTING"
	AccountabilityNonLegibleExplanation   Label = "ACCOUNTABILITY_VIOLATION.NON_LEGIBLE_EXPLANATION"
	AccountabilityNonAccountableOutcome   Label = "ACCOUNTABILITY_VIOLATION.NON_ACCOUNTABLE_OUTCOME"
	AccountabilityMissingReporting        Label = "ACCOUNTABILITY_VIOLATION.MISSING_REPORTING"
	AccountabilityDiagnosticGap           Label = "ACCOUNTABILITY_VIOLATION.DIAGNOSTIC_GAP"
	AccountabilityNonActionableDisclosure Label = "ACCOUNTABILITY_VIOLATION.NON_ACTIONABLE_DISCLOSURE"
	AccountabilityLimitsUndisclosed       Label = "ACCOUNTABILITY_VIOLATION.LIMITS_UNDISCLOSED"
)

// Structural violations: the state itself is invalid.
const (
	StructuralInvalidState        Label = "STRUCTURAL_VIOLATION.INVALID_STATE"
	StructuralJustifiedInvalidity Label = "STRUCTURAL_VIOLATION.JUSTIFIED_INVALIDITY"
)

// Shared-environment respect violations.
const (
	RespectUnilateralImpact       Label = "RESPECT_VIOLATION.UNILATERAL_IMPACT"
	RespectBoundaryIgnored        Label = "RESPECT_VIOLATION.BOUNDARY_IGNORED"
	RespectContextLeak            Label = "RESPECT_VIOLATION.CONTEXT_LEAK"
	RespectNonInterferenceBreach  Label = "RESPECT_VIOLATION.NON_INTERFERENCE_BREACH"
	RespectMutualConsentMissing   Label = "RESPECT_VIOLATION.MUTUAL_CONSENT_MISSING"
	RespectUnilateralConsentBasis Label = "RESPECT_VIOLATION.UNILATERAL_CONSENT_BASIS"
	RespectCoerciveDefault        Label = "RESPECT_VIOLATION.COERCIVE_DEFAULT"
	RespectPrincipleBreach        Label = "RESPECT_VIOLATION.PRINCIPLE_BREACH"
	RespectImplicitBoundaries     Label = "RESPECT_VIOLATION.IMPLICIT_BOUNDARIES"
	RespectOpaqueEnforcement      Label = "RESPECT_VIOLATION.OPAQUE_ENFORCEMENT"
	RespectDiagnosticGap          Label = "RESPECT_VIOLATION.DIAGNOSTIC_GAP"
)

// Governance and boundary violations.
const (
	GovernanceInterfaceGap           Label = "GOVERNANCE_VIOLATION.INTERFACE_GAP"
	GovernanceMissingEntryConditions Label = "GOVERNANCE_VIOLATION.MISSING_ENTRY_CONDITIONS"
	GovernanceRevocationDefect       Label = "GOVERNANCE_VIOLATION.REVOCATION_DEFECT"
	GovernanceFederatedGap           Label = "GOVERNANCE_VIOLATION.FEDERATED_GAP"
	GovernanceFailureModeIgnored     Label = "GOVERNANCE_VIOLATION.FAILURE_MODE_IGNORED"
)

// Evaluation integrity violations.
const (
	EvaluationUndeterminablePass Label = "EVALUATION_VIOLATION.UNDETERMINABLE_PASS"
	EvaluationReductionism       Label = "EVALUATION_VIOLATION.REDUCTIONISM"
)

// Audit minimum violations.
const (
	AuditTrustMinimumMissing   Label = "AUDIT_VIOLATION.TRUST_MINIMUM_MISSING"
	AuditRespectMinimumMissing Label = "AUDIT_VIOLATION.RESPECT_MINIMUM_MISSING"
)

// Enforcement accountability violations.
const (
	EnforcementSovereigntyIncompatible Label = "ENFORCEMENT_VIOLATION.SOVEREIGNTY_INCOMPATIBLE"
	EnforcementNoAttribution           Label = "ENFORCEMENT_VIOLATION.NO_ATTRIBUTION"
)

// String implements fmt.Stringer.
func (l Label) String() string { return string(l) }
