package exemplar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Narrative templates keyed by label family. Rendering is for human review
// only; enforcement never reads the rendered output.
var familySentences = map[string]string{
	"TRUST_VIOLATION":          "Authority or delegation integrity failed (%s).",
	"ACCOUNTABILITY_VIOLATION": "Reporting or legibility failed (%s).",
	"TELEMETRY_VIOLATION":      "Telemetry influence rules failed (%s).",
	"CONSENT_VIOLATION":        "Consent integrity failed (%s).",
	"RESPECT_VIOLATION":        "Shared-environment respect rules failed (%s).",
	"GOVERNANCE_VIOLATION":     "Governance or boundary rules failed (%s).",
	"SERVICE_VIOLATION":        "Service sovereignty rules failed (%s).",
	"STRUCTURAL_VIOLATION":     "State structure is invalid (%s).",
	"AUDIT_VIOLATION":          "Audit minimums were not satisfied (%s).",
	"ENFORCEMENT_VIOLATION":    "Enforcement accountability failed (%s).",
	"EVALUATION_VIOLATION":     "Evaluation integrity failed (%s).",
}

var familyRemedies = map[string]string{
	"TRUST_VIOLATION":          "Provide explicit delegation before the decision time and ensure the chain is complete.",
	"ACCOUNTABILITY_VIOLATION": "Publish legible receipts with contest/revoke paths and reporting constraints disclosed.",
	"TELEMETRY_VIOLATION":      "Explain telemetry influence and prevent telemetry from acting as authority.",
	"CONSENT_VIOLATION":        "Ensure consent is informed, specific, revocable, and not implied by use.",
	"RESPECT_VIOLATION":        "Define shared-environment boundaries and require mutual, legible consent.",
	"GOVERNANCE_VIOLATION":     "Declare entry conditions and boundary governance with contestable revocation.",
	"SERVICE_VIOLATION":        "Require delegated authority and disclosure for service actions.",
	"STRUCTURAL_VIOLATION":     "Fix malformed or inconsistent event/receipt data.",
	"AUDIT_VIOLATION":          "Provide audit minimums before asserting compliance.",
	"ENFORCEMENT_VIOLATION":    "Make enforcement attributable, proportionate, and contestable.",
	"EVALUATION_VIOLATION":     "Avoid reductionist scoring; document contextual evaluation inputs.",
}

func labelFamily(label string) string {
	if i := strings.Index(label, "."); i >= 0 {
		return label[:i]
	}
	return label
}

func humanizeLabel(label string) string {
	suffix := label
	if i := strings.LastIndex(label, "."); i >= 0 {
		suffix = label[i+1:]
	}
	return strings.ToLower(strings.ReplaceAll(suffix, "_", " "))
}

func violationSentence(label string) string {
	template, ok := familySentences[labelFamily(label)]
	if !ok {
		template = "Violation recorded (%s)."
	}
	return fmt.Sprintf(template, humanizeLabel(label))
}

func renderJSONBlock(payload any) string {
	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		text = []byte(fmt.Sprintf("%v", payload))
	}
	return "```json\n" + string(text) + "\n```"
}

// RenderMarkdown renders a bundle as a reviewable exemplar page: context,
// violations, the frozen sequence, a narrative, and what would make the
// sequence valid.
func RenderMarkdown(bundle *Bundle) string {
	labels := bundle.Violations.Labels

	var narrative []string
	for _, label := range labels {
		narrative = append(narrative, fmt.Sprintf("- `%s`: %s", label, violationSentence(label)))
	}
	if len(narrative) == 0 {
		narrative = []string{"- (No violations recorded.)"}
	}

	families := make(map[string]bool)
	for _, label := range labels {
		families[labelFamily(label)] = true
	}
	var remedies []string
	familyNames := make([]string, 0, len(families))
	for family := range families {
		familyNames = append(familyNames, family)
	}
	sort.Strings(familyNames)
	for _, family := range familyNames {
		if remedy, ok := familyRemedies[family]; ok {
			remedies = append(remedies, "- "+remedy)
		}
	}
	if len(remedies) == 0 {
		remedies = []string{"- Review violation labels and address the missing authority or disclosures."}
	}

	var labelList []string
	for _, label := range labels {
		labelList = append(labelList, fmt.Sprintf("- `%s`", label))
	}
	if len(labelList) == 0 {
		labelList = []string{"- (None)"}
	}

	sections := []string{
		fmt.Sprintf("# Exemplar %s", bundle.ID),
		"",
		"## Context",
		fmt.Sprintf("- Kind: %s", bundle.Kind),
		fmt.Sprintf("- Created: %s", bundle.CreatedUTC),
		fmt.Sprintf("- Source test: %s", bundle.Source.TestName),
		fmt.Sprintf("- Profile: %s", bundle.Source.Profile),
		fmt.Sprintf("- Seed: %s", bundle.Source.Seed),
		"",
		"## Violations",
		strings.Join(labelList, "\n"),
		"",
		"## Events",
		renderJSONBlock(bundle.Events),
		"",
		"## Receipts",
		renderJSONBlock(bundle.Receipts),
		"",
		"## Narrative",
		strings.Join(narrative, "\n"),
		"",
		"## What Would Make This Valid",
		strings.Join(remedies, "\n"),
	}
	if bundle.Notes != "" {
		sections = append(sections, "", "## Notes", bundle.Notes)
	}
	return strings.TrimSpace(strings.Join(sections, "\n")) + "\n"
}

// WriteRendered writes the Markdown rendering next to the bundle JSON.
func (s *Store) WriteRendered(bundle *Bundle) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("exemplar store: %w", err)
	}
	path := filepath.Join(s.Dir, bundle.ID+".md")
	if err := os.WriteFile(path, []byte(RenderMarkdown(bundle)), 0o644); err != nil {
		return "", fmt.Errorf("exemplar %s: render: %w", bundle.ID, err)
	}
	return path, nil
}
