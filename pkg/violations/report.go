package violations

// Record captures a single violation instance and its supporting evidence.
type Record struct {
	Label       Label    `json:"label"`
	EvidenceIDs []string `json:"evidence_ids"`
	Details     string   `json:"details,omitempty"`
}

// Report aggregates the violations found by one evaluation run.
//
// Absence of a label is the only "pass" signal. Score is set only when a
// reductionist scalar was recorded in the evaluated history; its presence is
// itself flagged as EvaluationReductionism. Debug carries the event/receipt
// context for audit introspection and is not a stability contract.
type Report struct {
	Kind       string         `json:"kind"`
	Violations []Record       `json:"violations"`
	Debug      map[string]any `json:"debug,omitempty"`
	Score      *float64       `json:"score,omitempty"`
}

// NewReport creates an empty report of the given kind ("trust", "respect",
// "trust_view").
func NewReport(kind string) *Report {
	return &Report{Kind: kind}
}

// Add appends a violation record to the report.
func (r *Report) Add(label Label, evidenceIDs []string) {
	ids := make([]string, len(evidenceIDs))
	copy(ids, evidenceIDs)
	r.Violations = append(r.Violations, Record{Label: label, EvidenceIDs: ids})
}

// Labels returns the violation labels in emission order, one per record.
func (r *Report) Labels() []string {
	labels := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		labels = append(labels, string(v.Label))
	}
	return labels
}

// Has reports whether a label appears anywhere in the report.
func (r *Report) Has(label Label) bool {
	for _, v := range r.Violations {
		if v.Label == label {
			return true
		}
	}
	return false
}

// EvidenceIndex builds a label -> evidence-id index across all records.
func (r *Report) EvidenceIndex() map[string][]string {
	index := make(map[string][]string)
	for _, v := range r.Violations {
		index[string(v.Label)] = append(index[string(v.Label)], v.EvidenceIDs...)
	}
	return index
}
