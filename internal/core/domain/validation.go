package domain

// Verdict is the validator's overall judgement of a candidate answer.
type Verdict string

const (
	VerdictValid       Verdict = "valid"
	VerdictNeedsReview Verdict = "needs_review"
	VerdictInvalid     Verdict = "invalid"
)

// ValidationResult records groundedness and sanity findings for a candidate.
type ValidationResult struct {
	Verdict          Verdict  `json:"verdict"`
	Issues           []string `json:"issues,omitempty"`
	Hallucination    bool     `json:"hallucination"`
	Grounded         bool     `json:"grounded"`
	SafetyFlags      []string `json:"safety_flags,omitempty"`
	UnsupportedRatio float64  `json:"unsupported_ratio"`
}
