package domain

// ConfidenceFactors are the seven sub-scores combined into overall confidence.
// Every field is kept in [0,1].
type ConfidenceFactors struct {
	SourceReliability       float64 `json:"source_reliability"`
	ContentSpecificity      float64 `json:"content_specificity"`
	TerminologyMatch        float64 `json:"terminology_match"`
	CategoryAlignment       float64 `json:"category_alignment"`
	InformationCompleteness float64 `json:"information_completeness"`
	AuthorityIndicators     float64 `json:"authority_indicators"`
	UncertaintyMarkers      float64 `json:"uncertainty_markers"`
}

// ConfidenceLevel buckets overall confidence for presentation.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// LevelForConfidence maps a confidence value to its level bucket.
func LevelForConfidence(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 0.8:
		return ConfidenceHigh
	case confidence >= 0.6:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// CandidateAnswer is one tier's best-scored result before validation.
type CandidateAnswer struct {
	Text       string            `json:"text"`
	Tier       int               `json:"tier"`
	Sources    []KnowledgeRecord `json:"sources"`
	RawScore   float64           `json:"raw_score"`
	Factors    ConfidenceFactors `json:"factors"`
	Confidence float64           `json:"confidence"`
	Level      ConfidenceLevel   `json:"level"`
}

// EvidenceSpan is a character range in a source document backing part of an
// answer. Offsets are byte offsets into the source record's text.
type EvidenceSpan struct {
	DocumentID string  `json:"document_id"`
	Page       int     `json:"page,omitempty"`
	Start      int     `json:"offset_start"`
	End        int     `json:"offset_end"`
	BBox       *BBox   `json:"bbox,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Answer is the final, always-produced output of the pipeline.
type Answer struct {
	Text       string           `json:"text"`
	Category   Category         `json:"category"`
	Confidence float64          `json:"confidence"`
	Level      ConfidenceLevel  `json:"level"`
	TierUsed   int              `json:"tier_used"`
	Evidence   []EvidenceSpan   `json:"evidence"`
	Validation ValidationResult `json:"validation"`
}
