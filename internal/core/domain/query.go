package domain

// Category classifies query intent.
type Category string

const (
	CategoryContact  Category = "contact"
	CategoryForm     Category = "form"
	CategoryProtocol Category = "protocol"
	CategoryCriteria Category = "criteria"
	CategoryDosage   Category = "dosage"
	CategorySummary  Category = "summary"
)

// CategoryPriority is the canonical tie-break order for classification.
// Earlier categories win when several clear the signal epsilon.
var CategoryPriority = []Category{
	CategoryForm,
	CategoryProtocol,
	CategoryDosage,
	CategoryCriteria,
	CategoryContact,
	CategorySummary,
}

// Query is the classified, term-expanded form of a request. It is built once
// per request and not mutated afterwards.
type Query struct {
	RawText        string   `json:"raw_text"`
	NormalizedText string   `json:"normalized_text"`
	Category       Category `json:"category"`
	Confidence     float64  `json:"confidence"`
	ExpandedTerms  []string `json:"expanded_terms"`
}
