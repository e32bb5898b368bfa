package usecase

import "github.com/kirillkom/clinical-qa/internal/core/domain"

// safetyTier is the terminal tier index reported when no retrieval tier
// produced an acceptable answer.
const safetyTier = 4

// safetyTemplates keeps the guidance-only fallback text per category, away
// from the retrieval code path. These answers always carry confidence 0.
var safetyTemplates = map[domain.Category]string{
	domain.CategoryContact:  "I could not verify the requested contact information. Please check the hospital directory or call the operator.",
	domain.CategoryForm:     "I could not locate the requested form. Please check the forms repository or contact health information management.",
	domain.CategoryProtocol: "I could not verify the requested protocol. Please consult the clinical protocol manual or the covering attending.",
	domain.CategoryCriteria: "I could not verify the requested criteria. Please consult the relevant clinical guideline or the service's attending physician.",
	domain.CategoryDosage:   "I could not verify the requested dosing information. Please consult pharmacy or an approved drug reference before administering.",
	domain.CategorySummary:  "I could not find verified information for this question. Please consult the appropriate clinical reference.",
}

// safetyAnswer builds the deterministic tier-4 fallback for a query.
func safetyAnswer(query domain.Query, issues []string) domain.Answer {
	text, ok := safetyTemplates[query.Category]
	if !ok {
		text = safetyTemplates[domain.CategorySummary]
	}
	return domain.Answer{
		Text:       text,
		Category:   query.Category,
		Confidence: 0,
		Level:      domain.ConfidenceLow,
		TierUsed:   safetyTier,
		Evidence:   []domain.EvidenceSpan{},
		Validation: domain.ValidationResult{
			Verdict: domain.VerdictValid,
			Issues:  issues,
		},
	}
}
