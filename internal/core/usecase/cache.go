package usecase

import (
	"github.com/kirillkom/clinical-qa/internal/core/domain"
)

// cacheKey identifies an answer by normalized query text and category.
func cacheKey(query domain.Query) string {
	return query.NormalizedText + "|" + string(query.Category)
}

// cacheable applies the response-cache policy: Form answers are never
// cached because the form inventory changes underneath the index, and
// low-confidence answers are not worth pinning.
func cacheable(answer domain.Answer, confidenceFloor float64) bool {
	if answer.Category == domain.CategoryForm {
		return false
	}
	if answer.Confidence < confidenceFloor {
		return false
	}
	return answer.TierUsed < safetyTier
}
