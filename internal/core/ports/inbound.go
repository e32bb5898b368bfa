package ports

import (
	"context"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
)

// AnswerService is the inbound contract for the retrieval pipeline. Answer
// never returns an error: every failure mode degrades to a valid Answer,
// worst case the safety fallback.
type AnswerService interface {
	Answer(ctx context.Context, query string) domain.Answer
}
