package scoring

import (
	"sort"
	"strings"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/core/textutil"
)

const (
	// Per-term contribution saturates so one repeated term cannot dominate.
	termOccurrenceWeight = 0.1
	termContributionCap  = 0.4
)

// Scorer computes lexical relevance and multi-factor confidence for
// candidate records.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Relevance scores a candidate text against expanded query terms: each term
// contributes min(count*0.1, 0.4), the sum is normalized by candidate length
// so long chunks do not win on bulk alone.
func (s *Scorer) Relevance(terms []string, text string) float64 {
	if len(terms) == 0 || text == "" {
		return 0
	}
	lower := strings.ToLower(text)

	sum := 0.0
	for _, term := range terms {
		if term == "" {
			continue
		}
		count := countOccurrences(lower, term)
		contribution := float64(count) * termOccurrenceWeight
		if contribution > termContributionCap {
			contribution = termContributionCap
		}
		sum += contribution
	}

	tokens := len(textutil.Tokenize(text))
	lengthNorm := 1.0 + float64(tokens)/200.0
	return clamp01(sum / lengthNorm)
}

// Confidence computes the seven factors and their weighted combination for a
// record, using the query category's weight overrides.
func (s *Scorer) Confidence(query domain.Query, record domain.KnowledgeRecord) (domain.ConfidenceFactors, float64) {
	factors := computeFactors(query, record)
	confidence := WeightsFor(query.Category).Combine(factors)
	return factors, confidence
}

// Best scores every record and returns the single strongest candidate for a
// tier, or nil when nothing matched at all.
func (s *Scorer) Best(query domain.Query, records []domain.KnowledgeRecord, tier int) *domain.CandidateAnswer {
	if len(records) == 0 {
		return nil
	}

	type scored struct {
		record     domain.KnowledgeRecord
		relevance  float64
		factors    domain.ConfidenceFactors
		confidence float64
	}

	candidates := make([]scored, 0, len(records))
	for _, record := range records {
		if strings.TrimSpace(record.Text) == "" {
			continue
		}
		relevance := s.Relevance(query.ExpandedTerms, record.Text)
		factors, confidence := s.Confidence(query, record)
		candidates = append(candidates, scored{
			record:     record,
			relevance:  relevance,
			factors:    factors,
			confidence: confidence,
		})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].confidence != candidates[j].confidence {
			return candidates[i].confidence > candidates[j].confidence
		}
		if candidates[i].relevance != candidates[j].relevance {
			return candidates[i].relevance > candidates[j].relevance
		}
		return candidates[i].record.ID < candidates[j].record.ID
	})

	top := candidates[0]
	return &domain.CandidateAnswer{
		Text:       top.record.Text,
		Tier:       tier,
		Sources:    []domain.KnowledgeRecord{top.record},
		RawScore:   top.relevance,
		Factors:    top.factors,
		Confidence: top.confidence,
		Level:      domain.LevelForConfidence(top.confidence),
	}
}

// countOccurrences counts non-overlapping, word-boundary occurrences of term
// in lowercase text.
func countOccurrences(lower, term string) int {
	count := 0
	padded := " " + lower + " "
	search := term
	idx := 0
	for {
		pos := strings.Index(padded[idx:], search)
		if pos < 0 {
			return count
		}
		abs := idx + pos
		beforeOK := abs == 0 || !isWordChar(padded[abs-1])
		afterIdx := abs + len(search)
		afterOK := afterIdx >= len(padded) || !isWordChar(padded[afterIdx])
		if beforeOK && afterOK {
			count++
		}
		idx = abs + len(search)
	}
}

func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
