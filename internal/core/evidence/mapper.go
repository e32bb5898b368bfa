package evidence

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/core/ports"
	"github.com/kirillkom/clinical-qa/internal/core/textutil"
)

const (
	maxWindowWords = 15
	minWindowWords = 4
	// Spans closer than this many characters merge into one.
	mergeGapTolerance = 20
	multiMatchBonus   = 0.05
)

// Mapper locates the parts of an answer inside its source chunk text and
// produces highlightable evidence spans. Mapping is best effort: when no
// span is found the evidence list is empty and the answer is unaffected.
type Mapper struct {
	spanIndex ports.SpanIndex
}

// NewMapper builds a Mapper. spanIndex may be nil; bounding boxes are then
// resolved only from the per-record span index supplied at ingestion.
func NewMapper(spanIndex ports.SpanIndex) *Mapper {
	return &Mapper{spanIndex: spanIndex}
}

// MapEvidence maps answer text back to offsets in each cited source record.
func (m *Mapper) MapEvidence(ctx context.Context, answerText string, sources []domain.KnowledgeRecord) []domain.EvidenceSpan {
	normalizedAnswer := textutil.Normalize(answerText)
	words := strings.Fields(normalizedAnswer)
	if len(words) < minWindowWords {
		return nil
	}

	out := make([]domain.EvidenceSpan, 0, 4)
	for _, source := range sources {
		spans := m.mapAgainstSource(ctx, words, len(normalizedAnswer), source)
		out = append(out, spans...)
	}
	return out
}

// mapAgainstSource finds the answer's n-grams in one source record and
// returns merged, bbox-resolved spans.
func (m *Mapper) mapAgainstSource(ctx context.Context, answerWords []string, answerNormLen int, source domain.KnowledgeRecord) []domain.EvidenceSpan {
	if strings.TrimSpace(source.Text) == "" {
		return nil
	}
	normalizedSource := textutil.Normalize(source.Text)

	raw := findMatches(answerWords, normalizedSource)
	if len(raw) == 0 {
		return nil
	}

	// Back-map each normalized span to the original text before merging so
	// gap tolerance applies to real offsets.
	original := make([]span, 0, len(raw))
	matchedNormChars := 0
	for _, match := range raw {
		start, end := mapToOriginal(source.Text, normalizedSource, match.start, match.end)
		if start < 0 || end <= start || end > len(source.Text) {
			continue
		}
		matchedNormChars += match.end - match.start
		original = append(original, span{start: start, end: end, matches: 1})
	}
	merged := mergeSpans(original, mergeGapTolerance)
	if len(merged) == 0 {
		return nil
	}

	coverage := float64(matchedNormChars) / float64(answerNormLen)
	out := make([]domain.EvidenceSpan, 0, len(merged))
	for _, s := range merged {
		confidence := coverage + multiMatchBonus*float64(s.matches-1)
		if confidence > 1 {
			confidence = 1
		}
		es := domain.EvidenceSpan{
			DocumentID: source.DocumentID,
			Page:       source.Page,
			Start:      s.start,
			End:        s.end,
			Confidence: confidence,
		}
		m.resolveGeometry(ctx, &es, source)
		out = append(out, es)
	}
	return out
}

// resolveGeometry fills page and bounding box from the record's own span
// index first, then the external span index collaborator. Geometry failures
// never drop the span.
func (m *Mapper) resolveGeometry(ctx context.Context, es *domain.EvidenceSpan, source domain.KnowledgeRecord) {
	for _, sb := range source.SpanIndex {
		if es.Start >= sb.Start && es.Start < sb.End {
			bbox := sb.BBox
			es.BBox = &bbox
			if sb.Page > 0 {
				es.Page = sb.Page
			}
			return
		}
	}
	if m.spanIndex == nil || source.DocumentID == "" {
		return
	}
	bbox, err := m.spanIndex.BBoxFor(ctx, source.DocumentID, es.Page, es.Start, es.End)
	if err != nil {
		slog.Debug("bbox_lookup_failed", "document_id", source.DocumentID, "error", err)
		return
	}
	es.BBox = bbox
}

type normMatch struct {
	start int
	end   int
}

// findMatches slides a window over the answer's words, trying n-gram sizes
// from maxWindowWords down to minWindowWords. The first (longest) n-gram
// found in the normalized source wins for that position; the window then
// advances past the matched words.
func findMatches(words []string, normalizedSource string) []normMatch {
	out := make([]normMatch, 0, 4)
	for pos := 0; pos+minWindowWords <= len(words); {
		matched := false
		maxN := maxWindowWords
		if rest := len(words) - pos; rest < maxN {
			maxN = rest
		}
		for n := maxN; n >= minWindowWords; n-- {
			gram := strings.Join(words[pos:pos+n], " ")
			idx := strings.Index(normalizedSource, gram)
			if idx < 0 {
				continue
			}
			out = append(out, normMatch{start: idx, end: idx + len(gram)})
			pos += n
			matched = true
			break
		}
		if !matched {
			pos++
		}
	}
	return out
}
