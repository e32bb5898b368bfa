package classify

import (
	"fmt"
	"strings"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/core/textutil"
)

// signalEpsilon is the minimum category score treated as an actual signal.
const signalEpsilon = 0.05

// noSignalConfidence is reported when no category scores above epsilon and
// the query falls through to Summary.
const noSignalConfidence = 0.2

// Classifier categorizes queries and expands their terminology.
type Classifier struct {
	abbreviations *abbreviationDict
	synonyms      *synonymDict
}

// New builds a Classifier over the built-in clinical dictionaries.
func New() *Classifier {
	return &Classifier{
		abbreviations: builtinAbbreviations(),
		synonyms:      builtinSynonyms(),
	}
}

// NewWithOverlay builds a Classifier with extra dictionary entries merged in.
func NewWithOverlay(overlay DictionaryOverlay) *Classifier {
	c := New()
	c.abbreviations.merge(overlay.Abbreviations)
	c.synonyms.merge(overlay.Synonyms)
	return c
}

// Classify scores every category against its indicator set and picks the
// winner by fixed priority: Form > Protocol > Dosage > Criteria > Contact >
// Summary. The first category in that order whose score exceeds epsilon
// wins. With no signal at all the query is treated as a Summary request at
// low confidence. Classification is deterministic for identical input.
func (c *Classifier) Classify(text string) (domain.Category, float64, []string) {
	normalized := textutil.Normalize(text)

	scores := make(map[domain.Category]float64, len(categoryIndicators))
	evidence := make(map[domain.Category][]string, len(categoryIndicators))
	for category, indicators := range categoryIndicators {
		for _, ind := range indicators {
			switch {
			case ind.phrase != "" && strings.Contains(normalized, ind.phrase):
				scores[category] += ind.weight
				evidence[category] = append(evidence[category], fmt.Sprintf("phrase:%s", strings.TrimSpace(ind.phrase)))
			case ind.pattern != nil && ind.pattern.MatchString(text):
				scores[category] += ind.weight
				evidence[category] = append(evidence[category], fmt.Sprintf("pattern:%s", ind.pattern.String()))
			}
		}
		if scores[category] > 1.0 {
			scores[category] = 1.0
		}
	}

	for _, category := range domain.CategoryPriority {
		if scores[category] > signalEpsilon {
			return category, scores[category], evidence[category]
		}
	}
	return domain.CategorySummary, noSignalConfidence, nil
}

// BuildQuery runs classification and expansion and assembles the immutable
// request-scoped Query.
func (c *Classifier) BuildQuery(text string) domain.Query {
	category, confidence, _ := c.Classify(text)
	return domain.Query{
		RawText:        text,
		NormalizedText: textutil.Normalize(text),
		Category:       category,
		Confidence:     confidence,
		ExpandedTerms:  c.Expand(text, category),
	}
}
