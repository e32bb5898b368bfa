package scoring

import (
	"regexp"
	"strings"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/core/textutil"
)

var (
	numericUnitPattern  = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s?(mg|mcg|g|kg|ml|l|units?|mmol|meq|%|mg/kg|mcg/kg|ml/hr|mcg/kg/min|minutes?|hours?|min|hrs?)\b`)
	numberedStepPattern = regexp.MustCompile(`(?m)(^|\n)\s*\d+[.)]\s`)
	phonePattern        = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	pagerPattern        = regexp.MustCompile(`(?i)\b(pager|ext\.?|extension|x)\s?#?\d{3,6}\b`)
)

var criteriaKeywords = []string{"inclusion", "exclusion", "eligible", "criteria", "must", "required", "indicated", "contraindicated"}

var hedgeWords = []string{"may", "might", "possibly", "probably", "perhaps", "unclear", "uncertain", "i think", "likely", "could be", "not sure", "appears to"}

var authorityMarkers = []string{
	"guideline", "policy", "committee", "approved", "protocol no", "version",
	"revised", "effective date", "aha", "acc", "acep", "cdc", "who",
	"department of", "hospital policy", "medical director",
}

// computeFactors derives the seven confidence sub-scores for one candidate
// record against a classified query. Every factor lands in [0,1].
func computeFactors(query domain.Query, record domain.KnowledgeRecord) domain.ConfidenceFactors {
	lower := strings.ToLower(record.Text)
	recordTerms := termSet(textutil.SignificantTerms(record.Text))

	return domain.ConfidenceFactors{
		SourceReliability:       record.Trust.SourceReliability(),
		ContentSpecificity:      contentSpecificity(record.Text, lower),
		TerminologyMatch:        terminologyMatch(query.ExpandedTerms, lower, recordTerms),
		CategoryAlignment:       categoryAlignment(query.Category, record, lower),
		InformationCompleteness: informationCompleteness(query.RawText, recordTerms, len(record.Text)),
		AuthorityIndicators:     authorityIndicators(lower),
		UncertaintyMarkers:      uncertaintyScore(lower),
	}
}

// contentSpecificity rewards quantitative and procedural markers and
// penalizes hedging.
func contentSpecificity(text, lower string) float64 {
	score := 0.0
	if numericUnitPattern.MatchString(text) {
		score += 0.35
	}
	if numberedStepPattern.MatchString(text) {
		score += 0.25
	}
	if phonePattern.MatchString(text) || pagerPattern.MatchString(lower) {
		score += 0.25
	}
	for _, kw := range criteriaKeywords {
		if strings.Contains(lower, kw) {
			score += 0.05
		}
	}
	score -= 0.1 * float64(countHedges(lower))
	return clamp01(score)
}

// terminologyMatch is the fraction of the query's expanded terms found in
// the candidate. Multi-word expansions match as phrases, single tokens
// against the candidate's term set.
func terminologyMatch(expandedTerms []string, lower string, recordTerms map[string]struct{}) float64 {
	if len(expandedTerms) == 0 {
		return 0
	}
	matched := 0
	for _, term := range expandedTerms {
		if strings.ContainsRune(term, ' ') {
			if strings.Contains(lower, term) {
				matched++
			}
			continue
		}
		if _, ok := recordTerms[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(expandedTerms))
}

// categoryAlignment measures overlap with the query category's indicator
// vocabulary, boosted when the record itself is tagged with the same
// category.
func categoryAlignment(category domain.Category, record domain.KnowledgeRecord, lower string) float64 {
	keywords := alignmentKeywords[category]
	score := 0.0
	if len(keywords) > 0 {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		score = float64(hits) / float64(len(keywords))
	}
	if record.Category != "" && record.Category == category {
		score += 0.3
	}
	return clamp01(score)
}

var alignmentKeywords = map[domain.Category][]string{
	domain.CategoryContact:  {"phone", "pager", "call", "extension", "contact", "on-call"},
	domain.CategoryForm:     {"form", "consent", "document", "signature", "checklist"},
	domain.CategoryProtocol: {"protocol", "step", "activation", "pathway", "algorithm", "initiate"},
	domain.CategoryCriteria: {"criteria", "eligible", "inclusion", "exclusion", "indication"},
	domain.CategoryDosage:   {"dose", "mg", "mcg", "administer", "infusion", "adult", "pediatric"},
	domain.CategorySummary:  {"overview", "summary", "defined", "refers to"},
}

// informationCompleteness is the fraction of query concepts covered by the
// candidate, plus a small bonus for substantive length.
func informationCompleteness(rawQuery string, recordTerms map[string]struct{}, textLen int) float64 {
	concepts := textutil.SignificantTerms(rawQuery)
	if len(concepts) == 0 {
		return 0
	}
	covered := 0
	for _, concept := range concepts {
		if _, ok := recordTerms[concept]; ok {
			covered++
		}
	}
	score := float64(covered) / float64(len(concepts))
	if textLen > 200 {
		score += 0.1
	}
	return clamp01(score)
}

func authorityIndicators(lower string) float64 {
	score := 0.0
	for _, marker := range authorityMarkers {
		if strings.Contains(lower, marker) {
			score += 0.2
		}
	}
	return clamp01(score)
}

// uncertaintyScore inverts hedge density: heavily hedged text scores low.
func uncertaintyScore(lower string) float64 {
	hedges := countHedges(lower)
	words := len(strings.Fields(lower))
	if words == 0 {
		return 1
	}
	density := float64(hedges) / float64(words)
	return clamp01(1 - density*20)
}

func countHedges(lower string) int {
	count := 0
	padded := " " + strings.Map(textutil.PunctToSpace, lower) + " "
	for _, hedge := range hedgeWords {
		count += strings.Count(padded, " "+hedge+" ")
	}
	return count
}

func termSet(terms []string) map[string]struct{} {
	out := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		out[term] = struct{}{}
	}
	return out
}
