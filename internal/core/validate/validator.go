package validate

import (
	"fmt"
	"strings"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/core/textutil"
)

const (
	// A statement is supported when at least this share of its significant
	// terms appears in the cited source text.
	statementSupportThreshold = 0.6
	// Above this share of unsupported statements the whole candidate is
	// rejected.
	unsupportedRatioLimit = 0.4
)

// Validator checks that a candidate answer is grounded in its cited sources
// and passes category-specific sanity rules.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate inspects a chosen candidate against the raw text of its cited
// records and returns a verdict. It never fails: structurally broken input
// yields an invalid verdict, not an error.
func (v *Validator) Validate(candidate domain.CandidateAnswer, category domain.Category) domain.ValidationResult {
	result := domain.ValidationResult{Verdict: domain.VerdictValid, Grounded: true}

	source := concatSources(candidate.Sources)
	if strings.TrimSpace(candidate.Text) == "" {
		result.Verdict = domain.VerdictInvalid
		result.Grounded = false
		result.Issues = append(result.Issues, "empty answer text")
		return result
	}

	statements := factualStatements(candidate.Text)
	unsupported := 0
	sourceTerms := termMembership(source)
	for _, statement := range statements {
		if !statementSupported(statement, sourceTerms) {
			unsupported++
			result.Issues = append(result.Issues, fmt.Sprintf("unsupported fact: %s", truncate(statement, 80)))
		}
	}
	if len(statements) > 0 {
		result.UnsupportedRatio = float64(unsupported) / float64(len(statements))
	}
	if result.UnsupportedRatio > unsupportedRatioLimit {
		result.Grounded = false
		result.Hallucination = true
	}

	minorIssues := 0
	if hedges := findHedges(candidate.Text); len(hedges) > 0 {
		minorIssues++
		result.Issues = append(result.Issues, fmt.Sprintf("hedging language: %s", strings.Join(hedges, ", ")))
	}
	if disclaimers := findDisclaimers(candidate.Text); len(disclaimers) > 0 {
		minorIssues++
		result.Issues = append(result.Issues, fmt.Sprintf("canned disclaimer: %s", strings.Join(disclaimers, ", ")))
		result.SafetyFlags = append(result.SafetyFlags, "generic_disclaimer")
	}

	hardIssues := categoryRules(candidate.Text, category)
	result.Issues = append(result.Issues, hardIssues...)

	switch {
	case len(hardIssues) > 0 || result.UnsupportedRatio > unsupportedRatioLimit:
		result.Verdict = domain.VerdictInvalid
	case minorIssues > 0 || unsupported > 0:
		result.Verdict = domain.VerdictNeedsReview
	}
	return result
}

// factualStatements splits answer text into sentence-level statements and
// keeps only those carrying at least one medical or quantitative keyword.
func factualStatements(text string) []string {
	sentences := splitSentences(text)
	out := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		if isFactual(sentence) {
			out = append(out, sentence)
		}
	}
	return out
}

func splitSentences(text string) []string {
	out := make([]string, 0, 8)
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}

var medicalKeywords = []string{
	"dose", "mg", "mcg", "ml", "units", "patient", "protocol", "treatment",
	"administer", "contraindicated", "indicated", "criteria", "symptom",
	"diagnosis", "therapy", "infusion", "iv", "oral", "monitor", "lab",
	"blood", "pressure", "cardiac", "activation", "call", "page",
}

func isFactual(sentence string) bool {
	lower := strings.ToLower(sentence)
	if strings.ContainsAny(lower, "0123456789") {
		return true
	}
	for _, kw := range medicalKeywords {
		if containsWord(lower, kw) {
			return true
		}
	}
	return false
}

// statementSupported checks that enough of a statement's significant terms
// occur somewhere in the concatenated source text.
func statementSupported(statement string, sourceTerms map[string]struct{}) bool {
	terms := textutil.SignificantTerms(statement)
	if len(terms) == 0 {
		return true
	}
	matched := 0
	for _, term := range terms {
		if _, ok := sourceTerms[term]; ok {
			matched++
		}
	}
	return float64(matched)/float64(len(terms)) >= statementSupportThreshold
}

func concatSources(sources []domain.KnowledgeRecord) string {
	var b strings.Builder
	for _, s := range sources {
		b.WriteString(s.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

func termMembership(text string) map[string]struct{} {
	terms := textutil.SignificantTerms(text)
	out := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		out[term] = struct{}{}
	}
	return out
}

var hedgePhrases = []string{
	"may", "might", "possibly", "probably", "perhaps", "i think",
	"not sure", "unclear", "uncertain", "it seems",
}

var disclaimerPhrases = []string{
	"consult your doctor", "consult a physician", "seek medical advice",
	"this is not medical advice", "talk to your healthcare provider",
}

func findHedges(text string) []string {
	lower := strings.ToLower(text)
	out := make([]string, 0, 2)
	for _, phrase := range hedgePhrases {
		if containsWord(lower, phrase) {
			out = append(out, phrase)
		}
	}
	return out
}

func findDisclaimers(text string) []string {
	lower := strings.ToLower(text)
	out := make([]string, 0, 1)
	for _, phrase := range disclaimerPhrases {
		if strings.Contains(lower, phrase) {
			out = append(out, phrase)
		}
	}
	return out
}

func containsWord(lower, word string) bool {
	padded := " " + strings.Map(textutil.PunctToSpace, lower) + " "
	return strings.Contains(padded, " "+word+" ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
