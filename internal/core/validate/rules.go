package validate

import (
	"regexp"
	"strings"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
)

// Category sanity rules. Each violation is a hard issue that fails the
// candidate outright.

const criteriaMinLength = 60

var timeCriticalConditions = []string{
	"stemi", "stroke", "sepsis", "cardiac arrest", "anaphylaxis",
	"trauma activation", "massive transfusion", "code blue",
}

var (
	numericTimingPattern = regexp.MustCompile(`(?i)\b\d+\s?(minutes?|min|seconds?|sec|hours?|hrs?)\b`)
	contactIDPattern     = regexp.MustCompile(`(?i)(\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}|\b(pager|ext\.?|extension|x)\s?#?\d{3,6}\b)`)
	doseWithUnitPattern  = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s?(mg|mcg|g|ml|units?|mmol|meq)(/kg)?\b`)
)

var populationQualifiers = []string{
	"adult", "pediatric", "paediatric", "child", "children", "infant",
	"neonatal", "weight-based", "per kg", "/kg", "kg",
}

// categoryRules returns hard issues for the candidate text under the query
// category, empty when all applicable rules pass.
func categoryRules(text string, category domain.Category) []string {
	lower := strings.ToLower(text)
	var issues []string

	switch category {
	case domain.CategoryProtocol:
		if mentionsTimeCriticalCondition(lower) &&
			!numericTimingPattern.MatchString(text) &&
			!contactIDPattern.MatchString(text) {
			issues = append(issues, "protocol for time-critical condition lacks numeric timing or contact")
		}
	case domain.CategoryDosage:
		if !doseWithUnitPattern.MatchString(text) {
			issues = append(issues, "dosage missing unit-qualified numeric dose")
		}
		if !hasPopulationQualifier(lower) {
			issues = append(issues, "dosage missing population qualifier")
		}
	case domain.CategoryCriteria:
		if len(strings.TrimSpace(text)) < criteriaMinLength {
			issues = append(issues, "criteria answer too short to be complete")
		}
	}
	return issues
}

func mentionsTimeCriticalCondition(lower string) bool {
	for _, condition := range timeCriticalConditions {
		if strings.Contains(lower, condition) {
			return true
		}
	}
	return false
}

func hasPopulationQualifier(lower string) bool {
	for _, qualifier := range populationQualifiers {
		if strings.Contains(lower, qualifier) {
			return true
		}
	}
	return false
}
