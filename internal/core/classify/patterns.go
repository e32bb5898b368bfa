package classify

import (
	"regexp"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
)

// indicator is one weighted signal for a category. Phrase indicators match as
// substrings of the normalized query; pattern indicators are regexps applied
// to the raw query.
type indicator struct {
	phrase  string
	pattern *regexp.Regexp
	weight  float64
}

// categoryIndicators holds the weighted indicator sets per category. Scores
// are summed per category and capped at 1.0.
var categoryIndicators = map[domain.Category][]indicator{
	domain.CategoryForm: {
		{phrase: "form", weight: 0.5},
		{phrase: "consent", weight: 0.4},
		{phrase: "document", weight: 0.3},
		{phrase: "paperwork", weight: 0.4},
		{phrase: "checklist", weight: 0.35},
		{phrase: "template", weight: 0.3},
		{phrase: "pdf", weight: 0.25},
		{pattern: regexp.MustCompile(`(?i)\b(print|download|fill out)\b`), weight: 0.3},
	},
	domain.CategoryProtocol: {
		{phrase: "protocol", weight: 0.5},
		{phrase: "pathway", weight: 0.4},
		{phrase: "guideline", weight: 0.35},
		{phrase: "algorithm", weight: 0.35},
		{phrase: "activation", weight: 0.3},
		{phrase: "management of", weight: 0.25},
		{phrase: "steps for", weight: 0.25},
		{pattern: regexp.MustCompile(`(?i)\bhow (do|should) (i|we) (manage|treat|activate)\b`), weight: 0.3},
	},
	domain.CategoryDosage: {
		{phrase: "dose", weight: 0.5},
		{phrase: "dosage", weight: 0.5},
		{phrase: "dosing", weight: 0.45},
		{phrase: "how much", weight: 0.35},
		{phrase: "infusion rate", weight: 0.35},
		{phrase: "bolus", weight: 0.3},
		{pattern: regexp.MustCompile(`(?i)\b(mg|mcg|units?)/(kg|hr|min)\b`), weight: 0.4},
		{pattern: regexp.MustCompile(`(?i)\b(pediatric|adult|weight.based) dos`), weight: 0.4},
	},
	domain.CategoryCriteria: {
		{phrase: "criteria", weight: 0.5},
		{phrase: "eligibility", weight: 0.45},
		{phrase: "indication", weight: 0.35},
		{phrase: "contraindication", weight: 0.4},
		{phrase: "qualify", weight: 0.35},
		{phrase: "when to", weight: 0.25},
		{pattern: regexp.MustCompile(`(?i)\bwho (is|are) (eligible|candidates?)\b`), weight: 0.35},
	},
	domain.CategoryContact: {
		{phrase: "contact", weight: 0.5},
		{phrase: "phone", weight: 0.45},
		{phrase: "pager", weight: 0.45},
		{phrase: "page ", weight: 0.3},
		{phrase: "call", weight: 0.3},
		{phrase: "extension", weight: 0.4},
		{phrase: "on call", weight: 0.45},
		{phrase: "on-call", weight: 0.45},
		{pattern: regexp.MustCompile(`(?i)\bwho (do|should) (i|we) (call|page|notify)\b`), weight: 0.45},
	},
	domain.CategorySummary: {
		{phrase: "summary", weight: 0.4},
		{phrase: "overview", weight: 0.35},
		{phrase: "what is", weight: 0.2},
		{phrase: "tell me about", weight: 0.3},
		{phrase: "explain", weight: 0.25},
	},
}
