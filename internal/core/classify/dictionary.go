package classify

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/core/textutil"
)

// abbreviationDict holds groups of equivalent forms. Every group contains the
// abbreviation and its full-form expansions; lookup is bidirectional because
// matching any form pulls in the whole group.
type abbreviationDict struct {
	groups [][]string
}

func builtinAbbreviations() *abbreviationDict {
	return &abbreviationDict{groups: [][]string{
		{"dka", "diabetic ketoacidosis"},
		{"stemi", "st elevation myocardial infarction", "st-elevation myocardial infarction"},
		{"nstemi", "non st elevation myocardial infarction"},
		{"mi", "myocardial infarction", "heart attack"},
		{"cva", "cerebrovascular accident", "stroke"},
		{"tpa", "tissue plasminogen activator", "alteplase"},
		{"pe", "pulmonary embolism"},
		{"dvt", "deep vein thrombosis"},
		{"chf", "congestive heart failure", "heart failure"},
		{"copd", "chronic obstructive pulmonary disease"},
		{"uti", "urinary tract infection"},
		{"cpr", "cardiopulmonary resuscitation"},
		{"acls", "advanced cardiac life support"},
		{"icu", "intensive care unit"},
		{"ed", "emergency department", "emergency room"},
		{"or", "operating room"},
		{"gi", "gastrointestinal"},
		{"iv", "intravenous"},
		{"im", "intramuscular"},
		{"po", "by mouth", "oral"},
		{"prn", "as needed"},
		{"bp", "blood pressure"},
		{"hr", "heart rate"},
		{"epi", "epinephrine", "adrenaline"},
		{"abx", "antibiotics"},
		{"sepsis", "septic shock", "severe sepsis"},
		{"sah", "subarachnoid hemorrhage"},
		{"tbi", "traumatic brain injury"},
		{"aki", "acute kidney injury"},
		{"afib", "atrial fibrillation"},
	}}
}

func (d *abbreviationDict) merge(extra map[string][]string) {
	for abbr, expansions := range extra {
		group := make([]string, 0, len(expansions)+1)
		group = append(group, strings.ToLower(strings.TrimSpace(abbr)))
		for _, e := range expansions {
			group = append(group, strings.ToLower(strings.TrimSpace(e)))
		}
		d.groups = append(d.groups, group)
	}
}

// synonymDict maps a category to synonym groups relevant to it. Groups for
// the detected category are merged first, remaining categories follow in the
// canonical priority order.
type synonymDict struct {
	byCategory map[domain.Category][][]string
}

func builtinSynonyms() *synonymDict {
	return &synonymDict{byCategory: map[domain.Category][][]string{
		domain.CategoryDosage: {
			{"dose", "dosage", "dosing"},
			{"bolus", "loading dose"},
			{"infusion", "drip"},
		},
		domain.CategoryContact: {
			{"phone", "telephone", "call"},
			{"pager", "page", "beeper"},
			{"on-call", "covering"},
		},
		domain.CategoryProtocol: {
			{"protocol", "pathway", "guideline", "algorithm"},
			{"activation", "activate", "initiate"},
		},
		domain.CategoryCriteria: {
			{"criteria", "eligibility", "indication"},
			{"contraindication", "exclusion"},
		},
		domain.CategoryForm: {
			{"form", "document", "paperwork"},
			{"consent", "authorization"},
		},
		domain.CategorySummary: {
			{"summary", "overview"},
		},
	}}
}

func (d *synonymDict) merge(extra map[string][]string) {
	for category, terms := range extra {
		group := make([]string, 0, len(terms))
		for _, t := range terms {
			group = append(group, strings.ToLower(strings.TrimSpace(t)))
		}
		key := domain.Category(strings.ToLower(category))
		d.byCategory[key] = append(d.byCategory[key], group)
	}
}

// orderedGroups returns all synonym groups with the detected category's
// groups first.
func (d *synonymDict) orderedGroups(category domain.Category) [][]string {
	out := make([][]string, 0, 16)
	out = append(out, d.byCategory[category]...)
	for _, c := range domain.CategoryPriority {
		if c == category {
			continue
		}
		out = append(out, d.byCategory[c]...)
	}
	return out
}

// DictionaryOverlay is the YAML shape for site-specific dictionary additions.
type DictionaryOverlay struct {
	Abbreviations map[string][]string `yaml:"abbreviations"`
	Synonyms      map[string][]string `yaml:"synonyms"`
}

// LoadOverlay parses a dictionary overlay document.
func LoadOverlay(r io.Reader) (DictionaryOverlay, error) {
	var overlay DictionaryOverlay
	raw, err := io.ReadAll(r)
	if err != nil {
		return overlay, fmt.Errorf("read overlay: %w", err)
	}
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return overlay, fmt.Errorf("parse overlay yaml: %w", err)
	}
	return overlay, nil
}

// phraseIn reports whether form occurs in normalized text on word boundaries.
func phraseIn(normalized, form string) bool {
	if form == "" {
		return false
	}
	padded := " " + normalized + " "
	return strings.Contains(padded, " "+form+" ")
}

// tokenIn reports whether form is a single token present in the token set.
func tokenIn(tokens map[string]struct{}, form string) bool {
	if strings.ContainsRune(form, ' ') {
		return false
	}
	_, ok := tokens[form]
	return ok
}

func matchesAnyForm(normalized string, tokens map[string]struct{}, group []string) bool {
	for _, form := range group {
		if tokenIn(tokens, form) || phraseIn(normalized, textutil.Normalize(form)) {
			return true
		}
	}
	return false
}
