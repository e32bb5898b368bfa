package classify

import (
	"sort"
	"strings"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/core/textutil"
)

// maxExpansionRounds bounds the fixpoint loop. Dictionary chains are shallow;
// two rounds normally suffice.
const maxExpansionRounds = 4

// Expand builds the expanded term set for a query: its own significant terms,
// the full closure of every matched abbreviation group, and every matched
// synonym group, with the detected category's synonym groups considered
// first. Expansion runs to a fixpoint so re-expanding an already-expanded set
// introduces no new terms.
func (c *Classifier) Expand(text string, category domain.Category) []string {
	set := make(map[string]struct{})
	for _, term := range textutil.SignificantTerms(text) {
		set[term] = struct{}{}
	}
	// Short tokens still matter here: "pe", "iv", "po" are real clinical
	// abbreviations even though they fall below the significance cutoff.
	for _, token := range textutil.Tokenize(text) {
		if len(token) == 2 && c.isKnownAbbreviation(token) {
			set[token] = struct{}{}
		}
	}

	for round := 0; round < maxExpansionRounds; round++ {
		if !c.expandOnce(set, category) {
			break
		}
	}

	out := make([]string, 0, len(set))
	for term := range set {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

// expandOnce applies one dictionary pass over the current set and reports
// whether anything new was added.
func (c *Classifier) expandOnce(set map[string]struct{}, category domain.Category) bool {
	normalized := joinedNormalized(set)
	tokens := tokenMembership(set)

	added := false
	add := func(form string) {
		form = textutil.Normalize(form)
		if form == "" {
			return
		}
		if _, ok := set[form]; !ok {
			set[form] = struct{}{}
			added = true
		}
	}

	for _, group := range c.abbreviations.groups {
		if matchesAnyForm(normalized, tokens, group) {
			for _, form := range group {
				add(form)
			}
		}
	}

	for _, group := range c.synonyms.orderedGroups(category) {
		if matchesAnyForm(normalized, tokens, group) {
			for _, form := range group {
				add(form)
			}
		}
	}

	return added
}

func (c *Classifier) isKnownAbbreviation(token string) bool {
	for _, group := range c.abbreviations.groups {
		for _, form := range group {
			if form == token {
				return true
			}
		}
	}
	return false
}

// joinedNormalized renders the term set as one normalized text so multi-word
// dictionary forms can match phrases already in the set.
func joinedNormalized(set map[string]struct{}) string {
	parts := make([]string, 0, len(set))
	for term := range set {
		parts = append(parts, term)
	}
	sort.Strings(parts)
	return textutil.Normalize(strings.Join(parts, " "))
}

func tokenMembership(set map[string]struct{}) map[string]struct{} {
	tokens := make(map[string]struct{}, len(set)*2)
	for term := range set {
		for _, token := range textutil.Tokenize(term) {
			tokens[token] = struct{}{}
		}
	}
	return tokens
}
