package textutil

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "be": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "to": {}, "of": {}, "and": {}, "or": {}, "in": {}, "that": {},
	"have": {}, "has": {}, "it": {}, "for": {}, "not": {}, "on": {}, "with": {},
	"as": {}, "you": {}, "do": {}, "does": {}, "at": {}, "this": {}, "but": {},
	"by": {}, "from": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"who": {}, "how": {}, "me": {}, "my": {}, "we": {}, "our": {}, "can": {},
	"should": {}, "would": {}, "will": {}, "there": {}, "their": {}, "its": {},
	"show": {}, "give": {}, "get": {}, "need": {}, "please": {},
}

// IsStopWord reports whether the lowercase token carries no retrieval signal.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

// Tokenize splits text into lowercase alphanumeric tokens.
func Tokenize(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

// TokenSet builds a membership set from Tokenize output.
func TokenSet(s string) map[string]struct{} {
	tokens := Tokenize(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

// SignificantTerms returns lowercase tokens longer than two runes with stop
// words removed. This is the term population used for groundedness and
// terminology overlap checks.
func SignificantTerms(s string) []string {
	tokens := Tokenize(s)
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) <= 2 {
			continue
		}
		if IsStopWord(token) {
			continue
		}
		out = append(out, token)
	}
	return out
}

// PunctToSpace maps sentence punctuation to a space, for use with
// strings.Map before word-boundary matching. "may," and "may" must count
// the same everywhere hedges or phrases are looked up.
func PunctToSpace(r rune) rune {
	switch r {
	case ',', ';', ':', '.', '!', '?', '(', ')', '"', '\'':
		return ' '
	}
	return r
}

// Normalize lowercases text, collapses runs of whitespace to single spaces,
// and strips punctuation except hyphen and period. Offset math in the
// evidence mapper depends on this exact transformation.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		r = unicode.ToLower(r)
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.':
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Overlap computes |query ∩ other| / |query| over term sets.
func Overlap(query, other map[string]struct{}) float64 {
	if len(query) == 0 || len(other) == 0 {
		return 0
	}
	matches := 0
	for term := range query {
		if _, ok := other[term]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}
