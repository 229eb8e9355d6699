// Package normalize produces the canonical text compared by the scorer.
package normalize

import (
	"strings"
	"unicode"
)

// punctuation kept by Normalize. Everything else that is not a letter, a
// digit or whitespace is dropped.
const punctuation = ".,+#-/_'"

type Normalizer struct {
	RemoveStopwords bool
}

func New(removeStopwords bool) Normalizer {
	return Normalizer{RemoveStopwords: removeStopwords}
}

// Normalize lowercases, drops characters outside the allow-list, collapses
// whitespace and optionally removes English stopwords. It is idempotent.
func (n Normalizer) Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case allowed(r):
			b.WriteRune(r)
		}
	}

	tokens := strings.Fields(b.String())
	if n.RemoveStopwords {
		tokens = dropStopwords(tokens)
	}

	return strings.Join(tokens, " ")
}

func allowed(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(punctuation, r)
}

func dropStopwords(tokens []string) []string {
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}
	return kept
}

// CleanStructure collapses whitespace runs into single spaces and trims the
// result. Case and punctuation are kept; the oracle reads this text.
func CleanStructure(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
