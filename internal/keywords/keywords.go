// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keywords reduces free text to a term set for keyword-match
// fallback search.
package keywords

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTermLength is the exclusive lower bound on term length, in runes.
const minTermLength = 2

// stopwords is the fixed list of terms never used for matching.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "all": true, "any": true, "can": true, "had": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "has": true, "have": true,
	"him": true, "his": true, "how": true, "its": true, "may": true, "new": true,
	"now": true, "old": true, "see": true, "two": true, "who": true, "did": true,
	"does": true, "get": true, "got": true, "let": true, "put": true, "say": true,
	"she": true, "too": true, "use": true, "that": true, "this": true, "with": true,
	"from": true, "they": true, "them": true, "then": true, "than": true,
	"there": true, "their": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "will": true, "would": true, "could": true,
	"should": true, "about": true, "into": true, "onto": true, "over": true,
	"under": true, "your": true, "yours": true, "were": true, "been": true,
	"being": true, "also": true, "just": true, "like": true, "more": true,
	"most": true, "some": true, "such": true, "only": true, "very": true,
	"each": true, "other": true, "these": true, "those": true, "because": true,
	"why": true, "via": true, "per": true, "way": true, "make": true,
}

// Extract lowercases text, strips punctuation and symbols, and returns the
// distinct terms longer than two runes that are not stopwords, in the order
// they first appear.
func Extract(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, text)

	seen := make(map[string]bool)
	var terms []string
	for _, tok := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(tok) <= minTermLength || stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		terms = append(terms, tok)
	}
	return terms
}

// IsStopword reports whether term is in the fixed stopword list.
func IsStopword(term string) bool {
	return stopwords[strings.ToLower(term)]
}
