// Package textnorm cleans free text before it is compared, hashed or sent to collaborators.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC, drops control characters and collapses whitespace runs.
func Normalize(text string) string {
	normed := norm.NFKC.String(text)
	normed = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
	return strings.Join(strings.Fields(normed), " ")
}

// Fold is Normalize plus lower-casing; used for case-insensitive keys and token tests.
func Fold(text string) string {
	return strings.ToLower(Normalize(text))
}

// ContainsWord reports whether word occurs in text as a whole word, ignoring case.
func ContainsWord(text, word string) bool {
	word = Fold(word)
	if word == "" {
		return false
	}
	fields := strings.FieldsFunc(Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if f == word {
			return true
		}
	}
	return false
}
