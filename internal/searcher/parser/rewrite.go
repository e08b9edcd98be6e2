package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// FuzzyMinLength is the shortest term FuzzyRewrite marks as fuzzy.
const FuzzyMinLength = 4

// FuzzyRewrite appends "~1" to every whitespace-separated word made only of
// letters and digits and at least FuzzyMinLength characters long. Other
// words, operators included, are kept as they are.
func FuzzyRewrite(query string) string {
	return FuzzyRewriteMin(query, FuzzyMinLength)
}

// FuzzyRewriteMin is FuzzyRewrite with a configurable minimum length. A
// minimum below FuzzyMinLength is raised to it.
func FuzzyRewriteMin(query string, minLength int) string {
	minLength = max(minLength, FuzzyMinLength)
	words := strings.Fields(query)
	for i, w := range words {
		if utf8.RuneCountInString(w) >= minLength && isAlnum(w) && !isOperator(w) {
			words[i] = w + "~1"
		}
	}
	return strings.Join(words, " ")
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isOperator(w string) bool {
	return w == "AND" || w == "OR" || w == "NOT"
}
