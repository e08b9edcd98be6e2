// Package tokenizer holds the analyzers behind the index schema. Content
// text is lower-cased, split on non-alphanumeric boundaries, filtered for
// stop-words and stemmed with a suffix stripper. Keyword fields split on
// commas and literal fields are matched as one case-folded value.
package tokenizer

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

type suffixRule struct {
	suffix      string
	replacement string
	minLen      int
}

// Rules are tried in order; the first matching suffix whose replacement
// leaves at least minLen bytes wins.
var suffixRules = []suffixRule{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// Token represents a single normalised term and its position in the
// original text. Surface is the lowercased word before stemming.
type Token struct {
	Term     string
	Surface  string
	Position int
}

// Tokenize runs the content analyzer: stemmed, lowercased Tokens with
// stop-words and single-character words removed.
func Tokenize(text string) []Token {
	words := splitWords(text)
	tokens := make([]Token, 0, len(words)/2)
	pos := 0
	for _, word := range words {
		term, ok := analyzeWord(word)
		if !ok {
			continue
		}
		tokens = append(tokens, Token{
			Term:     term,
			Surface:  word,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// AnalyzeTerm runs a single query word through the content analyzer. A word
// may split into several terms ("alpha-particle"); stop-words yield none.
func AnalyzeTerm(word string) []string {
	words := splitWords(word)
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if term, ok := analyzeWord(w); ok {
			terms = append(terms, term)
		}
	}
	return terms
}

// KeywordTerms runs the keyword analyzer over a comma-joined tag list.
// Each trimmed, lowercased tag is one term; repeats are kept so that the
// per-term frequency reflects them.
func KeywordTerms(tags string) []string {
	if strings.TrimSpace(tags) == "" {
		return nil
	}
	parts := strings.Split(tags, ",")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.ToLower(strings.TrimSpace(p))
		if t == "" {
			continue
		}
		terms = append(terms, t)
	}
	return terms
}

// LiteralTerm returns the single indexed term of a literal field.
func LiteralTerm(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func analyzeWord(word string) (string, bool) {
	if len(word) < 2 {
		return "", false
	}
	if _, isStop := stopWords[word]; isStop {
		return "", false
	}
	stemmed := stem(word)
	if stemmed == "" {
		return "", false
	}
	return stemmed, true
}

// stem applies a simple suffix-stripping stemmer to the given word.
func stem(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
