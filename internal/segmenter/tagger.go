package segmenter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tagger extracts entity-like tag strings from the start of a question.
type Tagger interface {
	Tags(text string) []string
}

// TagWindow is how many characters of a question body are scanned for tags.
const TagWindow = 200

// Tag categories reported by RuleTagger.
const (
	CategoryOrganization = "organization"
	CategoryPerson       = "person"
	CategoryProduct      = "product"
	CategoryCreativeWork = "creative-work"
)

// Entity is one tag candidate with the rule that found it.
type Entity struct {
	Text     string
	Category string
}

var orgHeads = map[string]struct{}{
	"university": {}, "institute": {}, "society": {}, "agency": {},
	"organisation": {}, "organization": {}, "council": {},
	"laboratory": {}, "corporation": {},
}

const (
	minQuoted = 2
	maxQuoted = 60
)

// RuleTagger is a deterministic scanner for organizations, persons,
// products and quoted creative works. It never tags a lone capitalised
// word at the start of a sentence.
type RuleTagger struct{}

func (RuleTagger) Tags(text string) []string {
	entities := RuleTagger{}.Entities(text)
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Text
	}
	return out
}

type word struct {
	text       string
	start, end int
	sentStart  bool
	possessive bool
}

// Entities returns the entities of text in order of appearance.
func (RuleTagger) Entities(text string) []Entity {
	var out []Entity
	words, quotes := scan(text)
	qi := 0
	for i := 0; i < len(words); {
		for qi < len(quotes) && quotes[qi].start < words[i].start {
			out = append(out, quotes[qi].Entity)
			qi++
		}
		w := words[i]
		switch {
		case w.possessive && isTitle(w.text):
			out = append(out, Entity{Text: w.text, Category: CategoryPerson})
			i++
		case isAcronym(w.text):
			out = append(out, Entity{Text: w.text, Category: CategoryOrganization})
			i++
		case isProduct(w.text):
			out = append(out, Entity{Text: w.text, Category: CategoryProduct})
			i++
		case isTitle(w.text):
			j := spanEnd(text, words, i)
			if e, ok := classifySpan(text, words[i:j]); ok {
				out = append(out, e)
			}
			i = j
		default:
			i++
		}
	}
	for ; qi < len(quotes); qi++ {
		out = append(out, quotes[qi].Entity)
	}
	return out
}

// spanEnd returns the index after the run of title-case words starting at i.
// Words must be separated by whitespace only; a lowercase "of" may join two
// title-case words. Possessives end a run.
func spanEnd(text string, words []word, i int) int {
	j := i + 1
	for j < len(words) {
		if !onlySpace(text[words[j-1].end:words[j].start]) || words[j-1].possessive || words[j].possessive {
			break
		}
		if isTitle(words[j].text) && !isProduct(words[j].text) {
			j++
			continue
		}
		if words[j].text == "of" && j+1 < len(words) && isTitle(words[j+1].text) &&
			onlySpace(text[words[j].end:words[j+1].start]) {
			j += 2
			continue
		}
		break
	}
	return j
}

func classifySpan(text string, span []word) (Entity, bool) {
	surface := func(ws []word) string {
		return text[ws[0].start:ws[len(ws)-1].end]
	}
	if len(span) >= 2 {
		for _, w := range span {
			if _, ok := orgHeads[strings.ToLower(w.text)]; ok {
				return Entity{Text: surface(span), Category: CategoryOrganization}, true
			}
		}
	}
	if span[0].sentStart {
		span = span[1:]
		if len(span) > 0 && span[0].text == "of" {
			span = span[1:]
		}
	}
	if len(span) >= 2 {
		return Entity{Text: surface(span), Category: CategoryPerson}, true
	}
	return Entity{}, false
}

type quoted struct {
	Entity
	start int
}

// scan splits text into words and collects quoted spans.
func scan(text string) ([]word, []quoted) {
	var words []word
	var quotes []quoted
	sentStart := true
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case isOpenQuote(r):
			closeAt := closingQuote(text, i+size, r)
			if closeAt < 0 {
				i += size
				continue
			}
			inner := strings.TrimSpace(text[i+size : closeAt])
			if n := utf8.RuneCountInString(inner); n >= minQuoted && n <= maxQuoted {
				quotes = append(quotes, quoted{
					Entity: Entity{Text: inner, Category: CategoryCreativeWork},
					start:  i,
				})
			}
			_, closeSize := utf8.DecodeRuneInString(text[closeAt:])
			i = closeAt + closeSize
			sentStart = false
		case isWordRune(r):
			start := i
			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if !isWordRune(r) && !isInnerHyphen(text, i, r) {
					break
				}
				i += size
			}
			w := word{text: text[start:i], start: start, end: i, sentStart: sentStart}
			if n := possessiveLen(text[i:]); n > 0 {
				w.possessive = true
				i += n
			}
			words = append(words, w)
			sentStart = false
		default:
			switch r {
			case '.', '?', '!', ':', ';', '\n':
				sentStart = true
			}
			i += size
		}
	}
	return words, quotes
}

func isOpenQuote(r rune) bool {
	return r == '"' || r == '“'
}

func closingQuote(text string, from int, open rune) int {
	closeRune := '"'
	if open == '“' {
		closeRune = '”'
	}
	idx := strings.IndexRune(text[from:], closeRune)
	if idx < 0 {
		return -1
	}
	return from + idx
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isInnerHyphen(text string, i int, r rune) bool {
	if r != '-' || i+1 >= len(text) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(text[i+1:])
	return isWordRune(next)
}

func possessiveLen(rest string) int {
	for _, p := range []string{"'s", "’s"} {
		if strings.HasPrefix(rest, p) {
			after := rest[len(p):]
			if after == "" {
				return len(p)
			}
			r, _ := utf8.DecodeRuneInString(after)
			if !isWordRune(r) {
				return len(p)
			}
		}
	}
	return 0
}

func onlySpace(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}

// isTitle reports an initial upper-case letter followed by at least one
// lower-case letter.
func isTitle(s string) bool {
	first, size := utf8.DecodeRuneInString(s)
	if !unicode.IsUpper(first) {
		return false
	}
	for _, r := range s[size:] {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

// isAcronym matches two or more upper-case letters with no digits or
// lower-case letters. Roman numerals are excluded.
func isAcronym(s string) bool {
	letters := 0
	roman := true
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			letters++
			if !strings.ContainsRune("IVXLCDM", r) {
				roman = false
			}
		case r == '-':
		default:
			return false
		}
	}
	return letters >= 2 && !roman
}

// isProduct matches a title-case word carrying a digit, like "Pentium4".
// All-caps words with digits ("H2O", "CO2") read as formulas and are skipped.
func isProduct(s string) bool {
	hasDigit := false
	for _, r := range s {
		if unicode.IsDigit(r) {
			hasDigit = true
			break
		}
	}
	return hasDigit && isTitle(s)
}
