package index

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/tokenizer"
)

// Field names of the fixed question schema.
const (
	FieldID            = "id"
	FieldContent       = "content"
	FieldTags          = "tags"
	FieldYear          = "year"
	FieldSubject       = "subject"
	FieldOptions       = "options"
	FieldCorrectAnswer = "correct_answer"
	FieldExplanation   = "explanation"
)

// SearchableFields is the default field set of the query parser.
var SearchableFields = []string{FieldContent, FieldTags, FieldSubject, FieldYear}

// Document is the unit persisted by the store. Empty strings and a nil
// Options slice mean the field is absent.
type Document struct {
	ID            string   `json:"id"`
	Content       string   `json:"content"`
	Tags          string   `json:"tags,omitempty"`
	Year          string   `json:"year,omitempty"`
	Subject       string   `json:"subject,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// StoredDocument is a Document together with the analyzed length of each
// searchable field, used for BM25 length normalisation.
type StoredDocument struct {
	Document
	Lengths map[string]int `json:"lengths"`
}

// FieldTerm is one analyzed occurrence produced for indexing. Surface is
// set for content terms whose unstemmed word differs from Term.
type FieldTerm struct {
	Field    string
	Term     string
	Surface  string
	Position int
}

// Analyze runs every searchable field of doc through its analyzer.
func Analyze(doc Document) ([]FieldTerm, map[string]int) {
	lengths := make(map[string]int, len(SearchableFields))
	out := make([]FieldTerm, 0, 32)

	for _, tok := range tokenizer.Tokenize(doc.Content) {
		ft := FieldTerm{Field: FieldContent, Term: tok.Term, Position: tok.Position}
		if tok.Surface != tok.Term {
			ft.Surface = tok.Surface
		}
		out = append(out, ft)
		lengths[FieldContent]++
	}
	for i, tag := range tokenizer.KeywordTerms(doc.Tags) {
		out = append(out, FieldTerm{Field: FieldTags, Term: tag, Position: i})
		lengths[FieldTags]++
	}
	literal := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		out = append(out, FieldTerm{Field: field, Term: tokenizer.LiteralTerm(value)})
		lengths[field] = 1
	}
	literal(FieldYear, doc.Year)
	literal(FieldSubject, doc.Subject)
	return out, lengths
}
