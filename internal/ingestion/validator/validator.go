// Package validator checks ingestion records at the boundary and converts
// them into index documents, reporting every failing field at once.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion"
)

const (
	maxIDLength      = 255
	maxContentLength = 1 << 20
	maxTagsLength    = 4096
	maxOptions       = 16
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

// ValidateRecord checks rec and returns the document to index. OCR-shaped
// records get their content composed from the question text and options,
// and their tags from subject and year when none are given.
func ValidateRecord(rec ingestion.Record) (index.Document, error) {
	errs := make(map[string]string)

	id := strings.TrimSpace(rec.ID)
	switch {
	case id == "":
		errs["id"] = "id is required"
	case len(id) > maxIDLength:
		errs["id"] = fmt.Sprintf("id must be at most %d bytes", maxIDLength)
	case strings.IndexFunc(id, unicode.IsControl) >= 0:
		errs["id"] = "id must not contain control characters"
	}

	content := rec.Content
	if strings.TrimSpace(content) == "" && strings.TrimSpace(rec.QuestionText) != "" {
		content = ComposeOCRContent(rec.QuestionText, rec.Options)
	}
	switch {
	case strings.TrimSpace(content) == "":
		errs["content"] = "content is required"
	case len(content) > maxContentLength:
		errs["content"] = fmt.Sprintf("content must be at most %d bytes", maxContentLength)
	}

	tags := deref(rec.Tags)
	if len(tags) > maxTagsLength {
		errs["tags"] = fmt.Sprintf("tags must be at most %d bytes", maxTagsLength)
	}
	if len(rec.Options) > maxOptions {
		errs["options"] = fmt.Sprintf("at most %d options are allowed", maxOptions)
	}

	if len(errs) > 0 {
		return index.Document{}, &ValidationError{Fields: errs}
	}

	doc := index.Document{
		ID:            id,
		Content:       content,
		Tags:          tags,
		Year:          strings.TrimSpace(deref(rec.Year)),
		Subject:       strings.TrimSpace(deref(rec.Subject)),
		Options:       rec.Options,
		CorrectAnswer: deref(rec.CorrectAnswer),
		Explanation:   deref(rec.Explanation),
	}
	if rec.Tags == nil && rec.QuestionText != "" {
		doc.Tags = joinNonEmpty(doc.Subject, doc.Year)
	}
	return doc, nil
}

// ComposeOCRContent builds indexed content from an OCR transcription.
func ComposeOCRContent(question string, options []string) string {
	if len(options) == 0 {
		return question
	}
	return question + "\nOptions: " + strings.Join(options, ", ")
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ",")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
