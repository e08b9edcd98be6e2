// Package segmenter splits exam-paper text into numbered question records
// and derives a subject and entity-like tags for each.
//
// Segmentation is best effort: a question starts wherever a line begins with
// a number followed by "." or ")" and whitespace. Numbered sub-items inside
// a question split it, and option lists stay in the question text.
package segmenter

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
)

var questionStart = regexp.MustCompile(`(?:\n|^)(\d+)[.)]\s+`)

// Question is one segmented question. ID is the number printed in the paper.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Subject string   `json:"subject"`
	Tags    []string `json:"tags"`
}

// Segmenter splits paper text into questions and tags each one.
type Segmenter struct {
	tagger Tagger
	logger *slog.Logger
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithTagger replaces the rule-based tagger.
func WithTagger(t Tagger) Option {
	return func(s *Segmenter) {
		s.tagger = t
	}
}

// New returns a Segmenter using RuleTagger unless an option replaces it.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{
		tagger: RuleTagger{},
		logger: slog.Default().With("component", "segmenter"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment returns the questions of text in order of appearance, or an empty
// slice when no question numbering is found.
func (s *Segmenter) Segment(text string) []Question {
	starts := questionStart.FindAllStringIndex(text, -1)
	if len(starts) == 0 {
		return []Question{}
	}
	questions := make([]Question, 0, len(starts))
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		block := strings.TrimSpace(text[loc[0]:end])
		m := questionStart.FindStringSubmatchIndex(block)
		if m == nil {
			continue
		}
		body := strings.TrimSpace(block[m[1]:])
		tags := s.tagger.Tags(tagWindow(body))
		if tags == nil {
			tags = []string{}
		}
		questions = append(questions, Question{
			ID:      block[m[2]:m[3]],
			Text:    body,
			Subject: DetectSubject(body),
			Tags:    tags,
		})
	}
	s.logger.Debug("text segmented", "questions", len(questions), "bytes", len(text))
	return questions
}

// SegmentDocument segments text and maps each question to an index document
// with id "<source>_<number>". A number printed twice keeps the position of
// its first occurrence and the contents of its last.
func (s *Segmenter) SegmentDocument(source, year, text string) []index.Document {
	questions := s.Segment(text)
	docs := make([]index.Document, 0, len(questions))
	pos := make(map[string]int, len(questions))
	for _, q := range questions {
		d := index.Document{
			ID:      source + "_" + q.ID,
			Content: q.Text,
			Tags:    JoinTags(q.Tags),
			Year:    year,
			Subject: q.Subject,
		}
		if i, dup := pos[d.ID]; dup {
			docs[i] = d
			continue
		}
		pos[d.ID] = len(docs)
		docs = append(docs, d)
	}
	return docs
}

// JoinTags renders tags as the comma-separated keyword field. Commas inside a
// tag would split it, so they become spaces.
func JoinTags(tags []string) string {
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.ReplaceAll(t, ",", " "))
		if t != "" {
			clean = append(clean, t)
		}
	}
	return strings.Join(clean, ",")
}

func tagWindow(body string) string {
	n := 0
	for i := range body {
		if n == TagWindow {
			return body[:i]
		}
		n++
	}
	return body
}

// Segment runs a segmenter with the rule-based tagger.
func Segment(text string) []Question {
	return New().Segment(text)
}
