// Package ingestion defines the record, request and event types that move
// questions from extracted paper text or OCR output into the index.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
)

// Record is one question as supplied by an external producer. Optional
// fields are pointers or nil slices so that absence stays distinguishable
// from an empty value.
type Record struct {
	ID            string   `json:"id"`
	Content       string   `json:"content"`
	Tags          *string  `json:"tags,omitempty"`
	Year          *string  `json:"year,omitempty"`
	Subject       *string  `json:"subject,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer *string  `json:"correct_answer,omitempty"`
	Explanation   *string  `json:"explanation,omitempty"`

	// QuestionText is the OCR transcription shape. When Content is empty it
	// is combined with Options to form the indexed content.
	QuestionText string `json:"question_text,omitempty"`
}

// TextRequest asks for extracted paper text to be segmented and indexed.
// Pages, when set, are joined one per line ahead of Text.
type TextRequest struct {
	Source    string   `json:"source"`
	Year      string   `json:"year,omitempty"`
	Text      string   `json:"text,omitempty"`
	Pages     []string `json:"pages,omitempty"`
	Normalize bool     `json:"normalize,omitempty"`
}

// TextResponse reports what a TextRequest produced.
type TextResponse struct {
	BatchID            string   `json:"batch_id"`
	Source             string   `json:"source"`
	QuestionsProcessed int      `json:"questions_processed"`
	DocumentIDs        []string `json:"document_ids"`
	Status             string   `json:"status"`
}

// RecordFailure explains why one record of a batch was rejected.
type RecordFailure struct {
	Index  int               `json:"index"`
	ID     string            `json:"id,omitempty"`
	Fields map[string]string `json:"fields"`
}

// RecordsResponse reports the outcome of a record batch.
type RecordsResponse struct {
	BatchID     string          `json:"batch_id"`
	Accepted    int             `json:"accepted"`
	DocumentIDs []string        `json:"document_ids"`
	Rejected    []RecordFailure `json:"rejected"`
	Status      string          `json:"status"`
}

// IngestEvent is the Kafka payload carrying one batch of records to the
// indexer worker.
type IngestEvent struct {
	BatchID    string    `json:"batch_id"`
	Source     string    `json:"source"`
	Records    []Record  `json:"records"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Batch statuses recorded in responses and the ledger.
const (
	StatusIndexed   = "INDEXED"
	StatusPublished = "PUBLISHED"
	StatusFailed    = "FAILED"
	StatusEmpty     = "EMPTY"
)

// StringPtr returns a pointer to s, for building Records in code.
func StringPtr(s string) *string {
	return &s
}

// RecordFromDocument is the inverse of validation, used when documents
// built in-process travel over Kafka.
func RecordFromDocument(d index.Document) Record {
	rec := Record{ID: d.ID, Content: d.Content, Options: d.Options}
	set := func(dst **string, v string) {
		if v != "" {
			*dst = StringPtr(v)
		}
	}
	set(&rec.Tags, d.Tags)
	set(&rec.Year, d.Year)
	set(&rec.Subject, d.Subject)
	set(&rec.CorrectAnswer, d.CorrectAnswer)
	set(&rec.Explanation, d.Explanation)
	return rec
}
