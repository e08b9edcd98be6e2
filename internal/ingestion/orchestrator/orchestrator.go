// Package orchestrator drives documents from segmented text, validated
// records or resumable work lists into the index store. In kafka mode the
// same inputs are published for the indexer worker instead of committed
// in-process.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion/ledger"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/segmenter"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/metrics"
)

// Store is the write side of the index.
type Store interface {
	EnsureSchema() error
	Upsert(ctx context.Context, docs []index.Document) error
	Exists(id string) bool
}

// Ledger records batches. *ledger.Ledger satisfies it.
type Ledger interface {
	Record(ctx context.Context, b ledger.Batch) error
}

// Publisher hands record batches to Kafka. *publisher.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, source string, records []ingestion.Record) (string, error)
}

// WorkItem is one unit of a resumable load. Produce may be expensive (an OCR
// call, for example) and is skipped when ID is already indexed.
type WorkItem struct {
	ID      string
	Produce func(ctx context.Context) (ingestion.Record, error)
}

// ResumeReport summarises a RunResumable call.
type ResumeReport struct {
	Indexed []string `json:"indexed"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
}

type Orchestrator struct {
	store     Store
	segmenter *segmenter.Segmenter
	ledger    Ledger
	publisher Publisher
	metrics   *metrics.Metrics
	cfg       config.IngestionConfig
	logger    *slog.Logger
}

type Option func(*Orchestrator)

func WithLedger(l Ledger) Option {
	return func(o *Orchestrator) {
		o.ledger = l
	}
}

// WithPublisher routes IngestText and IngestRecords through Kafka. It only
// takes effect when the configured mode is "kafka".
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithSegmenter(s *segmenter.Segmenter) Option {
	return func(o *Orchestrator) {
		o.segmenter = s
	}
}

func New(store Store, cfg config.IngestionConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  store,
		cfg:    cfg,
		logger: slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.segmenter == nil {
		o.segmenter = segmenter.New()
	}
	return o
}

// Commit writes docs to the index as one batch, creating the index first
// if needed. An empty batch is a no-op.
func (o *Orchestrator) Commit(ctx context.Context, docs []index.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := o.store.EnsureSchema(); err != nil {
		return fmt.Errorf("preparing index: %w", err)
	}
	if err := o.store.Upsert(ctx, docs); err != nil {
		return fmt.Errorf("committing %d documents: %w", len(docs), err)
	}
	return nil
}

// IngestText segments extracted paper text and indexes every question
// found, as ids "<source>_<number>". Text without recognisable questions
// commits nothing and reports StatusEmpty.
func (o *Orchestrator) IngestText(ctx context.Context, req ingestion.TextRequest) (ingestion.TextResponse, error) {
	log := logger.FromContext(ctx).With("component", "orchestrator")
	source := strings.TrimSpace(req.Source)
	if source == "" {
		return ingestion.TextResponse{}, fmt.Errorf("%w: source is required", apperrors.ErrInvalidInput)
	}
	year := strings.TrimSpace(req.Year)
	if year == "" {
		year = o.cfg.DefaultYear
	}

	text := req.Text
	if len(req.Pages) > 0 {
		text = normalizer.JoinPages(req.Pages) + text
	}
	if req.Normalize || o.cfg.Normalize {
		text = normalizer.Normalize(text)
	}

	start := time.Now()
	docs := o.segmenter.SegmentDocument(source, year, text)
	resp := ingestion.TextResponse{
		Source:             source,
		QuestionsProcessed: len(docs),
		DocumentIDs:        documentIDs(docs),
	}
	if len(docs) == 0 {
		resp.Status = ingestion.StatusEmpty
		log.Warn("no questions found", "source", source, "chars", len(text))
		return resp, nil
	}

	batchID, status, err := o.deliver(ctx, source, docs)
	resp.BatchID = batchID
	resp.Status = status
	o.recordBatch(ctx, batchID, source, len(docs), status)
	if err != nil {
		return resp, err
	}
	log.Info("text ingested",
		"source", source,
		"batch_id", batchID,
		"questions", len(docs),
		"status", status,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

// IngestRecords validates each record and delivers the valid ones as one
// batch. Invalid records are reported, never fatal.
func (o *Orchestrator) IngestRecords(ctx context.Context, source string, records []ingestion.Record) (ingestion.RecordsResponse, error) {
	log := logger.FromContext(ctx).With("component", "orchestrator")
	if source == "" {
		source = "records"
	}
	docs := make([]index.Document, 0, len(records))
	resp := ingestion.RecordsResponse{Rejected: []ingestion.RecordFailure{}}
	for i, rec := range records {
		doc, err := validator.ValidateRecord(rec)
		if err != nil {
			var verr *validator.ValidationError
			if !errors.As(err, &verr) {
				return resp, err
			}
			resp.Rejected = append(resp.Rejected, ingestion.RecordFailure{Index: i, ID: rec.ID, Fields: verr.Fields})
			if o.metrics != nil {
				o.metrics.ValidationFailures.Inc()
			}
			continue
		}
		docs = append(docs, doc)
	}
	resp.Accepted = len(docs)
	resp.DocumentIDs = documentIDs(docs)
	if len(docs) == 0 {
		resp.Status = ingestion.StatusEmpty
		return resp, nil
	}

	batchID, status, err := o.deliver(ctx, source, docs)
	resp.BatchID = batchID
	resp.Status = status
	o.recordBatch(ctx, batchID, source, len(docs), status)
	if err != nil {
		return resp, err
	}
	log.Info("records ingested",
		"source", source,
		"batch_id", batchID,
		"accepted", resp.Accepted,
		"rejected", len(resp.Rejected),
	)
	return resp, nil
}

// RunResumable indexes items one at a time, committing each document as
// soon as it is produced so an interrupted run can be restarted. Items whose
// id is already indexed are skipped before Produce runs. A failed Produce or
// an invalid record skips the item; a failed commit stops the run. A positive
// limit stops the run after that many newly indexed documents.
func (o *Orchestrator) RunResumable(ctx context.Context, items []WorkItem, limit int) (ResumeReport, error) {
	log := logger.FromContext(ctx).With("component", "orchestrator")
	report := ResumeReport{Indexed: []string{}}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if limit > 0 && len(report.Indexed) >= limit {
			break
		}
		if item.ID != "" && o.store.Exists(item.ID) {
			report.Skipped++
			log.Debug("already indexed", "id", item.ID)
			continue
		}
		rec, err := item.Produce(ctx)
		if err != nil {
			report.Failed++
			log.Warn("skipping item", "id", item.ID, "error", err)
			continue
		}
		if rec.ID == "" {
			rec.ID = item.ID
		}
		doc, err := validator.ValidateRecord(rec)
		if err != nil {
			report.Failed++
			if o.metrics != nil {
				o.metrics.ValidationFailures.Inc()
			}
			log.Warn("skipping invalid record", "id", item.ID, "error", err)
			continue
		}
		if err := o.Commit(ctx, []index.Document{doc}); err != nil {
			return report, fmt.Errorf("indexing %s: %w", doc.ID, err)
		}
		report.Indexed = append(report.Indexed, doc.ID)
		log.Info("indexed", "id", doc.ID, "total", len(report.Indexed))
	}
	log.Info("resumable run finished",
		"indexed", len(report.Indexed),
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}

func (o *Orchestrator) deliver(ctx context.Context, source string, docs []index.Document) (string, string, error) {
	if o.cfg.Mode == "kafka" && o.publisher != nil {
		records := make([]ingestion.Record, 0, len(docs))
		for _, d := range docs {
			records = append(records, ingestion.RecordFromDocument(d))
		}
		batchID, err := o.publisher.Publish(ctx, source, records)
		if err != nil {
			return batchID, ingestion.StatusFailed, err
		}
		return batchID, ingestion.StatusPublished, nil
	}
	batchID := uuid.NewString()
	if err := o.Commit(ctx, docs); err != nil {
		return batchID, ingestion.StatusFailed, err
	}
	return batchID, ingestion.StatusIndexed, nil
}

// recordBatch writes the ledger row. Ledger failures are logged only: the
// index, not the ledger, is the source of truth.
func (o *Orchestrator) recordBatch(ctx context.Context, batchID, source string, n int, status string) {
	if o.ledger == nil || batchID == "" {
		return
	}
	err := o.ledger.Record(ctx, ledger.Batch{ID: batchID, Source: source, Documents: n, Status: status})
	if err != nil {
		o.logger.Warn("ledger write failed", "batch_id", batchID, "error", err)
	}
}

func documentIDs(docs []index.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids
}
