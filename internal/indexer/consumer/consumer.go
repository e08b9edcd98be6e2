// Package consumer reads ingestion events from Kafka, validates their
// records and commits each event as one batch. A commit that keeps failing
// after retries is returned to the Kafka consumer, which leaves the offset
// uncommitted so the event is redelivered.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion/ledger"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/resilience"
)

// Committer is the write side of the index store.
type Committer interface {
	EnsureSchema() error
	Upsert(ctx context.Context, docs []index.Document) error
}

// Ledger marks batches as indexed or failed. May be nil.
type Ledger interface {
	Record(ctx context.Context, b ledger.Batch) error
}

// Config tunes message handling.
type Config struct {
	Retry   resilience.RetryConfig
	Ledger  Ledger
	Metrics *metrics.Metrics
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that commits every ingest
// event into store. Undecodable events and events without a single valid
// record are dropped, since redelivering them cannot succeed.
func HandleMessage(store Committer, cfg Config) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			logger.Error("failed to decode ingest event",
				"error", err,
				"key", string(key),
			)
			return nil
		}

		docs := make([]index.Document, 0, len(event.Records))
		for i, rec := range event.Records {
			doc, err := validator.ValidateRecord(rec)
			if err != nil {
				if cfg.Metrics != nil {
					cfg.Metrics.ValidationFailures.Inc()
				}
				logger.Warn("dropping invalid record",
					"batch_id", event.BatchID,
					"index", i,
					"id", rec.ID,
					"error", err,
				)
				continue
			}
			docs = append(docs, doc)
		}
		if len(docs) == 0 {
			logger.Warn("event has no valid records", "batch_id", event.BatchID)
			return nil
		}

		logger.Debug("processing ingest event",
			"batch_id", event.BatchID,
			"source", event.Source,
			"documents", len(docs),
		)
		retry := cfg.Retry
		retry.Retryable = isTransient
		if cfg.Metrics != nil {
			retry.OnRetry = func(int, error) {
				cfg.Metrics.IndexCommitsTotal.WithLabelValues("retry").Inc()
			}
		}
		err = resilience.Retry(ctx, "index-commit", retry, func() error {
			if err := store.EnsureSchema(); err != nil {
				return err
			}
			return store.Upsert(ctx, docs)
		})
		if err != nil {
			recordBatch(ctx, cfg.Ledger, event, len(docs), ingestion.StatusFailed, logger)
			return fmt.Errorf("indexing batch %s: %w", event.BatchID, err)
		}

		recordBatch(ctx, cfg.Ledger, event, len(docs), ingestion.StatusIndexed, logger)
		logger.Info("batch indexed",
			"batch_id", event.BatchID,
			"source", event.Source,
			"documents", len(docs),
		)
		return nil
	}
}

// isTransient rejects failures another attempt cannot fix. They still
// surface to the Kafka consumer, so the event waits for an operator instead
// of being dropped.
func isTransient(err error) bool {
	return !errors.Is(err, apperrors.ErrSchemaMismatch) && !errors.Is(err, apperrors.ErrInvalidInput)
}

func recordBatch(ctx context.Context, l Ledger, event ingestion.IngestEvent, n int, status string, logger *slog.Logger) {
	if l == nil || event.BatchID == "" {
		return
	}
	err := l.Record(ctx, ledger.Batch{ID: event.BatchID, Source: event.Source, Documents: n, Status: status})
	if err != nil {
		logger.Error("failed to update batch status",
			"batch_id", event.BatchID,
			"status", status,
			"error", err,
		)
	}
}
