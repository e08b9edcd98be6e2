// Package publisher sends record batches to Kafka for the indexer worker.
// Large batches are split into several events so that no single message
// grows past what a broker accepts by default.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/kafka"
)

// MaxRecordsPerEvent bounds the records carried by one IngestEvent.
const MaxRecordsPerEvent = 100

// Producer is the subset of *kafka.Producer the publisher needs.
type Producer interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Publisher struct {
	producer Producer
	logger   *slog.Logger
}

func New(producer Producer) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Publish writes records as one or more events keyed by source, so that
// the batches of one source stay ordered within a partition. It returns the
// batch id shared by every event of the call.
func (p *Publisher) Publish(ctx context.Context, source string, records []ingestion.Record) (string, error) {
	batchID := uuid.NewString()
	if len(records) == 0 {
		return batchID, nil
	}
	now := time.Now().UTC()
	events := make([]kafka.Event, 0, (len(records)+MaxRecordsPerEvent-1)/MaxRecordsPerEvent)
	for start := 0; start < len(records); start += MaxRecordsPerEvent {
		end := min(start+MaxRecordsPerEvent, len(records))
		events = append(events, kafka.Event{
			Key:     source,
			Headers: map[string]string{"batch_id": batchID},
			Value: ingestion.IngestEvent{
				BatchID:    batchID,
				Source:     source,
				Records:    records[start:end],
				IngestedAt: now,
			},
		})
	}
	if err := p.producer.PublishBatch(ctx, events); err != nil {
		return "", fmt.Errorf("publishing batch %s: %w", batchID, err)
	}
	p.logger.Info("batch published",
		"batch_id", batchID,
		"source", source,
		"records", len(records),
		"events", len(events),
	)
	return batchID, nil
}
