package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion/ledger"
	apperrors "github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/resilience"
)

type fakeStore struct {
	failures int
	calls    int
	docs     []index.Document
}

func (f *fakeStore) EnsureSchema() error { return nil }

func (f *fakeStore) Upsert(_ context.Context, docs []index.Document) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("disk full")
	}
	f.docs = append(f.docs, docs...)
	return nil
}

type fakeLedger struct {
	statuses []string
}

func (l *fakeLedger) Record(_ context.Context, b ledger.Batch) error {
	l.statuses = append(l.statuses, b.Status)
	return nil
}

func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func event(t *testing.T, records ...ingestion.Record) []byte {
	t.Helper()
	b, err := json.Marshal(ingestion.IngestEvent{BatchID: "b1", Source: "seed", Records: records})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleMessageCommits(t *testing.T) {
	store := &fakeStore{}
	led := &fakeLedger{}
	h := HandleMessage(store, Config{Retry: fastRetry(3), Ledger: led})

	msg := event(t,
		ingestion.Record{ID: "mock_math_1", Content: "Integrate x squared"},
		ingestion.Record{ID: "", Content: "invalid"},
	)
	if err := h(context.Background(), []byte("seed"), msg); err != nil {
		t.Fatal(err)
	}
	if len(store.docs) != 1 || store.docs[0].ID != "mock_math_1" {
		t.Errorf("docs = %+v", store.docs)
	}
	if len(led.statuses) != 1 || led.statuses[0] != ingestion.StatusIndexed {
		t.Errorf("ledger = %v", led.statuses)
	}
}

func TestHandleMessageRetries(t *testing.T) {
	store := &fakeStore{failures: 2}
	h := HandleMessage(store, Config{Retry: fastRetry(3)})
	if err := h(context.Background(), nil, event(t, ingestion.Record{ID: "a", Content: "x"})); err != nil {
		t.Fatalf("err = %v", err)
	}
	if store.calls != 3 || len(store.docs) != 1 {
		t.Errorf("calls = %d docs = %d", store.calls, len(store.docs))
	}
}

func TestHandleMessageFailureKeepsOffset(t *testing.T) {
	store := &fakeStore{failures: 10}
	led := &fakeLedger{}
	h := HandleMessage(store, Config{Retry: fastRetry(2), Ledger: led})
	if err := h(context.Background(), nil, event(t, ingestion.Record{ID: "a", Content: "x"})); err == nil {
		t.Fatal("expected error so the offset is not committed")
	}
	if len(led.statuses) != 1 || led.statuses[0] != ingestion.StatusFailed {
		t.Errorf("ledger = %v", led.statuses)
	}
}

func TestHandleMessageDropsPoisonEvents(t *testing.T) {
	store := &fakeStore{}
	h := HandleMessage(store, Config{Retry: fastRetry(1)})
	if err := h(context.Background(), nil, []byte("{not json")); err != nil {
		t.Errorf("undecodable event err = %v", err)
	}
	if err := h(context.Background(), nil, event(t, ingestion.Record{ID: "only-id"})); err != nil {
		t.Errorf("invalid-only event err = %v", err)
	}
	if store.calls != 0 {
		t.Errorf("store called %d times", store.calls)
	}
}

type mismatchStore struct{ calls int }

func (m *mismatchStore) EnsureSchema() error {
	m.calls++
	return fmt.Errorf("%w: indexdir", apperrors.ErrSchemaMismatch)
}

func (m *mismatchStore) Upsert(context.Context, []index.Document) error { return nil }

func TestHandleMessageSchemaMismatchNotRetried(t *testing.T) {
	store := &mismatchStore{}
	h := HandleMessage(store, Config{Retry: fastRetry(5)})
	err := h(context.Background(), nil, event(t, ingestion.Record{ID: "a", Content: "x"}))
	if !errors.Is(err, apperrors.ErrSchemaMismatch) {
		t.Errorf("err = %v", err)
	}
	if store.calls != 1 {
		t.Errorf("EnsureSchema called %d times, want 1", store.calls)
	}
}
