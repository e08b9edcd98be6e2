// Package ledger records ingestion batches in PostgreSQL so operators can
// see what was loaded, from where, and whether the commit succeeded.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/postgres"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS ingestion_batches (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	documents  INTEGER NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Batch is one row of the ledger.
type Batch struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Documents int       `json:"documents"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Ledger struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Ledger {
	return &Ledger{
		db:     db,
		logger: slog.Default().With("component", "ingestion-ledger"),
	}
}

// EnsureTable creates the ledger table if it does not exist.
func (l *Ledger) EnsureTable(ctx context.Context) error {
	if _, err := l.db.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("creating ingestion_batches: %w", err)
	}
	return nil
}

// Record inserts b, or updates the status and count of an existing batch
// with the same id.
func (l *Ledger) Record(ctx context.Context, b Batch) error {
	err := l.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ingestion_batches (id, source, documents, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET documents = EXCLUDED.documents, status = EXCLUDED.status, updated_at = NOW()`,
			b.ID, b.Source, b.Documents, b.Status)
		return err
	})
	if err != nil {
		return fmt.Errorf("recording batch %s: %w", b.ID, err)
	}
	l.logger.Debug("batch recorded", "batch_id", b.ID, "status", b.Status, "documents", b.Documents)
	return nil
}

// Recent returns up to limit batches, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.DB.QueryContext(ctx,
		`SELECT id, source, documents, status, created_at
		FROM ingestion_batches ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer rows.Close()
	var out []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.Source, &b.Documents, &b.Status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
