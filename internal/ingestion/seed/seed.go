// Package seed carries a small fixture corpus of questions for demos and
// local smoke tests.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion"
)

// Source labels seeded batches in the ledger.
const Source = "seed_dummy_data"

//go:embed questions.json
var questionsJSON []byte

// Records returns a fresh copy of the fixture corpus.
func Records() ([]ingestion.Record, error) {
	var recs []ingestion.Record
	if err := json.Unmarshal(questionsJSON, &recs); err != nil {
		return nil, fmt.Errorf("decoding seed corpus: %w", err)
	}
	return recs, nil
}
