package seed

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion/validator"
)

func TestRecordsValidate(t *testing.T) {
	recs, err := Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 11 {
		t.Fatalf("expected 11 seed records, got %d", len(recs))
	}
	seen := make(map[string]bool)
	for _, rec := range recs {
		if seen[rec.ID] {
			t.Errorf("duplicate id %q", rec.ID)
		}
		seen[rec.ID] = true
		doc, err := validator.ValidateRecord(rec)
		if err != nil {
			t.Errorf("record %s invalid: %v", rec.ID, err)
			continue
		}
		if !strings.Contains(doc.Content, "\nOptions: ") {
			t.Errorf("record %s content lacks options line", rec.ID)
		}
		if doc.Subject == "" || doc.Year == "" {
			t.Errorf("record %s missing subject or year", rec.ID)
		}
	}
}

func TestRecordsFreshCopy(t *testing.T) {
	a, _ := Records()
	a[0].ID = "changed"
	b, _ := Records()
	if b[0].ID != "mock_phy_1" {
		t.Fatalf("Records shares state between calls: %q", b[0].ID)
	}
}
