package segment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
)

func buildBatch(docs ...index.Document) ([]index.TermEntry, []index.StoredDocument) {
	mem := index.NewMemoryIndex()
	for _, d := range docs {
		mem.AddDocument(d)
	}
	return mem.Snapshot(), mem.Documents()
}

func writeSegment(t *testing.T, dir string, docs ...index.Document) string {
	t.Helper()
	entries, stored := buildBatch(docs...)
	name := FileName(1)
	if err := NewWriter(dir).Write(name, entries, stored); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return filepath.Join(dir, name)
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	path := writeSegment(t, dir,
		index.Document{ID: "p1_1", Content: "Explain glycolysis in cells", Tags: "Biology,2023", Subject: "Biology", Year: "2023"},
		index.Document{ID: "p1_2", Content: "Newton laws of motion", Tags: "Physics", Subject: "Physics", Year: "2022", Options: []string{"a", "b"}},
	)
	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	if r.DocCount() != 2 {
		t.Errorf("DocCount = %d, want 2", r.DocCount())
	}
	postings, err := r.Search(index.FieldContent, "glycolysi")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(postings) != 1 || postings[0].DocID != "p1_1" {
		t.Errorf("content postings = %+v", postings)
	}
	postings, _ = r.Search(index.FieldSubject, "physics")
	if len(postings) != 1 || postings[0].DocID != "p1_2" {
		t.Errorf("subject postings = %+v", postings)
	}
	postings, _ = r.Search(index.FieldContent, "physics")
	if len(postings) != 0 {
		t.Errorf("field isolation broken: %+v", postings)
	}

	doc, ok := r.Document("p1_2")
	if !ok {
		t.Fatal("stored document p1_2 missing")
	}
	if len(doc.Options) != 2 || doc.Year != "2022" {
		t.Errorf("stored document = %+v", doc)
	}
	if doc.Lengths[index.FieldContent] != 3 {
		t.Errorf("content length = %d, want 3", doc.Lengths[index.FieldContent])
	}
}

func TestFieldTermsSorted(t *testing.T) {
	path := writeSegment(t, t.TempDir(),
		index.Document{ID: "a", Content: "zebra apple mango"},
	)
	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	terms := r.FieldTerms(index.FieldContent)
	want := []string{"apple", "mango", "zebra"}
	if strings.Join(terms, ",") != strings.Join(want, ",") {
		t.Errorf("FieldTerms = %v, want %v", terms, want)
	}
	if len(r.FieldTerms(index.FieldTags)) != 0 {
		t.Error("expected no tag terms")
	}
}

func TestSimilarTerms(t *testing.T) {
	path := writeSegment(t, t.TempDir(),
		index.Document{ID: "a", Content: "Explain glycolysis"},
	)
	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	got := r.SimilarTerms(index.FieldContent, "glycolsi", 1, 10)
	if len(got) != 1 || got[0] != "glycolysi" {
		t.Errorf("SimilarTerms = %v, want [glycolysi]", got)
	}
	if got := r.SimilarTerms(index.FieldTags, "glycolsi", 1, 10); len(got) != 0 {
		t.Errorf("tags field should have no candidates, got %v", got)
	}
}

func TestSimilarTermsMatchesUnstemmedWords(t *testing.T) {
	path := writeSegment(t, t.TempDir(),
		index.Document{ID: "a", Content: "Describe the reaction. Temperature was tested."},
	)
	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	tests := []struct{ word, want string }{
		{"reactiom", "react"},
		{"testrd", "test"},
		{"reacts", "react"},
	}
	for _, tt := range tests {
		got := r.SimilarTerms(index.FieldContent, tt.word, 1, 10)
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("SimilarTerms(%q) = %v, want [%s]", tt.word, got, tt.want)
		}
	}
	if got := r.SimilarTerms(index.FieldContent, "reactiom", 0, 10); len(got) != 0 {
		t.Errorf("distance 0 matched %v", got)
	}
}

func TestWriteEmptyBatch(t *testing.T) {
	dir := t.TempDir()
	if err := NewWriter(dir).Write(FileName(1), nil, nil); err == nil {
		t.Fatal("expected error for empty segment")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files left behind, found %d", len(entries))
	}
}

func TestChecksumMismatch(t *testing.T) {
	path := writeSegment(t, t.TempDir(),
		index.Document{ID: "a", Content: "photosynthesis in leaves"},
	)
	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	offset := r.header.DictOffset
	r.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[offset+2] ^= 0xFF
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenReader(path); err == nil {
		t.Fatal("expected checksum error on corrupted segment")
	}
}

func TestBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus"+Extension)
	if err := os.WriteFile(path, make([]byte, HeaderSize+FooterSize+8), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenReader(path); err == nil {
		t.Fatal("expected error for bad magic")
	}
}
