package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/errors"
)

func testConfig(dir string) config.IndexerConfig {
	return config.IndexerConfig{
		DataDir:                dir,
		MergeInterval:          time.Minute,
		MaxSegmentsBeforeMerge: 2,
		RefreshInterval:        time.Minute,
	}
}

func openStore(t testing.TB, dir string) *Store {
	t.Helper()
	s, err := Open(testConfig(dir))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func segmentFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var out []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), segment.Extension) {
			out = append(out, e.Name())
		}
	}
	return out
}

func doc(id, content string) index.Document {
	return index.Document{ID: id, Content: content, Subject: "Biology", Year: "2023", Tags: "Biology,2023"}
}

func TestOpenMissingIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never-created")
	s := openStore(t, dir)

	if s.Exists("anything") {
		t.Error("Exists on missing index should be false")
	}
	snap := s.Snapshot()
	defer snap.Release()
	if snap.DocCount() != 0 {
		t.Errorf("DocCount = %d, want 0", snap.DocCount())
	}
	postings, err := snap.Postings(index.FieldContent, "glycolysi")
	if err != nil || len(postings) != 0 {
		t.Errorf("Postings = %v, %v; want empty", postings, err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Open must not create the index directory")
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	if err := s.EnsureSchema(); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := s.EnsureSchema(); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
	for _, f := range []string{schemaFile, manifestFile} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("%s not created: %v", f, err)
		}
	}
}

func TestSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	bogus := `{"fields":[{"name":"id","kind":"literal","searched":false,"stored":true}]}`
	if err := os.WriteFile(filepath.Join(dir, schemaFile), []byte(bogus), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(testConfig(dir)); !errors.Is(err, apperrors.ErrSchemaMismatch) {
		t.Fatalf("Open error = %v, want ErrSchemaMismatch", err)
	}
}

func TestUpsertAndExists(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx := context.Background()
	if err := s.Upsert(ctx, []index.Document{doc("p_1", "Explain glycolysis"), doc("p_2", "Describe the Krebs cycle")}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !s.Exists("p_1") || !s.Exists("p_2") {
		t.Error("committed documents should exist")
	}
	if s.Exists("p_3") {
		t.Error("p_3 was never written")
	}
	st := s.Stats()
	if st.Generation != 1 || st.Segments != 1 || st.Documents != 2 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx := context.Background()
	if err := s.Upsert(ctx, []index.Document{doc("p_1", "Explain glycolysis")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, []index.Document{doc("p_1", "Explain photosynthesis")}); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	defer snap.Release()
	if snap.DocCount() != 1 {
		t.Errorf("DocCount = %d, want 1", snap.DocCount())
	}
	old, _ := snap.Postings(index.FieldContent, "glycolysi")
	if len(old) != 0 {
		t.Errorf("shadowed copy still matches: %+v", old)
	}
	cur, _ := snap.Postings(index.FieldContent, "photosynthesi")
	if len(cur) != 1 || cur[0].DocID != "p_1" {
		t.Errorf("new copy postings = %+v", cur)
	}
	d, ok := snap.Document("p_1")
	if !ok || d.Content != "Explain photosynthesis" {
		t.Errorf("Document = %+v, %v", d, ok)
	}
}

func TestUpsertInBatchLastWins(t *testing.T) {
	s := openStore(t, t.TempDir())
	err := s.Upsert(context.Background(), []index.Document{
		doc("p_1", "first version"),
		doc("p_1", "second version"),
	})
	if err != nil {
		t.Fatal(err)
	}
	d, ok := s.Document("p_1")
	if !ok || d.Content != "second version" {
		t.Errorf("Document = %+v", d)
	}
	if s.Stats().Documents != 1 {
		t.Errorf("Documents = %d, want 1", s.Stats().Documents)
	}
}

func TestUpsertRejectsEmptyID(t *testing.T) {
	s := openStore(t, t.TempDir())
	err := s.Upsert(context.Background(), []index.Document{{Content: "no id"}})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestUpsertCancelledContext(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Upsert(ctx, []index.Document{doc("p_1", "text")}); !errors.Is(err, apperrors.ErrWriteFailed) {
		t.Fatalf("err = %v, want ErrWriteFailed", err)
	}
	if s.Exists("p_1") {
		t.Error("cancelled batch must not be visible")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx := context.Background()
	if err := s.Upsert(ctx, []index.Document{doc("p_1", "Explain glycolysis")}); err != nil {
		t.Fatal(err)
	}
	before := s.Snapshot()
	defer before.Release()

	if err := s.Upsert(ctx, []index.Document{doc("p_2", "More glycolysis questions")}); err != nil {
		t.Fatal(err)
	}
	postings, _ := before.Postings(index.FieldContent, "glycolysi")
	if len(postings) != 1 {
		t.Errorf("pre-commit snapshot sees %d docs, want 1", len(postings))
	}
	after := s.Snapshot()
	defer after.Release()
	postings, _ = after.Postings(index.FieldContent, "glycolysi")
	if len(postings) != 2 {
		t.Errorf("post-commit snapshot sees %d docs, want 2", len(postings))
	}
	if after.Generation() != before.Generation()+1 {
		t.Errorf("generations %d -> %d", before.Generation(), after.Generation())
	}
}

func TestRestartPersistence(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(testConfig(dir))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(context.Background(), []index.Document{doc("p_1", "Explain glycolysis")}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reopened := openStore(t, dir)
	if !reopened.Exists("p_1") {
		t.Fatal("document lost across restart")
	}
	snap := reopened.Snapshot()
	defer snap.Release()
	postings, _ := snap.Postings(index.FieldSubject, "biology")
	if len(postings) != 1 {
		t.Errorf("subject postings after restart = %+v", postings)
	}
}

func TestFailedManifestKeepsPreviousState(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	ctx := context.Background()
	if err := s.Upsert(ctx, []index.Document{doc("p_1", "Explain glycolysis")}); err != nil {
		t.Fatal(err)
	}
	// A directory at the temp path makes the manifest write fail.
	if err := os.Mkdir(filepath.Join(dir, manifestFile+".tmp"), 0755); err != nil {
		t.Fatal(err)
	}
	err := s.Upsert(ctx, []index.Document{doc("p_2", "Krebs cycle")})
	if !errors.Is(err, apperrors.ErrWriteFailed) {
		t.Fatalf("err = %v, want ErrWriteFailed", err)
	}
	if s.Exists("p_2") {
		t.Error("failed batch is visible")
	}
	if n := len(segmentFiles(t, dir)); n != 1 {
		t.Errorf("segment files = %d, want 1 (orphan not removed)", n)
	}

	reopened, err := Open(testConfig(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if !reopened.Exists("p_1") || reopened.Exists("p_2") {
		t.Error("on-disk state does not match the last commit")
	}
}

func TestMergeKeepsNewestCopies(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	ctx := context.Background()
	batches := [][]index.Document{
		{doc("p_1", "old glycolysis text"), doc("p_2", "Krebs cycle")},
		{doc("p_3", "Electron transport chain")},
		{doc("p_1", "new photosynthesis text")},
	}
	for _, b := range batches {
		if err := s.Upsert(ctx, b); err != nil {
			t.Fatal(err)
		}
	}
	if s.Stats().Segments != 3 {
		t.Fatalf("segments = %d, want 3", s.Stats().Segments)
	}
	if err := s.Merge(); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	st := s.Stats()
	if st.Segments != 1 || st.Documents != 3 {
		t.Errorf("Stats after merge = %+v", st)
	}
	d, _ := s.Document("p_1")
	if d.Content != "new photosynthesis text" {
		t.Errorf("merged p_1 = %q", d.Content)
	}
	if n := len(segmentFiles(t, dir)); n != 1 {
		t.Errorf("segment files after merge = %d, want 1", n)
	}
}

func TestMergeBelowThresholdIsNoop(t *testing.T) {
	s := openStore(t, t.TempDir())
	if err := s.Upsert(context.Background(), []index.Document{doc("p_1", "text")}); err != nil {
		t.Fatal(err)
	}
	gen := s.Stats().Generation
	if err := s.Merge(); err != nil {
		t.Fatal(err)
	}
	if s.Stats().Generation != gen {
		t.Error("Merge below threshold must not publish")
	}
}

func TestMergeWaitsForSnapshots(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	ctx := context.Background()
	for _, id := range []string{"p_1", "p_2", "p_3"} {
		if err := s.Upsert(ctx, []index.Document{doc(id, "glycolysis "+id)}); err != nil {
			t.Fatal(err)
		}
	}
	snap := s.Snapshot()
	if err := s.Compact(); err != nil {
		t.Fatal(err)
	}
	if n := len(segmentFiles(t, dir)); n != 4 {
		t.Errorf("segment files while pinned = %d, want 4", n)
	}
	postings, err := snap.Postings(index.FieldContent, "glycolysi")
	if err != nil || len(postings) != 3 {
		t.Errorf("pinned snapshot postings = %d, %v", len(postings), err)
	}
	snap.Release()
	if n := len(segmentFiles(t, dir)); n != 1 {
		t.Errorf("segment files after release = %d, want 1", n)
	}
}

func TestCompactRemovesOrphans(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	if err := s.Upsert(context.Background(), []index.Document{doc("p_1", "text")}); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"seg_99_1" + segment.Extension, "seg_100_1" + segment.Extension + ".tmp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("junk"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Compact(); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "seg_99") || strings.HasPrefix(e.Name(), "seg_100") {
			t.Errorf("orphan %s not removed", e.Name())
		}
	}
	if !s.Exists("p_1") {
		t.Error("live document lost")
	}
}

func TestRefreshSeesOtherWriter(t *testing.T) {
	dir := t.TempDir()
	writer := openStore(t, dir)
	reader := openStore(t, dir)

	if err := writer.Upsert(context.Background(), []index.Document{doc("p_1", "Explain glycolysis")}); err != nil {
		t.Fatal(err)
	}
	if reader.Exists("p_1") {
		t.Fatal("reader saw the commit before Refresh")
	}
	if err := reader.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !reader.Exists("p_1") {
		t.Error("reader did not pick up the commit")
	}
	if err := reader.Refresh(); err != nil {
		t.Errorf("no-op Refresh: %v", err)
	}
}

func TestAvgFieldLength(t *testing.T) {
	s := openStore(t, t.TempDir())
	err := s.Upsert(context.Background(), []index.Document{
		{ID: "a", Content: "alpha beta"},
		{ID: "b", Content: "alpha beta gamma delta"},
	})
	if err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	defer snap.Release()
	if got := snap.AvgFieldLength(index.FieldContent); got != 3 {
		t.Errorf("AvgFieldLength = %v, want 3", got)
	}
	if got := snap.FieldLength("b", index.FieldContent); got != 4 {
		t.Errorf("FieldLength = %d, want 4", got)
	}
}

func TestSnapshotSimilarTerms(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx := context.Background()
	s.Upsert(ctx, []index.Document{{ID: "a", Content: "glycolysis"}})
	s.Upsert(ctx, []index.Document{{ID: "b", Content: "glycolysis pathways"}})
	snap := s.Snapshot()
	defer snap.Release()
	got := snap.SimilarTerms(index.FieldContent, "glycolsi", 1, 10)
	if len(got) != 1 || got[0] != "glycolysi" {
		t.Errorf("SimilarTerms = %v", got)
	}
}
