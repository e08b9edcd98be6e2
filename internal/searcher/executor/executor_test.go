package executor

import (
	"context"
	"slices"
	"sort"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher/parser"
)

// memSnapshot serves a MemoryIndex through the Snapshot interface. similar
// stands in for the edit-distance dictionary, keyed by field then term.
type memSnapshot struct {
	mem     *index.MemoryIndex
	docs    map[string]index.StoredDocument
	similar map[string]map[string][]string
}

func newMemSnapshot(docs ...index.Document) *memSnapshot {
	s := &memSnapshot{
		mem:     index.NewMemoryIndex(),
		docs:    make(map[string]index.StoredDocument),
		similar: make(map[string]map[string][]string),
	}
	for _, d := range docs {
		s.mem.AddDocument(d)
	}
	for _, d := range s.mem.Documents() {
		s.docs[d.ID] = d
	}
	return s
}

func (s *memSnapshot) DocCount() int { return len(s.docs) }

func (s *memSnapshot) DocIDs() []string {
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *memSnapshot) AvgFieldLength(field string) float64 {
	if len(s.docs) == 0 {
		return 0
	}
	total := 0
	for _, d := range s.docs {
		total += d.Lengths[field]
	}
	return float64(total) / float64(len(s.docs))
}

func (s *memSnapshot) FieldLength(docID, field string) int {
	return s.docs[docID].Lengths[field]
}

func (s *memSnapshot) Postings(field, term string) (index.PostingList, error) {
	return s.mem.Search(field, term), nil
}

func (s *memSnapshot) SimilarTerms(field, term string, _, _ int) []string {
	if terms, ok := s.similar[field][term]; ok {
		return terms
	}
	return []string{term}
}

func execute(t *testing.T, snap Snapshot, query string) *Result {
	t.Helper()
	node, err := parser.New(index.SearchableFields).Parse(query)
	if err != nil {
		t.Fatalf("Parse(%q): %v", query, err)
	}
	res, err := New(index.SearchableFields, 50).Execute(context.Background(), snap, node)
	if err != nil {
		t.Fatalf("Execute(%q): %v", query, err)
	}
	return res
}

func ids(res *Result) []string {
	out := make([]string, 0, len(res.Scores))
	for id := range res.Scores {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func corpus() *memSnapshot {
	return newMemSnapshot(
		index.Document{ID: "a", Content: "Newton's laws of motion", Subject: "Physics", Year: "2023", Tags: "Mechanics"},
		index.Document{ID: "b", Content: "Laws of thermodynamics and entropy", Subject: "Physics", Year: "2021"},
		index.Document{ID: "c", Content: "Krebs cycle and glycolysis pathways", Subject: "Biology", Year: "2023", Tags: "Cell,Respiration"},
	)
}

func TestExecute(t *testing.T) {
	snap := corpus()
	tests := []struct {
		query string
		want  []string
	}{
		{"laws", []string{"a", "b"}},
		{"law", []string{"a", "b"}},
		{"laws AND motion", []string{"a"}},
		{"laws motion", []string{"a"}},
		{"motion OR entropy", []string{"a", "b"}},
		{"laws NOT entropy", []string{"a"}},
		{"NOT physics", []string{"c"}},
		{"physics", []string{"a", "b"}},
		{"2023", []string{"a", "c"}},
		{"year:2021", []string{"b"}},
		{"tags:respiration", []string{"c"}},
		{"mechanics", []string{"a"}},
		{`"krebs cycle"`, []string{"c"}},
		{"(motion OR glycolysis) AND year:2023", []string{"a", "c"}},
		{"absent", []string{}},
		{"subject:chemistry", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := ids(execute(t, snap, tt.query))
			if !sameIDs(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStopWordOnlyClauseIsIgnored(t *testing.T) {
	snap := corpus()
	got := ids(execute(t, snap, "the laws"))
	if !sameIDs(got, []string{"a", "b"}) {
		t.Errorf("got %v", got)
	}
	if res := execute(t, snap, "the"); len(res.Scores) != 0 {
		t.Errorf("stop word alone matched %v", ids(res))
	}
}

func TestFuzzyExpansion(t *testing.T) {
	snap := corpus()
	snap.similar[index.FieldContent] = map[string][]string{
		"glycolsi": {"glycolsi", "glycolysi"},
	}
	res := execute(t, snap, "glycolsis~1")
	if got := ids(res); !sameIDs(got, []string{"c"}) {
		t.Fatalf("got %v", got)
	}
	if exp := res.Expanded[index.FieldContent]; !slices.Contains(exp, "glycolysi") {
		t.Errorf("expanded = %v", res.Expanded)
	}
	if none := ids(execute(t, snap, "glycolsis")); len(none) != 0 {
		t.Errorf("exact typo matched %v", none)
	}
}

func TestFuzzyLooksUpTypedWord(t *testing.T) {
	snap := newMemSnapshot(index.Document{ID: "r", Content: "Describe the reaction mechanism."})
	snap.similar[index.FieldContent] = map[string][]string{
		"reactiom":  {},
		"reactioms": {"react"},
	}
	if got := ids(execute(t, snap, "reactioms~1")); !sameIDs(got, []string{"r"}) {
		t.Fatalf("got %v", got)
	}
	if got := ids(execute(t, snap, "reactioms")); len(got) != 0 {
		t.Errorf("exact typo matched %v", got)
	}
}

func TestScoresFavourFrequency(t *testing.T) {
	snap := newMemSnapshot(
		index.Document{ID: "once", Content: "entropy rises in a closed system over time"},
		index.Document{ID: "thrice", Content: "entropy entropy entropy"},
	)
	res := execute(t, snap, "entropy")
	if res.Scores["thrice"] <= res.Scores["once"] {
		t.Errorf("scores = %v", res.Scores)
	}
}

func TestMultiFieldScoresSum(t *testing.T) {
	snap := newMemSnapshot(
		index.Document{ID: "both", Content: "optics basics", Tags: "optics"},
		index.Document{ID: "content", Content: "optics basics"},
	)
	res := execute(t, snap, "optics")
	if res.Scores["both"] <= res.Scores["content"] {
		t.Errorf("scores = %v", res.Scores)
	}
}

func TestExecuteCancelled(t *testing.T) {
	node, err := parser.New(index.SearchableFields).Parse("laws")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(index.SearchableFields, 50).Execute(ctx, corpus(), node); err == nil {
		t.Error("expected context error")
	}
}
