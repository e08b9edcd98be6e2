package parser

import (
	"errors"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/errors"
)

var testFields = []string{"content", "tags", "subject", "year"}

func TestParse(t *testing.T) {
	p := New(testFields)
	tests := []struct {
		query string
		want  string
	}{
		{"glycolysis", "glycolysis"},
		{"krebs cycle", "(krebs AND cycle)"},
		{"krebs AND cycle", "(krebs AND cycle)"},
		{"krebs OR cycle", "(krebs OR cycle)"},
		{"a b OR c", "((a AND b) OR c)"},
		{"a (b OR c)", "(a AND (b OR c))"},
		{"glycolysis NOT anaerobic", "(glycolysis AND NOT anaerobic)"},
		{"NOT NOT x", "NOT NOT x"},
		{"subject:physics", "subject:physics"},
		{"subject:physics lens", "(subject:physics AND lens)"},
		{"glycolysis~", "glycolysis~1"},
		{"glycolysis~2", "glycolysis~2"},
		{"glycolysis~0", "glycolysis"},
		{`"heat engine"`, `"heat engine"`},
		{`tags:"heat engine" carnot`, `(tags:"heat engine" AND carnot)`},
		{"ratio 1:2", "(ratio AND 1:2)"},
		{"Newton:law", "Newton:law"},
		{"and or not", "(and AND or AND not)"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			n, err := p.Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.query, err)
			}
			if got := n.String(); got != tt.want {
				t.Errorf("Parse(%q) = %s, want %s", tt.query, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	p := New(testFields)
	bad := []string{
		"",
		"   ",
		"(glycolysis",
		"glycolysis)",
		"()",
		"AND glycolysis",
		"glycolysis AND",
		"glycolysis OR",
		"NOT",
		"author:mendel",
		"glycolysis~3",
		"glycolysis~x",
		"~",
		`"unterminated phrase`,
		`""`,
		"subject:",
	}
	for _, q := range bad {
		t.Run(q, func(t *testing.T) {
			_, err := p.Parse(q)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", q)
			}
			if !errors.Is(err, apperrors.ErrQueryParse) {
				t.Errorf("Parse(%q) error %v does not wrap ErrQueryParse", q, err)
			}
		})
	}
}

func TestParseEmptyQuerySentinel(t *testing.T) {
	_, err := New(testFields).Parse("")
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestParseTermFields(t *testing.T) {
	n, err := New(testFields).Parse("year:2023~1")
	if err != nil {
		t.Fatal(err)
	}
	term, ok := n.(*Term)
	if !ok {
		t.Fatalf("node is %T, want *Term", n)
	}
	if term.Field != "year" || term.Text != "2023" || term.Fuzzy != 1 {
		t.Errorf("term = %+v", term)
	}
}

func TestFuzzyRewrite(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Glycolsis", "Glycolsis~1"},
		{"What is glycolsis", "What~1 is glycolsis~1"},
		{"ATP", "ATP"},
		{"cell", "cell~1"},
		{"alpha-particle", "alpha-particle"},
		{"subject:physics", "subject:physics"},
		{"krebs  OR   cycle", "krebs~1 OR cycle~1"},
		{"2023", "2023~1"},
		{"écoles", "écoles~1"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FuzzyRewrite(tt.in); got != tt.want {
			t.Errorf("FuzzyRewrite(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFuzzyRewriteMinNeverFuzzesShortTerms(t *testing.T) {
	for _, n := range []int{0, 1, 3} {
		if got := FuzzyRewriteMin("cap cells", n); got != "cap cells~1" {
			t.Errorf("FuzzyRewriteMin(_, %d) = %q", n, got)
		}
	}
	if got := FuzzyRewriteMin("cap cells", 6); got != "cap cells" {
		t.Errorf("FuzzyRewriteMin(_, 6) = %q", got)
	}
}

func TestFuzzyRewriteParses(t *testing.T) {
	p := New(testFields)
	n, err := p.Parse(FuzzyRewrite("Explain glycolsis"))
	if err != nil {
		t.Fatal(err)
	}
	if got := n.String(); got != "(Explain~1 AND glycolsis~1)" {
		t.Errorf("rewritten tree = %s", got)
	}
}
