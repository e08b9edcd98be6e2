package parser

import (
	"fmt"
	"strings"
)

// Node is one element of a parsed query tree.
type Node interface {
	String() string
}

// Term matches a single word. An empty Field means every default field.
// Fuzzy is the maximum edit distance, 0 for an exact match.
type Term struct {
	Field string
	Text  string
	Fuzzy int
}

// Phrase matches all of its words. An empty Field means every default field.
type Phrase struct {
	Field string
	Words []string
}

type And struct {
	Children []Node
}

type Or struct {
	Children []Node
}

type Not struct {
	Child Node
}

func (t *Term) String() string {
	s := t.Text
	if t.Fuzzy > 0 {
		s = fmt.Sprintf("%s~%d", s, t.Fuzzy)
	}
	if t.Field != "" {
		s = t.Field + ":" + s
	}
	return s
}

func (p *Phrase) String() string {
	s := `"` + strings.Join(p.Words, " ") + `"`
	if p.Field != "" {
		s = p.Field + ":" + s
	}
	return s
}

func (a *And) String() string {
	return "(" + joinNodes(a.Children, " AND ") + ")"
}

func (o *Or) String() string {
	return "(" + joinNodes(o.Children, " OR ") + ")"
}

func (n *Not) String() string {
	return "NOT " + n.Child.String()
}

func joinNodes(nodes []Node, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}
