// Package executor evaluates parsed query trees against an index snapshot
// and scores every matching document with BM25.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher/ranker"
)

// Snapshot is the read view a query runs against.
type Snapshot interface {
	DocCount() int
	DocIDs() []string
	AvgFieldLength(field string) float64
	FieldLength(docID, field string) int
	Postings(field, term string) (index.PostingList, error)
	SimilarTerms(field, term string, maxDistance, maxReturn int) []string
}

type Executor struct {
	fields        []string
	maxExpansions int
	logger        *slog.Logger
}

// New returns an Executor that expands unqualified terms over fields and
// caps each fuzzy term at maxExpansions dictionary terms per field.
func New(fields []string, maxExpansions int) *Executor {
	return &Executor{
		fields:        fields,
		maxExpansions: maxExpansions,
		logger:        slog.Default().With("component", "query-executor"),
	}
}

// Result maps each matching document id to its score.
type Result struct {
	Scores map[string]float64
	// Expanded lists the dictionary terms fuzzy clauses matched, by field.
	Expanded map[string][]string
}

// matchSet is nil for a clause that places no constraint, like a query made
// only of stop words, and non-nil (possibly empty) otherwise.
type matchSet map[string]float64

type run struct {
	ctx      context.Context
	snap     Snapshot
	stats    map[string]ranker.FieldStats
	expanded map[string][]string
}

func (e *Executor) Execute(ctx context.Context, snap Snapshot, node parser.Node) (*Result, error) {
	r := &run{
		ctx:      ctx,
		snap:     snap,
		stats:    make(map[string]ranker.FieldStats),
		expanded: make(map[string][]string),
	}
	set, err := e.eval(r, node)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]float64, len(set))
	for id, s := range set {
		scores[id] = ranker.Round(s)
	}
	e.logger.Debug("query executed",
		"query", node.String(),
		"matches", len(scores),
	)
	return &Result{Scores: scores, Expanded: r.expanded}, nil
}

func (e *Executor) eval(r *run, node parser.Node) (matchSet, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}
	switch n := node.(type) {
	case *parser.Term:
		return e.evalTerm(r, n)
	case *parser.Phrase:
		return e.evalPhrase(r, n)
	case *parser.And:
		return e.evalAnd(r, n.Children)
	case *parser.Or:
		return e.evalOr(r, n.Children)
	case *parser.Not:
		child, err := e.eval(r, n.Child)
		if err != nil || child == nil {
			return child, err
		}
		return complement(r.snap, child), nil
	default:
		return nil, fmt.Errorf("unsupported query node %T", node)
	}
}

// evalTerm matches a word in one field or, unqualified, in any default field.
// A word the content analyzer drops entirely is ignored.
func (e *Executor) evalTerm(r *run, t *parser.Term) (matchSet, error) {
	contentTokens := tokenizer.Tokenize(t.Text)
	if t.Field == index.FieldContent || t.Field == "" {
		if len(contentTokens) == 0 {
			return nil, nil
		}
	}
	fields := e.fields
	if t.Field != "" {
		fields = []string{t.Field}
	}
	out := matchSet{}
	for _, field := range fields {
		var set matchSet
		var err error
		if field == index.FieldContent {
			set, err = e.allTerms(r, field, contentTokens, t.Fuzzy)
		} else {
			literal := tokenizer.LiteralTerm(t.Text)
			set, err = e.leaf(r, field, literal, literal, t.Fuzzy)
		}
		if err != nil {
			return nil, err
		}
		union(out, set)
	}
	return out, nil
}

// evalPhrase requires every word of the phrase in the content field, or the
// whole phrase as one keyword or literal value.
func (e *Executor) evalPhrase(r *run, p *parser.Phrase) (matchSet, error) {
	contentTokens := tokenizer.Tokenize(strings.Join(p.Words, " "))
	whole := tokenizer.LiteralTerm(strings.Join(p.Words, " "))
	fields := e.fields
	if p.Field != "" {
		fields = []string{p.Field}
	}
	out := matchSet{}
	constrained := false
	for _, field := range fields {
		var set matchSet
		var err error
		if field == index.FieldContent {
			if len(contentTokens) == 0 {
				continue
			}
			set, err = e.allTerms(r, field, contentTokens, 0)
		} else {
			set, err = e.leaf(r, field, whole, whole, 0)
		}
		if err != nil {
			return nil, err
		}
		constrained = true
		union(out, set)
	}
	if !constrained {
		return nil, nil
	}
	return out, nil
}

func (e *Executor) allTerms(r *run, field string, tokens []tokenizer.Token, fuzzy int) (matchSet, error) {
	var acc matchSet
	for _, tok := range tokens {
		set, err := e.leaf(r, field, tok.Term, tok.Surface, fuzzy)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = set
			continue
		}
		acc = intersect(acc, set)
	}
	return acc, nil
}

// leaf scores one term of one field. A fuzzy term is replaced by the
// dictionary terms within that many edits of either the analyzed term or
// the word as typed, so a typo in a stemmed suffix still finds its term.
func (e *Executor) leaf(r *run, field, term, surface string, fuzzy int) (matchSet, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}
	out := matchSet{}
	if term == "" {
		return out, nil
	}
	terms := []string{term}
	if fuzzy > 0 {
		terms = r.snap.SimilarTerms(field, term, fuzzy, e.maxExpansions)
		if surface != "" && surface != term {
			for _, t := range r.snap.SimilarTerms(field, surface, fuzzy, e.maxExpansions) {
				if !slices.Contains(terms, t) {
					terms = append(terms, t)
				}
			}
		}
		if len(terms) > 0 {
			r.expanded[field] = append(r.expanded[field], terms...)
		}
	}
	stats := r.fieldStats(field)
	for _, t := range terms {
		postings, err := r.snap.Postings(field, t)
		if err != nil {
			return nil, fmt.Errorf("reading postings for %s:%q: %w", field, t, err)
		}
		for _, p := range postings {
			out[p.DocID] += ranker.Score(p.Frequency, len(postings), r.snap.FieldLength(p.DocID, field), stats)
		}
	}
	return out, nil
}

func (r *run) fieldStats(field string) ranker.FieldStats {
	if s, ok := r.stats[field]; ok {
		return s
	}
	s := ranker.FieldStats{
		TotalDocs: r.snap.DocCount(),
		AvgLength: r.snap.AvgFieldLength(field),
	}
	r.stats[field] = s
	return s
}

func (e *Executor) evalAnd(r *run, children []parser.Node) (matchSet, error) {
	var acc matchSet
	var exclude []matchSet
	for _, c := range children {
		if not, ok := c.(*parser.Not); ok {
			set, err := e.eval(r, not.Child)
			if err != nil {
				return nil, err
			}
			if set != nil {
				exclude = append(exclude, set)
			}
			continue
		}
		set, err := e.eval(r, c)
		if err != nil {
			return nil, err
		}
		if set == nil {
			continue
		}
		if acc == nil {
			acc = set
			continue
		}
		acc = intersect(acc, set)
	}
	if acc == nil {
		if len(exclude) == 0 {
			return nil, nil
		}
		acc = allDocs(r.snap)
	}
	for _, ex := range exclude {
		for id := range ex {
			delete(acc, id)
		}
	}
	return acc, nil
}

func (e *Executor) evalOr(r *run, children []parser.Node) (matchSet, error) {
	var acc matchSet
	for _, c := range children {
		set, err := e.eval(r, c)
		if err != nil {
			return nil, err
		}
		if set == nil {
			continue
		}
		if acc == nil {
			acc = matchSet{}
		}
		union(acc, set)
	}
	return acc, nil
}

// union adds src into dst, summing scores.
func union(dst, src matchSet) {
	for id, s := range src {
		dst[id] += s
	}
}

// intersect keeps the ids in both sets, summing scores.
func intersect(a, b matchSet) matchSet {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(matchSet, len(a))
	for id, s := range a {
		if other, ok := b[id]; ok {
			out[id] = s + other
		}
	}
	return out
}

func complement(snap Snapshot, set matchSet) matchSet {
	out := matchSet{}
	for _, id := range snap.DocIDs() {
		if _, ok := set[id]; !ok {
			out[id] = 0
		}
	}
	return out
}

func allDocs(snap Snapshot) matchSet {
	out := make(matchSet, snap.DocCount())
	for _, id := range snap.DocIDs() {
		out[id] = 0
	}
	return out
}
