// Package parser turns a user query into a tree of field-aware term
// matches.
//
// Grammar, loosest binding first:
//
//	query   = or
//	or      = and { "OR" and }
//	and     = unary { ["AND"] unary }
//	unary   = "NOT" unary | primary
//	primary = "(" or ")" | [field ":"] ( word ["~" [digit]] | '"' words '"' )
//
// Operators are upper-case only. Adjacent clauses without an operator are
// joined with AND.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	apperrors "github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/errors"
)

// MaxFuzzy is the largest edit distance a "~N" marker may request.
const MaxFuzzy = 2

// ErrEmptyQuery is returned for a query with no clauses.
var ErrEmptyQuery = errors.New("empty query")

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
	tokWord
	tokPhrase
)

type token struct {
	kind  tokenKind
	text  string
	field string
	pos   int
}

// Parser parses queries against a fixed set of field names.
type Parser struct {
	fields map[string]struct{}
}

// New returns a Parser that accepts field:term for the given fields.
func New(fields []string) *Parser {
	p := &Parser{fields: make(map[string]struct{}, len(fields))}
	for _, f := range fields {
		p.fields[f] = struct{}{}
	}
	return p
}

// Parse returns the query tree. Errors wrap apperrors.ErrQueryParse.
func (p *Parser) Parse(query string) (Node, error) {
	tokens, err := p.lex(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQueryParse, err)
	}
	st := &state{tokens: tokens}
	if st.peek().kind == tokEOF {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrQueryParse, ErrEmptyQuery)
	}
	node, err := st.parseOr()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQueryParse, err)
	}
	if t := st.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %s at offset %d", apperrors.ErrQueryParse, describe(t), t.pos)
	}
	return node, nil
}

type state struct {
	tokens []token
	pos    int
}

func (s *state) peek() token {
	return s.tokens[s.pos]
}

func (s *state) next() token {
	t := s.tokens[s.pos]
	if t.kind != tokEOF {
		s.pos++
	}
	return t
}

func (s *state) parseOr() (Node, error) {
	first, err := s.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for s.peek().kind == tokOr {
		s.next()
		n, err := s.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &Or{Children: children}, nil
}

func (s *state) parseAnd() (Node, error) {
	first, err := s.parseUnary()
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for {
		switch s.peek().kind {
		case tokAnd:
			s.next()
		case tokWord, tokPhrase, tokLParen, tokNot:
		default:
			if len(children) == 1 {
				return first, nil
			}
			return &And{Children: children}, nil
		}
		n, err := s.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
}

func (s *state) parseUnary() (Node, error) {
	if s.peek().kind == tokNot {
		s.next()
		child, err := s.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Child: child}, nil
	}
	return s.parsePrimary()
}

func (s *state) parsePrimary() (Node, error) {
	t := s.next()
	switch t.kind {
	case tokLParen:
		n, err := s.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := s.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("missing ) for ( at offset %d", t.pos)
		}
		return n, nil
	case tokWord:
		return parseWord(t)
	case tokPhrase:
		words := strings.Fields(t.text)
		if len(words) == 0 {
			return nil, fmt.Errorf("empty phrase at offset %d", t.pos)
		}
		return &Phrase{Field: t.field, Words: words}, nil
	default:
		return nil, fmt.Errorf("unexpected %s at offset %d", describe(t), t.pos)
	}
}

func parseWord(t token) (Node, error) {
	text := t.text
	fuzzy := 0
	if i := strings.LastIndexByte(text, '~'); i >= 0 {
		marker := text[i+1:]
		text = text[:i]
		switch {
		case marker == "":
			fuzzy = 1
		default:
			n, err := strconv.Atoi(marker)
			if err != nil || n < 0 || n > MaxFuzzy {
				return nil, fmt.Errorf("invalid fuzzy marker ~%s at offset %d", marker, t.pos)
			}
			fuzzy = n
		}
	}
	if text == "" {
		return nil, fmt.Errorf("missing term at offset %d", t.pos)
	}
	return &Term{Field: t.field, Text: text, Fuzzy: fuzzy}, nil
}

func describe(t token) string {
	switch t.kind {
	case tokEOF:
		return "end of query"
	case tokLParen:
		return "("
	case tokRParen:
		return ")"
	case tokAnd:
		return "AND"
	case tokOr:
		return "OR"
	case tokNot:
		return "NOT"
	case tokPhrase:
		return fmt.Sprintf("phrase %q", t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

func (p *Parser) lex(query string) ([]token, error) {
	var tokens []token
	runes := []rune(query)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, pos: i})
			i++
		case r == '"':
			text, end, err := readPhrase(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokPhrase, text: text, pos: i})
			i = end
		default:
			start := i
			for i < len(runes) && !unicode.IsSpace(runes[i]) && runes[i] != '(' && runes[i] != ')' && runes[i] != '"' {
				i++
			}
			word := string(runes[start:i])
			switch word {
			case "AND":
				tokens = append(tokens, token{kind: tokAnd, pos: start})
				continue
			case "OR":
				tokens = append(tokens, token{kind: tokOr, pos: start})
				continue
			case "NOT":
				tokens = append(tokens, token{kind: tokNot, pos: start})
				continue
			}
			field, rest, isField, err := p.splitField(word)
			if err != nil {
				return nil, fmt.Errorf("%v at offset %d", err, start)
			}
			if !isField {
				tokens = append(tokens, token{kind: tokWord, text: word, pos: start})
				continue
			}
			if rest == "" {
				if i < len(runes) && runes[i] == '"' {
					text, end, err := readPhrase(runes, i)
					if err != nil {
						return nil, err
					}
					tokens = append(tokens, token{kind: tokPhrase, text: text, field: field, pos: start})
					i = end
					continue
				}
				return nil, fmt.Errorf("missing term after %s: at offset %d", field, start)
			}
			tokens = append(tokens, token{kind: tokWord, text: rest, field: field, pos: start})
		}
	}
	return append(tokens, token{kind: tokEOF, pos: len(runes)}), nil
}

func readPhrase(runes []rune, open int) (string, int, error) {
	for j := open + 1; j < len(runes); j++ {
		if runes[j] == '"' {
			return string(runes[open+1 : j]), j + 1, nil
		}
	}
	return "", 0, fmt.Errorf("unterminated quote at offset %d", open)
}

// splitField recognises "name:rest" where name is a lower-case identifier.
// Any other colon is part of the word.
func (p *Parser) splitField(word string) (field, rest string, ok bool, err error) {
	i := strings.IndexByte(word, ':')
	if i <= 0 {
		return "", "", false, nil
	}
	name := word[:i]
	for _, r := range name {
		if !(r >= 'a' && r <= 'z') && r != '_' {
			return "", "", false, nil
		}
	}
	if _, known := p.fields[name]; !known {
		return "", "", false, fmt.Errorf("unknown field %q", name)
	}
	return name, word[i+1:], true, nil
}
