// Package symspell implements the symmetric-delete lookup used to expand a
// fuzzy query term into the index terms within a small edit distance.
//
// Every dictionary word is stored under itself and each of its single
// character deletions. A query probes the same keys, and the candidates are
// confirmed with a bounded Levenshtein check, so transpositions and other
// distance-2 pairs that share a delete key are not reported at distance 1.
package symspell

import (
	"sort"
	"sync"
)

type SymSpell struct {
	deletes map[string]map[string]struct{}
	words   map[string]struct{}
	mu      sync.RWMutex
}

func New() *SymSpell {
	return &SymSpell{
		deletes: make(map[string]map[string]struct{}),
		words:   make(map[string]struct{}),
	}
}

// AddWord indexes word and all of its single-rune deletions.
func (s *SymSpell) AddWord(word string) {
	if word == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.words[word]; ok {
		return
	}
	s.words[word] = struct{}{}
	s.link(word, word)
	for _, del := range deletes(word) {
		s.link(del, word)
	}
}

// LoadDictionary adds every word in words.
func (s *SymSpell) LoadDictionary(words []string) {
	for _, w := range words {
		s.AddWord(w)
	}
}

// Len reports how many distinct words are indexed.
func (s *SymSpell) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// Lookup returns dictionary words within maxDistance edits of query,
// including query itself when present, sorted by distance then
// lexicographically. maxReturn <= 0 means unbounded. Distances above 1 fall
// back to a scan of the dictionary since only single deletes are indexed.
func (s *SymSpell) Lookup(query string, maxDistance, maxReturn int) []string {
	if query == "" || maxDistance < 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type candidate struct {
		word string
		dist int
	}
	found := make(map[string]int)
	consider := func(w string) {
		if _, seen := found[w]; seen {
			return
		}
		if d := distance(query, w, maxDistance); d <= maxDistance {
			found[w] = d
		}
	}

	if maxDistance <= 1 {
		visit := func(key string) {
			for w := range s.deletes[key] {
				consider(w)
			}
		}
		visit(query)
		if maxDistance == 1 {
			for _, del := range deletes(query) {
				visit(del)
			}
		}
	} else {
		for w := range s.words {
			consider(w)
		}
	}

	cands := make([]candidate, 0, len(found))
	for w, d := range found {
		cands = append(cands, candidate{w, d})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].word < cands[j].word
	})
	if maxReturn > 0 && len(cands) > maxReturn {
		cands = cands[:maxReturn]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.word
	}
	return out
}

func (s *SymSpell) link(key, word string) {
	originals, ok := s.deletes[key]
	if !ok {
		originals = make(map[string]struct{})
		s.deletes[key] = originals
	}
	originals[word] = struct{}{}
}

func deletes(word string) []string {
	runes := []rune(word)
	out := make([]string, 0, len(runes))
	for i := range runes {
		out = append(out, string(runes[:i])+string(runes[i+1:]))
	}
	return out
}

// distance is the Levenshtein distance between a and b, or max+1 as soon as
// it is known to exceed max.
func distance(a, b string, max int) int {
	ra, rb := []rune(a), []rune(b)
	if abs(len(ra)-len(rb)) > max {
		return max + 1
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if curr[j] < rowMin {
				rowMin = curr[j]
			}
		}
		if rowMin > max {
			return max + 1
		}
		prev, curr = curr, prev
	}
	if prev[len(rb)] > max {
		return max + 1
	}
	return prev[len(rb)]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
