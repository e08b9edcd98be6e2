package index

import (
	"slices"
	"sort"
	"sync"
)

type postingKey struct {
	field string
	term  string
}

// MemoryIndex accumulates one write batch before it is frozen into a
// segment. Adding a document id twice replaces the earlier copy.
type MemoryIndex struct {
	mu       sync.RWMutex
	index    map[postingKey]map[string]*Posting
	docs     map[string]StoredDocument
	docTerms map[string][]postingKey
	surfaces map[postingKey]map[string][]string
	size     int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index:    make(map[postingKey]map[string]*Posting),
		docs:     make(map[string]StoredDocument),
		docTerms: make(map[string][]postingKey),
		surfaces: make(map[postingKey]map[string][]string),
	}
}

func (m *MemoryIndex) AddDocument(doc Document) {
	fieldTerms, lengths := Analyze(doc)

	termData := make(map[postingKey]*Posting)
	termSurfaces := make(map[postingKey][]string)
	keys := make([]postingKey, 0, len(fieldTerms))
	for _, ft := range fieldTerms {
		key := postingKey{field: ft.Field, term: ft.Term}
		if ft.Surface != "" && !slices.Contains(termSurfaces[key], ft.Surface) {
			termSurfaces[key] = append(termSurfaces[key], ft.Surface)
		}
		p, exists := termData[key]
		if !exists {
			p = &Posting{
				DocID:     doc.ID,
				Positions: make([]int, 0, 4),
			}
			termData[key] = p
			keys = append(keys, key)
		}
		p.Frequency++
		p.Positions = append(p.Positions, ft.Position)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(doc.ID)
	for key, posting := range termData {
		if _, exists := m.index[key]; !exists {
			m.index[key] = make(map[string]*Posting)
		}
		m.index[key][doc.ID] = posting
		m.size += int64(len(key.term) + len(doc.ID) + len(posting.Positions)*8 + 64)
	}
	for key, words := range termSurfaces {
		if _, exists := m.surfaces[key]; !exists {
			m.surfaces[key] = make(map[string][]string)
		}
		m.surfaces[key][doc.ID] = words
	}
	m.docs[doc.ID] = StoredDocument{Document: doc, Lengths: lengths}
	m.docTerms[doc.ID] = keys
	m.size += int64(len(doc.Content) + len(doc.Explanation) + 128)
}

func (m *MemoryIndex) removeLocked(docID string) {
	keys, ok := m.docTerms[docID]
	if !ok {
		return
	}
	for _, key := range keys {
		docs := m.index[key]
		delete(docs, docID)
		if len(docs) == 0 {
			delete(m.index, key)
		}
		if words, ok := m.surfaces[key]; ok {
			delete(words, docID)
			if len(words) == 0 {
				delete(m.surfaces, key)
			}
		}
	}
	delete(m.docTerms, docID)
	delete(m.docs, docID)
}

func (m *MemoryIndex) Search(field, term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[postingKey{field: field, term: term}]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Snapshot returns the term entries sorted by (field, term).
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for key, docs := range m.index {
		postings := make(PostingList, 0, len(docs))
		for _, posting := range docs {
			postings = append(postings, *posting)
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Field:    key.field,
			Term:     key.term,
			Postings: postings,
			Surfaces: m.surfacesLocked(key),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Field != entries[j].Field {
			return entries[i].Field < entries[j].Field
		}
		return entries[i].Term < entries[j].Term
	})
	return entries
}

func (m *MemoryIndex) surfacesLocked(key postingKey) []string {
	byDoc, ok := m.surfaces[key]
	if !ok {
		return nil
	}
	var out []string
	for _, words := range byDoc {
		for _, w := range words {
			if !slices.Contains(out, w) {
				out = append(out, w)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Documents returns the stored documents sorted by id.
func (m *MemoryIndex) Documents() []StoredDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StoredDocument, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[postingKey]map[string]*Posting)
	m.docs = make(map[string]StoredDocument)
	m.docTerms = make(map[string][]postingKey)
	m.surfaces = make(map[postingKey]map[string][]string)
	m.size = 0
}
