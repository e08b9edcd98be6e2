package indexer

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/segment"
)

// segmentHandle reference counts an open segment reader. Each view holding
// the segment owns one reference. A retired handle is closed, and with
// removeFile its file deleted, once the last view lets go of it.
type segmentHandle struct {
	name       string
	reader     *segment.Reader
	refs       atomic.Int32
	obsolete   atomic.Bool
	removeFile atomic.Bool
	closeOnce  sync.Once
	onClose    func(*segmentHandle)
}

func (h *segmentHandle) acquire() {
	h.refs.Add(1)
}

func (h *segmentHandle) release() {
	if h.refs.Add(-1) == 0 && h.obsolete.Load() {
		h.close()
	}
}

func (h *segmentHandle) retire(removeFile bool) {
	h.removeFile.Store(removeFile)
	h.obsolete.Store(true)
	if h.refs.Load() == 0 {
		h.close()
	}
}

func (h *segmentHandle) close() {
	h.closeOnce.Do(func() {
		logger := slog.Default().With("component", "indexer")
		if err := h.reader.Close(); err != nil {
			logger.Error("closing segment reader", "segment", h.name, "error", err)
		}
		if h.removeFile.Load() {
			if err := os.Remove(h.reader.Path()); err != nil && !os.IsNotExist(err) {
				logger.Error("removing merged segment", "segment", h.name, "error", err)
			} else {
				logger.Debug("merged segment removed", "segment", h.name)
			}
		}
		if h.onClose != nil {
			h.onClose(h)
		}
	})
}

// view is the immutable read state of one manifest generation.
type view struct {
	generation   uint64
	segments     []*segmentHandle
	owner        map[string]int
	totalLengths map[string]int64
	refs         atomic.Int32
}

func newView(generation uint64, segments []*segmentHandle) *view {
	v := &view{
		generation:   generation,
		segments:     segments,
		owner:        make(map[string]int),
		totalLengths: make(map[string]int64),
	}
	for i, h := range segments {
		h.acquire()
		for _, id := range h.reader.DocIDs() {
			v.owner[id] = i
		}
	}
	for id, i := range v.owner {
		doc, _ := segments[i].reader.Document(id)
		for field, n := range doc.Lengths {
			v.totalLengths[field] += int64(n)
		}
	}
	v.refs.Store(1)
	return v
}

func (v *view) acquire() {
	v.refs.Add(1)
}

func (v *view) release() {
	if v.refs.Add(-1) == 0 {
		for _, h := range v.segments {
			h.release()
		}
	}
}

func (v *view) names() []string {
	out := make([]string, len(v.segments))
	for i, h := range v.segments {
		out[i] = h.name
	}
	return out
}

func (v *view) document(id string) (index.StoredDocument, bool) {
	i, ok := v.owner[id]
	if !ok {
		return index.StoredDocument{}, false
	}
	return v.segments[i].reader.Document(id)
}

func (v *view) sortedIDs() []string {
	ids := make([]string, 0, len(v.owner))
	for id := range v.owner {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot is a read handle pinned to one committed generation. Commits and
// merges after it was taken are invisible to it. Callers must Release it.
type Snapshot struct {
	v        *view
	released atomic.Bool
}

func (s *Snapshot) Release() {
	if s.released.CompareAndSwap(false, true) {
		s.v.release()
	}
}

func (s *Snapshot) Generation() uint64 {
	return s.v.generation
}

// DocCount is the number of live documents.
func (s *Snapshot) DocCount() int {
	return len(s.v.owner)
}

func (s *Snapshot) AvgFieldLength(field string) float64 {
	if len(s.v.owner) == 0 {
		return 0
	}
	return float64(s.v.totalLengths[field]) / float64(len(s.v.owner))
}

func (s *Snapshot) FieldLength(docID, field string) int {
	doc, ok := s.v.document(docID)
	if !ok {
		return 0
	}
	return doc.Lengths[field]
}

// Postings returns the live postings of term in field, sorted by document
// id. Copies shadowed by a newer segment are dropped.
func (s *Snapshot) Postings(field, term string) (index.PostingList, error) {
	var out index.PostingList
	for i, h := range s.v.segments {
		postings, err := h.reader.Search(field, term)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", h.name, err)
		}
		for _, p := range postings {
			if owner, ok := s.v.owner[p.DocID]; ok && owner == i {
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].DocID < out[b].DocID
	})
	return out, nil
}

// SimilarTerms returns the distinct dictionary terms of field within
// maxDistance edits of word, directly or through an unstemmed word indexed
// under them, across all segments, sorted, at most maxReturn.
func (s *Snapshot) SimilarTerms(field, word string, maxDistance, maxReturn int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, h := range s.v.segments {
		for _, t := range h.reader.SimilarTerms(field, word, maxDistance, 0) {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	if maxReturn > 0 && len(out) > maxReturn {
		out = out[:maxReturn]
	}
	return out
}

func (s *Snapshot) Document(id string) (index.StoredDocument, bool) {
	return s.v.document(id)
}

func (s *Snapshot) Exists(id string) bool {
	_, ok := s.v.owner[id]
	return ok
}

// DocIDs returns every live document id in sorted order.
func (s *Snapshot) DocIDs() []string {
	return s.v.sortedIDs()
}
