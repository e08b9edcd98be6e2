// Package merger selects the best-scoring documents with a bounded heap.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher/ranker"
)

// TopK returns at most limit documents of scores ordered by score
// descending, ties by id ascending. Every candidate is visited; only limit
// are held at a time.
func TopK(scores map[string]float64, limit int) []ranker.ScoredDoc {
	if limit <= 0 {
		limit = 10
	}
	h := &scoredDocHeap{}
	heap.Init(h)
	for docID, score := range scores {
		heap.Push(h, ranker.ScoredDoc{DocID: docID, Score: score})
		if h.Len() > limit {
			heap.Pop(h)
		}
	}
	return drain(h)
}

func drain(h *scoredDocHeap) []ranker.ScoredDoc {
	result := make([]ranker.ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ranker.ScoredDoc)
	}
	return result
}

type scoredDocHeap []ranker.ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

// Less orders the worst document first: lowest score, then highest id.
func (h scoredDocHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ranker.ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
