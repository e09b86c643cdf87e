// Bounded top-k priority queue: a min-heap capped at max_size, so the
// lowest-scoring candidate is evicted whenever a higher-scoring one
// arrives once the queue is full. Callers must Finalise before
// iterating in rank order.
package mir

import (
	"container/heap"
	"sort"
)

// pqItem is one (docID, score) entry.
type pqItem struct {
	docID int
	score float64
}

// pqHeap is a container/heap min-heap over pqItem by score.
type pqHeap []pqItem

func (h pqHeap) Len() int            { return len(h) }
func (h pqHeap) Less(i, j int) bool  { return h[i].score < h[j].score }
func (h pqHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pqHeap) Push(x any) { *h = append(*h, x.(pqItem)) }
func (h *pqHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PriorityQueue is a bounded top-k min-heap over (docID, score) pairs.
type PriorityQueue struct {
	heap      pqHeap
	maxSize   int
	finalised bool
}

// NewPriorityQueue returns a queue that retains at most maxSize entries.
func NewPriorityQueue(maxSize int) *PriorityQueue {
	return &PriorityQueue{maxSize: maxSize}
}

// Push offers (docID, score). If the queue is full and score does not
// exceed the current minimum, the entry is dropped. Otherwise it is
// inserted, evicting the current minimum if the queue was already at
// capacity; evicted reports what was evicted, if anything.
func (pq *PriorityQueue) Push(docID int, score float64) (evictedID int, evicted bool) {
	if pq.finalised {
		panic("mir: Push called on a finalised PriorityQueue")
	}
	if len(pq.heap) == pq.maxSize {
		if pq.maxSize == 0 || score <= pq.heap[0].score {
			return 0, false
		}
		min := pq.heap[0]
		pq.heap[0] = pqItem{docID: docID, score: score}
		heap.Fix(&pq.heap, 0)
		return min.docID, true
	}
	heap.Push(&pq.heap, pqItem{docID: docID, score: score})
	return 0, false
}

// Len returns the number of entries currently held.
func (pq *PriorityQueue) Len() int {
	return len(pq.heap)
}

// Finalise sorts entries into descending-score rank order, breaking
// ties by descending doc_id (matching the reference implementation's
// reverse sort of (score, doc_id) tuples). Required before Iterate.
func (pq *PriorityQueue) Finalise() {
	items := append(pqHeap(nil), pq.heap...)
	sort.Slice(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].docID > items[j].docID
	})
	pq.heap = items
	pq.finalised = true
}

// Iterate yields entries in descending-score rank order. Panics if
// called before Finalise.
func (pq *PriorityQueue) Iterate() []pqItem {
	if !pq.finalised {
		panic("mir: Iterate called before Finalise")
	}
	return pq.heap
}
