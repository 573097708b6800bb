package queuecore

import "sort"

// priorityHeap is the ordered list of currently non-empty priority
// levels. It is kept as a plain ordered slice rather than a binary heap:
// membership is the (typically small) set of non-empty levels, and
// insertions dominate over rank updates, so binary-insertion into a
// slice beats the bookkeeping of a heap-shaped structure.
type priorityHeap struct {
	order  Order
	levels []int
}

func newPriorityHeap(order Order) priorityHeap {
	return priorityHeap{order: order}
}

// precedes reports whether level a must be drained before level b under
// the heap's configured order.
func (h *priorityHeap) precedes(a, b int) bool {
	if h.order == HIGHEST {
		return a > b
	}
	return a < b
}

// insert adds a newly non-empty level p. The caller guarantees p is not
// already present.
func (h *priorityHeap) insert(p int) {
	n := len(h.levels)
	switch {
	case n == 0:
		h.levels = []int{p}
	case h.precedes(p, h.levels[0]):
		h.levels = append([]int{p}, h.levels...)
	case h.precedes(h.levels[n-1], p):
		h.levels = append(h.levels, p)
	default:
		idx := sort.Search(n, func(i int) bool { return h.precedes(p, h.levels[i]) })
		h.levels = spliceInts(h.levels, idx, p)
	}
}

// top returns the head level (the one to drain next) without removing it.
func (h *priorityHeap) top() (int, bool) {
	if len(h.levels) == 0 {
		return 0, false
	}
	return h.levels[0], true
}

// removeTop drops the head level. Called only when that level's lane has
// just emptied.
func (h *priorityHeap) removeTop() {
	if len(h.levels) == 0 {
		return
	}
	h.levels = h.levels[1:]
}

// peek returns the level at heap position idx. The heap has no
// FIFO/LIFO discipline of its own — it is always read head-to-tail —
// so this is plain array indexing with the standard negative-counts-
// from-the-tail convention, not the FIFO/LIFO mirroring used for lanes.
func (h *priorityHeap) peek(idx int) (int, bool) {
	n := len(h.levels)
	abs := idx
	if abs < 0 {
		abs = -abs
	}
	if abs >= n {
		return 0, false
	}
	pos := idx
	if idx < 0 {
		pos = n + idx
	}
	return h.levels[pos], true
}

func (h *priorityHeap) snapshot() []int {
	out := make([]int, len(h.levels))
	copy(out, h.levels)
	return out
}

func (h *priorityHeap) clear() {
	h.levels = nil
}

func spliceInts(s []int, pos, v int) []int {
	out := make([]int, 0, len(s)+1)
	out = append(out, s[:pos]...)
	out = append(out, v)
	out = append(out, s[pos:]...)
	return out
}
