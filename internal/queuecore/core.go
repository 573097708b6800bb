// Package queuecore implements the in-memory lane and priority-heap logic
// shared by every mode a queue can run in (standalone, manager, worker
// proxy). It performs no I/O and takes no locks: callers own
// synchronization, exactly as a single-threaded manager dispatcher does
// for its registry (see the manager package).
package queuecore

import "errors"

// Type selects the dequeue/enqueue discipline of the normal lane and of
// every priority lane.
type Type int

const (
	// LIFO dequeues from the tail (stack discipline).
	LIFO Type = 0
	// FIFO dequeues from the head.
	FIFO Type = 1
)

// Order selects which end of the priority heap is drained first.
type Order int

const (
	// LOWEST drains the numerically smallest priority level first.
	LOWEST Order = 0
	// HIGHEST drains the numerically largest priority level first.
	HIGHEST Order = 1
)

// ErrBadCount is returned by DequeueN when count < 1.
var ErrBadCount = errors.New("queuecore: count must be >= 1")

// Item is the tagged union carried by every lane: either a raw scalar
// byte string or a pre-frozen structured blob. Frozen mirrors the wire's
// has-ref marker (spec: '1' for a serialized structured value, '0' for a
// raw scalar).
type Item struct {
	Payload []byte
	Frozen  bool
}

// Core is the pure lane/heap data structure. It has no notion of sockets,
// managers, or workers — those live in the manager and workerclient
// packages, which drive Core and separately manage the doorbell.
type Core struct {
	typ   Type
	order Order

	normal []Item
	lanes  map[int][]Item
	heap   priorityHeap

	// gather, when non-nil, diverts normal-lane enqueues (Enqueue) to the
	// callback instead of appending them. Installed from the queue's
	// Gather option in both modes: a manager-hosted queue passes the
	// received value straight through and skips the append (and, at the
	// caller's level, the doorbell byte); a standalone queue diverts its
	// own Enqueue calls the same way.
	gather func(Item)
}

// New creates an empty Core with the given lane discipline and priority
// order, optionally preloaded with initial normal-lane items.
func New(typ Type, order Order, initial ...Item) *Core {
	c := &Core{
		typ:   typ,
		order: order,
		lanes: make(map[int][]Item),
		heap:  newPriorityHeap(order),
	}
	if len(initial) > 0 {
		c.normal = append(c.normal, initial...)
	}
	return c
}

// SetGather installs (or clears, with nil) the manager-side gather hook.
func (c *Core) SetGather(fn func(Item)) { c.gather = fn }

// HasGather reports whether a gather hook is installed.
func (c *Core) HasGather() bool { return c.gather != nil }

// Enqueue appends items to the normal lane's tail, or — if a gather hook
// is installed — passes each item to the hook instead.
func (c *Core) Enqueue(items ...Item) {
	if c.gather != nil {
		for _, it := range items {
			c.gather(it)
		}
		return
	}
	c.normal = append(c.normal, items...)
}

// EnqueuePriority appends items to priority lane p's tail, creating the
// lane (and inserting p into the heap) if it did not already hold items.
// A no-op when items is empty.
func (c *Core) EnqueuePriority(p int, items ...Item) {
	if len(items) == 0 {
		return
	}
	lane, exists := c.lanes[p]
	wasEmpty := !exists || len(lane) == 0
	c.lanes[p] = append(lane, items...)
	if wasEmpty {
		c.heap.insert(p)
	}
}

// Dequeue performs a single dequeue, draining the priority heap before
// the normal lane. ok is false when the queue is empty.
func (c *Core) Dequeue() (Item, bool) {
	if lvl, has := c.heap.top(); has {
		lane := c.lanes[lvl]
		var it Item
		if c.typ == FIFO {
			it, lane = lane[0], lane[1:]
		} else {
			last := len(lane) - 1
			it, lane = lane[last], lane[:last]
		}
		if len(lane) == 0 {
			delete(c.lanes, lvl)
			c.heap.removeTop()
		} else {
			c.lanes[lvl] = lane
		}
		return it, true
	}

	if len(c.normal) == 0 {
		return Item{}, false
	}
	var it Item
	if c.typ == FIFO {
		it, c.normal = c.normal[0], c.normal[1:]
	} else {
		last := len(c.normal) - 1
		it, c.normal = c.normal[last], c.normal[:last]
	}
	return it, true
}

// DequeueN performs count single dequeues. Positions beyond the number of
// items actually available are reported as ok=false ("absent"), per spec
// (count > pending yields trailing absent positions rather than an error).
func (c *Core) DequeueN(count int) ([]Item, []bool, error) {
	if count < 1 {
		return nil, nil, ErrBadCount
	}
	items := make([]Item, count)
	found := make([]bool, count)
	for i := 0; i < count; i++ {
		it, ok := c.Dequeue()
		items[i] = it
		found[i] = ok
		if !ok {
			// Queue is now empty; remaining positions stay absent.
			continue
		}
	}
	return items, found, nil
}

// Insert splices items into the normal lane at the FIFO/LIFO-symmetric
// logical index described in the doc comment of insertIndex.
func (c *Core) Insert(index int, items ...Item) {
	if len(items) == 0 {
		return
	}
	pos := insertIndex(len(c.normal), c.typ, index)
	c.normal = spliceItems(c.normal, pos, items)
}

// InsertPriority splices items into priority lane p at the logical index,
// or delegates to EnqueuePriority when the lane doesn't exist or is empty.
func (c *Core) InsertPriority(p, index int, items ...Item) {
	if len(items) == 0 {
		return
	}
	lane, exists := c.lanes[p]
	if !exists || len(lane) == 0 {
		c.EnqueuePriority(p, items...)
		return
	}
	pos := insertIndex(len(lane), c.typ, index)
	c.lanes[p] = spliceItems(lane, pos, items)
}

// Peek returns the normal-lane item at the logical index without removing
// it. ok is false ("absent") when |index| >= length.
func (c *Core) Peek(index int) (Item, bool) {
	pos, ok := peekIndex(len(c.normal), c.typ, index)
	if !ok {
		return Item{}, false
	}
	return c.normal[pos], true
}

// PeekPriority is Peek for priority lane p.
func (c *Core) PeekPriority(p, index int) (Item, bool) {
	lane := c.lanes[p]
	pos, ok := peekIndex(len(lane), c.typ, index)
	if !ok {
		return Item{}, false
	}
	return lane[pos], true
}

// PeekHeap returns the priority level at heap position index without
// removing it. The heap has no FIFO/LIFO discipline of its own; index 0
// is always the next level to be drained.
func (c *Core) PeekHeap(index int) (int, bool) {
	return c.heap.peek(index)
}

// HeapSnapshot returns a copy of the currently non-empty priority levels,
// ordered so index 0 drains next.
func (c *Core) HeapSnapshot() []int {
	return c.heap.snapshot()
}

// Pending is the total item count across every lane.
func (c *Core) Pending() int {
	n := len(c.normal)
	for _, lane := range c.lanes {
		n += len(lane)
	}
	return n
}

// Clear empties the normal lane, every priority lane, and the heap.
func (c *Core) Clear() {
	c.normal = nil
	c.lanes = make(map[int][]Item)
	c.heap.clear()
}

// spliceItems inserts items into s at pos, preserving argument order.
func spliceItems(s []Item, pos int, items []Item) []Item {
	out := make([]Item, 0, len(s)+len(items))
	out = append(out, s[:pos]...)
	out = append(out, items...)
	out = append(out, s[pos:]...)
	return out
}
