package manager

import (
	"context"
	"strconv"

	"github.com/hiveq/hiveq/internal/doorbell"
	"github.com/hiveq/hiveq/internal/queuecore"
	"github.com/hiveq/hiveq/observability"
)

// Config mirrors the subset of hiveq.Config that matters to a
// manager-hosted queue.
type Config struct {
	Type         queuecore.Type
	Order        queuecore.Order
	Fast         bool
	AwaitEnabled bool
	Initial      []queuecore.Item
	Gather       func(queuecore.Item)
}

// ManagedQueue is one queue's full manager-side state: its core lane
// data, the manager's end of its signal and (optional) await doorbells,
// and the bookkeeping the doorbell protocol needs (nb_flag, tsem, asem).
// Touched only by the single dispatcher goroutine that owns the
// Registry it belongs to, so it needs no internal locking.
type ManagedQueue struct {
	id uint64

	core         *queuecore.Core
	fast         bool
	awaitEnabled bool

	signal *doorbell.Doorbell
	await  *doorbell.Doorbell

	metrics *observability.QueueMetrics

	nbFlag bool
	tsem   int
	asem   int
}

func newManagedQueue(id uint64, cfg Config, signal, await *doorbell.Doorbell, metrics *observability.QueueMetrics) *ManagedQueue {
	q := &ManagedQueue{
		id:           id,
		core:         queuecore.New(cfg.Type, cfg.Order, cfg.Initial...),
		fast:         cfg.Fast,
		awaitEnabled: cfg.AwaitEnabled,
		signal:       signal,
		await:        await,
		metrics:      metrics,
	}
	if cfg.Gather != nil {
		q.core.SetGather(cfg.Gather)
	}
	if len(cfg.Initial) > 0 {
		// One wake-up byte is pre-written for a non-empty initial queue.
		// In fast mode this also seeds dsem correctly, since dsem starts
		// at zero and RingFast's dsem<=1 branch is exactly the "first
		// ever ring" case.
		var n int
		if q.fast {
			n, _ = q.signal.RingFast(1)
		} else {
			n, _ = q.signal.RingSlow()
		}
		q.metrics.RecordDoorbellBytes(context.Background(), q.id, "signal", int64(n))
		q.metrics.RecordEnqueue(context.Background(), q.id, "normal", int64(len(cfg.Initial)))
	}
	return q
}

// Enqueue appends items to the normal lane (or diverts them to a gather
// callback) and applies the slow-mode empty->non-empty wake-up rule.
func (q *ManagedQueue) Enqueue(items []queuecore.Item) {
	if q.core.HasGather() {
		q.core.Enqueue(items...)
		return
	}
	wasEmpty := q.core.Pending() == 0
	q.core.Enqueue(items...)
	q.ringOnTransition(wasEmpty)
	q.metrics.RecordEnqueue(context.Background(), q.id, "normal", int64(len(items)))
}

// EnqueuePriority appends items to priority lane p and applies the same
// wake-up rule as Enqueue.
func (q *ManagedQueue) EnqueuePriority(p int, items []queuecore.Item) {
	wasEmpty := q.core.Pending() == 0
	q.core.EnqueuePriority(p, items...)
	q.ringOnTransition(wasEmpty)
	q.metrics.RecordEnqueue(context.Background(), q.id, strconv.Itoa(p), int64(len(items)))
}

// Insert splices items into the normal lane and applies the same
// wake-up rule as Enqueue.
func (q *ManagedQueue) Insert(index int, items []queuecore.Item) {
	wasEmpty := q.core.Pending() == 0
	q.core.Insert(index, items...)
	q.ringOnTransition(wasEmpty)
	q.metrics.RecordEnqueue(context.Background(), q.id, "normal", int64(len(items)))
}

// InsertPriority is Insert for a priority lane.
func (q *ManagedQueue) InsertPriority(p, index int, items []queuecore.Item) {
	wasEmpty := q.core.Pending() == 0
	q.core.InsertPriority(p, index, items...)
	q.ringOnTransition(wasEmpty)
	q.metrics.RecordEnqueue(context.Background(), q.id, strconv.Itoa(p), int64(len(items)))
}

// ringOnTransition applies the empty->non-empty wake-up rule in both
// modes: one byte, unless the last dequeue was non-blocking. In fast mode
// this byte is what lets the first blocked consumer send the D~QUE whose
// RingFast call then pre-signals the rest of the pending depth.
func (q *ManagedQueue) ringOnTransition(wasEmpty bool) {
	if wasEmpty && q.core.Pending() > 0 && !q.nbFlag {
		n, _ := q.signal.RingSlow()
		q.metrics.RecordDoorbellBytes(context.Background(), q.id, "signal", int64(n))
	}
}

// DequeueN performs count single dequeues, honoring blocking's nb_flag
// reset, fast mode's amortized wake-up, and the await-threshold release.
// blocking selects D~QUE (true) vs D~QUN (false); D~QUN is a mode
// violation under fast=true.
func (q *ManagedQueue) DequeueN(count int, blocking bool) ([]queuecore.Item, []bool, error) {
	if !blocking && q.fast {
		return nil, nil, ErrModeViolation
	}
	if count < 1 {
		return nil, nil, ErrBadArgument
	}
	if blocking {
		// A blocking D~QUE only ever arrives after the worker's own Wait
		// has already consumed a byte; mirror that on our side, since we
		// never call Wait ourselves and nothing else would clear it.
		q.signal.MarkConsumed()
	}
	items, found, err := q.core.DequeueN(count)
	if err != nil {
		return nil, nil, err
	}
	q.nbFlag = !blocking

	dequeued := int64(0)
	for _, ok := range found {
		if ok {
			dequeued++
		}
	}

	pending := q.core.Pending()
	var rung int
	if q.fast {
		depth := pending
		if count > 1 {
			depth = pending / count
		}
		rung, _ = q.signal.RingFast(depth)
	} else if pending > 0 {
		rung, _ = q.signal.RingSlow()
	}
	q.metrics.RecordDoorbellBytes(context.Background(), q.id, "signal", int64(rung))
	q.metrics.RecordDequeue(context.Background(), q.id, "mixed", dequeued)

	q.releaseAwaiters(pending)
	return items, found, nil
}

// releaseAwaiters implements the post-dequeue threshold check, run after
// every dequeue regardless of blocking/non-blocking.
func (q *ManagedQueue) releaseAwaiters(pending int) {
	if !q.awaitEnabled || q.asem <= 0 || pending > q.tsem {
		return
	}
	n, _ := q.await.RingBurst(q.asem)
	q.metrics.RecordDoorbellBytes(context.Background(), q.id, "await", int64(n))
	q.asem = 0
}

// Await records a threshold wait, releasing immediately if already
// satisfied. Returns ErrModeViolation if the queue was not constructed
// with AwaitEnabled.
func (q *ManagedQueue) Await(threshold int) error {
	if !q.awaitEnabled {
		return ErrModeViolation
	}
	q.tsem = threshold
	if q.core.Pending() <= threshold {
		n, _ := q.await.RingBurst(1)
		q.metrics.RecordDoorbellBytes(context.Background(), q.id, "await", int64(n))
		return nil
	}
	q.asem++
	return nil
}

// Clear empties the queue and drains any pending signal byte. A mode
// violation under fast=true.
func (q *ManagedQueue) Clear() error {
	if q.fast {
		return ErrModeViolation
	}
	pending := q.core.Pending()
	q.core.Clear()
	q.signal.DrainSlow()
	q.nbFlag = false
	q.tsem = 0
	q.asem = 0
	q.metrics.RecordDequeue(context.Background(), q.id, "mixed", int64(pending))
	return nil
}

func (q *ManagedQueue) Pending() int                        { return q.core.Pending() }
func (q *ManagedQueue) Peek(idx int) (queuecore.Item, bool) { return q.core.Peek(idx) }
func (q *ManagedQueue) PeekPriority(p, idx int) (queuecore.Item, bool) {
	return q.core.PeekPriority(p, idx)
}
func (q *ManagedQueue) PeekHeap(idx int) (int, bool) { return q.core.PeekHeap(idx) }
func (q *ManagedQueue) HeapSnapshot() []int          { return q.core.HeapSnapshot() }
