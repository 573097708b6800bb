// Package workerclient implements the two worker-facing ways of driving
// a queue: Standalone, which shortcuts straight to a local queuecore.Core
// with no I/O, and Proxy, which drives a queue hosted by a remote
// manager over the wire protocol. Both satisfy the same method set so
// hiveq.Queue can be backed by either without the caller knowing which.
package workerclient

import (
	"context"
	"sync"

	"github.com/hiveq/hiveq/internal/queuecore"
)

// Standalone drives a queue with no manager process: every method
// shortcuts straight to the local queuecore.Core, and no socket is ever
// touched. Blocking dequeue waits on a generation channel and await on a
// channel of its own per waiter, rather than on sync.Cond, so a caller's
// context can cancel a wait cleanly.
type Standalone struct {
	mu   sync.Mutex
	core *queuecore.Core
	wake chan struct{}

	fast         bool
	awaitEnabled bool
	tsem         int
	asem         int
	awaiters     []chan struct{}
}

// NewStandalone wraps core for direct, in-process access. fast mirrors
// the manager-hosted mode: a fast queue trades Clear and DequeueNB for
// throughput, so both are rejected as mode violations rather than
// silently acting.
func NewStandalone(core *queuecore.Core, awaitEnabled, fast bool) *Standalone {
	return &Standalone{core: core, awaitEnabled: awaitEnabled, fast: fast, wake: make(chan struct{})}
}

// wakeLocked notifies any blocked Dequeue callers. Must be called with
// s.mu held.
func (s *Standalone) wakeLocked() {
	close(s.wake)
	s.wake = make(chan struct{})
}

func (s *Standalone) Enqueue(items []queuecore.Item) error {
	s.mu.Lock()
	s.core.Enqueue(items...)
	s.wakeLocked()
	s.mu.Unlock()
	return nil
}

func (s *Standalone) EnqueuePriority(p int, items []queuecore.Item) error {
	s.mu.Lock()
	s.core.EnqueuePriority(p, items...)
	s.wakeLocked()
	s.mu.Unlock()
	return nil
}

// Insert takes a single item, matching the wire protocol's I~QUE shape
// (one payload+marker field), even though queuecore.Core itself accepts
// a variadic run — the exported interface stays symmetric between
// Standalone and Proxy rather than giving standalone mode a capability
// a manager-hosted queue can never offer.
func (s *Standalone) Insert(index int, item queuecore.Item) error {
	s.mu.Lock()
	s.core.Insert(index, item)
	s.wakeLocked()
	s.mu.Unlock()
	return nil
}

func (s *Standalone) InsertPriority(p, index int, item queuecore.Item) error {
	s.mu.Lock()
	s.core.InsertPriority(p, index, item)
	s.wakeLocked()
	s.mu.Unlock()
	return nil
}

// Dequeue blocks until count items are available (or ctx is done),
// performing single dequeues as data arrives.
func (s *Standalone) Dequeue(ctx context.Context, count int) ([]queuecore.Item, []bool, error) {
	items := make([]queuecore.Item, 0, count)
	found := make([]bool, 0, count)
	for len(items) < count {
		s.mu.Lock()
		it, ok := s.core.Dequeue()
		if ok {
			items = append(items, it)
			found = append(found, true)
			s.releaseAwaitersLocked()
			s.mu.Unlock()
			continue
		}
		waitCh := s.wake
		s.mu.Unlock()

		select {
		case <-waitCh:
		case <-ctxDone(ctx):
			for len(items) < count {
				items = append(items, queuecore.Item{})
				found = append(found, false)
			}
			return items, found, ctx.Err()
		}
	}
	return items, found, nil
}

// DequeueNB performs a non-blocking single-pass dequeue: positions
// beyond what is currently available are reported absent, not waited
// for.
func (s *Standalone) DequeueNB(count int) ([]queuecore.Item, []bool, error) {
	if s.fast {
		return nil, nil, ErrModeViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items, found, err := s.core.DequeueN(count)
	if err != nil {
		return nil, nil, err
	}
	s.releaseAwaitersLocked()
	return items, found, nil
}

func ctxDone(ctx context.Context) <-chan struct{} {
	if ctx == nil {
		return nil
	}
	return ctx.Done()
}

func (s *Standalone) Peek(index int) (queuecore.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.core.Peek(index)
	return item, ok, nil
}

func (s *Standalone) PeekPriority(p, index int) (queuecore.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.core.PeekPriority(p, index)
	return item, ok, nil
}

func (s *Standalone) PeekHeap(index int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	level, ok := s.core.PeekHeap(index)
	return level, ok, nil
}

func (s *Standalone) HeapSnapshot() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.HeapSnapshot(), nil
}

func (s *Standalone) Pending() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.Pending(), nil
}

func (s *Standalone) Clear() error {
	if s.fast {
		return ErrModeViolation
	}
	s.mu.Lock()
	s.core.Clear()
	s.tsem, s.asem = 0, 0
	s.awaiters = nil
	s.mu.Unlock()
	return nil
}

// Await blocks until pending <= threshold, or returns immediately if
// already satisfied.
func (s *Standalone) Await(ctx context.Context, threshold int) error {
	if !s.awaitEnabled {
		return ErrAwaitDisabled
	}
	s.mu.Lock()
	if s.core.Pending() <= threshold {
		s.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	s.awaiters = append(s.awaiters, ch)
	s.tsem = threshold
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctxDone(ctx):
		return ctx.Err()
	}
}

// releaseAwaitersLocked mirrors the manager's post-dequeue threshold
// check for in-process await waiters. Called with s.mu held.
func (s *Standalone) releaseAwaitersLocked() {
	if !s.awaitEnabled || len(s.awaiters) == 0 {
		return
	}
	if s.core.Pending() > s.tsem {
		return
	}
	for _, ch := range s.awaiters {
		close(ch)
	}
	s.awaiters = nil
}

// Close is a no-op: a Standalone owns no sockets, only in-process state.
// It exists so Standalone and Proxy satisfy the same Queue interface.
func (s *Standalone) Close() error { return nil }
