// Package doorbell implements the byte-oriented wake-up channel a
// blocking dequeue or await reads from. One end lives in the manager;
// the other lives in a worker process or goroutine and blocks reading a
// single byte before proceeding.
//
// The transport is a real OS socket pair rather than an in-process
// channel: a different OS process must be able to block on it.
package doorbell

import (
	"io"
	"sync"
)

// MaxDepth caps a single fast-mode wake-up burst.
const MaxDepth = 192

// Doorbell wraps one end of a connected byte-stream pair with the
// bookkeeping fast mode needs (dsem) and the invariant slow mode needs
// (at most one pending byte).
type Doorbell struct {
	conn ringConn
	// peer, when non-nil, lets this end reach into the receive buffer
	// the other end reads from and steal back a byte that was already
	// written there. Only the writing (manager) side of a pair carries
	// one; it exists solely so DrainSlow can undo a RingSlow that ran
	// before the reader consumed the byte.
	peer drainer

	mu   sync.Mutex
	fast bool
	// dsem tracks, in fast mode, how many pre-signalled bytes are still
	// outstanding in the channel.
	dsem int
	// pending is the slow-mode invariant flag: true when exactly one
	// byte currently sits unread in the channel.
	pending bool
}

// ringConn is the minimal surface Doorbell needs from a connected pair
// endpoint. *net.UnixConn (unix) and the buffered fallback (windows)
// both satisfy it.
type ringConn interface {
	io.Reader
	io.Writer
	Close() error
}

// drainer lets a Doorbell reach into the buffer its peer reads from and
// remove a byte that was written but not yet consumed.
type drainer interface {
	tryDrain() bool
	Close() error
}

func newDoorbell(conn ringConn, fast bool) *Doorbell {
	return &Doorbell{conn: conn, fast: fast}
}

// attachPeer gives this Doorbell drain access to the buffer its paired
// end reads from. Called by NewPair on the writing (manager) side only.
func (d *Doorbell) attachPeer(p drainer) {
	d.peer = p
}

// Wait blocks until a wake-up byte is available and consumes exactly
// one. In fast mode this drains one pre-signalled byte from a burst; in
// slow mode it clears the pending flag.
func (d *Doorbell) Wait() error {
	var b [1]byte
	if _, err := io.ReadFull(d.conn, b[:]); err != nil {
		return err
	}
	d.mu.Lock()
	if !d.fast {
		d.pending = false
	}
	d.mu.Unlock()
	return nil
}

// RingSlow implements the slow-mode wake-up rule: at most one byte
// outstanding at any time. It is a no-op if a byte is already pending.
// Returns the number of bytes actually written (0 or 1).
func (d *Doorbell) RingSlow() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending {
		return 0, nil
	}
	if _, err := d.conn.Write([]byte{1}); err != nil {
		return 0, err
	}
	d.pending = true
	return 1, nil
}

// DrainSlow removes a pending slow-mode byte, including one already
// written to the channel and not yet read by the other end, so a
// subsequent blocking Wait on that end does not wake on stale data.
// Used by Clear.
func (d *Doorbell) DrainSlow() {
	d.mu.Lock()
	wasPending := d.pending
	d.pending = false
	d.mu.Unlock()
	if wasPending && d.peer != nil {
		d.peer.tryDrain()
	}
}

// MarkConsumed tells a writing-side Doorbell that its wake-up byte has
// been read, without itself reading anything. The manager's own
// Doorbell instance never calls Wait — only the paired worker-side
// instance does — so nothing else would ever clear pending, and every
// RingSlow after the first would silently no-op forever. Callers use
// this once they have another guarantee the byte was actually consumed
// (e.g. a blocking dequeue request arriving, which the protocol
// guarantees only follows a completed Wait).
func (d *Doorbell) MarkConsumed() {
	d.mu.Lock()
	d.pending = false
	d.mu.Unlock()
}

// RingFast implements the fast-mode amortized wake-up rule. depthHint is
// pending_after_dequeue (or pending_after/count_hint when count_hint >
// 1); it is capped at MaxDepth before being used as the burst size.
// Returns the number of bytes actually written (0 when a previous burst
// is still being drained).
func (d *Doorbell) RingFast(depthHint int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dsem > 1 {
		d.dsem--
		return 0, nil
	}
	depth := depthHint
	if depth > MaxDepth {
		depth = MaxDepth
	}
	if depth <= 0 {
		d.dsem = 0
		return 0, nil
	}
	burst := make([]byte, depth)
	for i := range burst {
		burst[i] = 1
	}
	if _, err := d.conn.Write(burst); err != nil {
		return 0, err
	}
	d.dsem = depth
	return depth, nil
}

// RingBurst writes exactly n wake-up bytes in one uncapped burst. Used
// for the await-threshold release, which — unlike the signal channel's
// fast mode — has no MaxDepth cap: it releases every waiter (asem) in
// one shot. Returns the number of bytes written.
func (d *Doorbell) RingBurst(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	burst := make([]byte, n)
	for i := range burst {
		burst[i] = 1
	}
	if _, err := d.conn.Write(burst); err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the underlying connection and, on the writing side of a
// pair, the peer drain handle.
func (d *Doorbell) Close() error {
	if d.peer != nil {
		d.peer.Close()
	}
	return d.conn.Close()
}
