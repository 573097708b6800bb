package workerclient

import (
	"bufio"
	"context"
	"net"
	"sync"

	"github.com/hiveq/hiveq/internal/doorbell"
	"github.com/hiveq/hiveq/internal/queuecore"
	"github.com/hiveq/hiveq/internal/wire"
)

// Proxy drives a queue hosted by a remote manager. A worker serializes
// access to the shared control socket under a channel-wide lock,
// acquired before the request header write and released only after the
// response payload read; for blocking dequeue, the worker first reads
// one byte from the signal channel outside the lock, then issues D~QUE
// under the lock.
type Proxy struct {
	id      uint64
	channel int

	mu   sync.Mutex
	conn net.Conn
	br   *bufio.Reader

	signal *doorbell.Doorbell
	await  *doorbell.Doorbell
}

// NewProxy wraps conn (the shared control socket) for queue id, using
// signal/await as this queue's worker-facing doorbell ends.
func NewProxy(id uint64, channel int, conn net.Conn, signal, await *doorbell.Doorbell) *Proxy {
	return &Proxy{id: id, channel: channel, conn: conn, br: bufio.NewReader(conn), signal: signal, await: await}
}

func (p *Proxy) sendRecv(req *wire.Request, shape wire.RespShape) (*wire.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := req.Encode(p.conn); err != nil {
		return nil, err
	}
	if shape == wire.RespNone {
		return nil, nil
	}
	return wire.DecodeResponse(p.br, shape)
}

func (p *Proxy) Enqueue(items []queuecore.Item) error {
	if len(items) == 1 && !items[0].Frozen {
		_, err := p.sendRecv(&wire.Request{
			Opcode: wire.OpEnqueueScalar, Channel: p.channel, Fields: []int64{int64(p.id)},
			HasPayload: true, Payload: items[0].Payload,
		}, wire.RespNone)
		return err
	}
	payload, err := encodeSequence(items)
	if err != nil {
		return err
	}
	_, err = p.sendRecv(&wire.Request{
		Opcode: wire.OpEnqueueArray, Channel: p.channel, Fields: []int64{int64(p.id)},
		HasPayload: true, Payload: payload, Frozen: true,
	}, wire.RespNone)
	return err
}

func (p *Proxy) EnqueuePriority(priority int, items []queuecore.Item) error {
	if len(items) == 1 && !items[0].Frozen {
		_, err := p.sendRecv(&wire.Request{
			Opcode: wire.OpEnqueueScalarPriority, Channel: p.channel, Fields: []int64{int64(p.id), int64(priority)},
			HasPayload: true, Payload: items[0].Payload,
		}, wire.RespNone)
		return err
	}
	payload, err := encodeSequence(items)
	if err != nil {
		return err
	}
	_, err = p.sendRecv(&wire.Request{
		Opcode: wire.OpEnqueueArrayPriority, Channel: p.channel, Fields: []int64{int64(p.id), int64(priority)},
		HasPayload: true, Payload: payload, Frozen: true,
	}, wire.RespNone)
	return err
}

func (p *Proxy) Insert(index int, item queuecore.Item) error {
	_, err := p.sendRecv(&wire.Request{
		Opcode: wire.OpInsert, Channel: p.channel, Fields: []int64{int64(p.id), int64(index)},
		HasPayload: true, Payload: item.Payload, Frozen: item.Frozen,
	}, wire.RespNone)
	return err
}

func (p *Proxy) InsertPriority(priority, index int, item queuecore.Item) error {
	_, err := p.sendRecv(&wire.Request{
		Opcode: wire.OpInsertPriority, Channel: p.channel, Fields: []int64{int64(p.id), int64(priority), int64(index)},
		HasPayload: true, Payload: item.Payload, Frozen: item.Frozen,
	}, wire.RespNone)
	return err
}

// waitOrDetach races wait against ctx. If ctx wins, wait is left
// running in the background and after is invoked with its eventual
// outcome once it completes, decoupled from ctx entirely: this is what
// lets a caller who already gave up still react to a wake-up byte
// consumed just after the deadline, instead of the byte's read
// silently racing the ctx-done branch and vanishing into an unread
// result whichever way the select happens to land.
func waitOrDetach(ctx context.Context, wait func() error, after func(error)) error {
	waitErr := make(chan error, 1)
	go func() { waitErr <- wait() }()
	select {
	case err := <-waitErr:
		return err
	case <-ctxDone(ctx):
		go func() { after(<-waitErr) }()
		return ctx.Err()
	}
}

// Dequeue performs a blocking dequeue: it first waits on the signal
// doorbell outside the channel lock, then issues D~QUE under the lock.
func (p *Proxy) Dequeue(ctx context.Context, count int) ([]queuecore.Item, []bool, error) {
	err := waitOrDetach(ctx, p.signal.Wait, func(waitErr error) {
		if waitErr != nil {
			return
		}
		// The byte was consumed after our caller already gave up. It
		// must still be paired with a D~QUE — the manager's dequeue
		// bookkeeping (MarkConsumed, the post-dequeue hand-off ring)
		// only runs when that request arrives, so dropping it here would
		// strand the manager believing a wake-up is still outstanding.
		p.sendRecv(&wire.Request{
			Opcode: wire.OpDequeue, Channel: p.channel, Fields: []int64{int64(p.id), int64(count)},
		}, wire.RespItem)
	})
	if err != nil {
		return nil, nil, err
	}

	resp, err := p.sendRecv(&wire.Request{
		Opcode: wire.OpDequeue, Channel: p.channel, Fields: []int64{int64(p.id), int64(count)},
	}, wire.RespItem)
	if err != nil {
		return nil, nil, err
	}
	return decodeDequeueResponse(resp, count)
}

// DequeueNB performs a non-blocking dequeue: no signal-byte wait.
func (p *Proxy) DequeueNB(count int) ([]queuecore.Item, []bool, error) {
	resp, err := p.sendRecv(&wire.Request{
		Opcode: wire.OpDequeueNB, Channel: p.channel, Fields: []int64{int64(p.id), int64(count)},
	}, wire.RespItem)
	if err != nil {
		return nil, nil, err
	}
	return decodeDequeueResponse(resp, count)
}

func decodeDequeueResponse(resp *wire.Response, count int) ([]queuecore.Item, []bool, error) {
	if resp.Absent {
		return make([]queuecore.Item, count), make([]bool, count), nil
	}
	if count == 1 {
		return []queuecore.Item{{Payload: resp.Payload, Frozen: resp.Frozen}}, []bool{true}, nil
	}
	items, err := decodeSequence(resp.Payload)
	if err != nil {
		return nil, nil, err
	}
	found := make([]bool, count)
	out := make([]queuecore.Item, count)
	for i := range out {
		if i < len(items) {
			out[i] = items[i]
			found[i] = true
		}
	}
	return out, found, nil
}

func (p *Proxy) Peek(index int) (queuecore.Item, bool, error) {
	resp, err := p.sendRecv(&wire.Request{
		Opcode: wire.OpPeek, Channel: p.channel, Fields: []int64{int64(p.id), int64(index)},
	}, wire.RespItem)
	if err != nil {
		return queuecore.Item{}, false, err
	}
	if resp.Absent {
		return queuecore.Item{}, false, nil
	}
	return queuecore.Item{Payload: resp.Payload, Frozen: resp.Frozen}, true, nil
}

func (p *Proxy) PeekPriority(priority, index int) (queuecore.Item, bool, error) {
	resp, err := p.sendRecv(&wire.Request{
		Opcode: wire.OpPeekPriority, Channel: p.channel, Fields: []int64{int64(p.id), int64(priority), int64(index)},
	}, wire.RespItem)
	if err != nil {
		return queuecore.Item{}, false, err
	}
	if resp.Absent {
		return queuecore.Item{}, false, nil
	}
	return queuecore.Item{Payload: resp.Payload, Frozen: resp.Frozen}, true, nil
}

func (p *Proxy) PeekHeap(index int) (int, bool, error) {
	resp, err := p.sendRecv(&wire.Request{
		Opcode: wire.OpPeekHeap, Channel: p.channel, Fields: []int64{int64(p.id), int64(index)},
	}, wire.RespLevel)
	if err != nil {
		return 0, false, err
	}
	if resp.Absent {
		return 0, false, nil
	}
	level, err := parseLevel(resp.Payload)
	return level, true, err
}

func (p *Proxy) HeapSnapshot() ([]int, error) {
	resp, err := p.sendRecv(&wire.Request{
		Opcode: wire.OpHeapSnapshot, Channel: p.channel, Fields: []int64{int64(p.id)},
	}, wire.RespRawAlways)
	if err != nil {
		return nil, err
	}
	return decodeLevelSequence(resp.Payload)
}

func (p *Proxy) Pending() (int, error) {
	resp, err := p.sendRecv(&wire.Request{
		Opcode: wire.OpPending, Channel: p.channel, Fields: []int64{int64(p.id)},
	}, wire.RespDecimal)
	if err != nil {
		return 0, err
	}
	return int(resp.Decimal), nil
}

func (p *Proxy) Clear() error {
	_, err := p.sendRecv(&wire.Request{
		Opcode: wire.OpClear, Channel: p.channel, Fields: []int64{int64(p.id)},
	}, wire.RespSync)
	return err
}

// Await blocks reading one byte from the await channel after telling
// the manager the desired threshold.
func (p *Proxy) Await(ctx context.Context, threshold int) error {
	if p.await == nil {
		return ErrAwaitDisabled
	}
	if _, err := p.sendRecv(&wire.Request{
		Opcode: wire.OpAwait, Channel: p.channel, Fields: []int64{int64(p.id), int64(threshold)},
	}, wire.RespNone); err != nil {
		return err
	}

	return waitOrDetach(ctx, p.await.Wait, func(error) {})
}

// Close releases the doorbell ends this proxy owns. The control
// connection is owned by the caller (it is typically shared across
// many proxies on the same channel) and is not closed here.
func (p *Proxy) Close() error {
	if err := p.signal.Close(); err != nil {
		return err
	}
	if p.await != nil {
		return p.await.Close()
	}
	return nil
}
