package workerclient

import (
	"context"
	"net"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/hiveq/hiveq/internal/manager"
	"github.com/hiveq/hiveq/internal/queuecore"
)

// setupProxy wires a Proxy to a real manager.Dispatcher over a net.Pipe,
// mirroring the manager package's own dispatcher round-trip tests.
func setupProxy(t *testing.T, cfg manager.Config) (*Proxy, func()) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	registry := manager.NewRegistry(nil)
	dispatcher := manager.NewDispatcher(registry, nil, mp.Meter("test"))

	id, signal, await, err := registry.CreateQueue(cfg)
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}

	server, client := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	go dispatcher.Serve(ctx, server)

	p := NewProxy(id, 1, client, signal, await)
	return p, func() {
		cancel()
		client.Close()
	}
}

func withTimeout(t *testing.T, d time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), d)
}

func TestProxyEnqueueDequeueScalar(t *testing.T) {
	t.Parallel()

	p, cleanup := setupProxy(t, manager.Config{Type: queuecore.FIFO, Order: queuecore.HIGHEST})
	defer cleanup()

	if err := p.Enqueue([]queuecore.Item{{Payload: []byte("hello")}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	ctx, cancel := withTimeout(t, 2*time.Second)
	defer cancel()
	items, found, err := p.Dequeue(ctx, 1)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if !found[0] || string(items[0].Payload) != "hello" {
		t.Fatalf("items = %+v found = %v, want hello/true", items, found)
	}
}

func TestProxyEnqueueMultiItem(t *testing.T) {
	t.Parallel()

	p, cleanup := setupProxy(t, manager.Config{Type: queuecore.FIFO, Order: queuecore.HIGHEST})
	defer cleanup()

	err := p.Enqueue([]queuecore.Item{
		{Payload: []byte("a")},
		{Payload: []byte("b")},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	ctx, cancel := withTimeout(t, 2*time.Second)
	defer cancel()
	items, found, err := p.Dequeue(ctx, 2)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if !found[0] || !found[1] || string(items[0].Payload) != "a" || string(items[1].Payload) != "b" {
		t.Fatalf("items = %+v found = %v, want [a b]/[true true]", items, found)
	}
}

func TestProxyPriorityEnqueueAndHeapSnapshot(t *testing.T) {
	t.Parallel()

	p, cleanup := setupProxy(t, manager.Config{Type: queuecore.FIFO, Order: queuecore.HIGHEST})
	defer cleanup()

	if err := p.EnqueuePriority(5, []queuecore.Item{{Payload: []byte("hot")}}); err != nil {
		t.Fatalf("EnqueuePriority: %v", err)
	}

	levels, err := p.HeapSnapshot()
	if err != nil {
		t.Fatalf("HeapSnapshot: %v", err)
	}
	if len(levels) != 1 || levels[0] != 5 {
		t.Fatalf("levels = %v, want [5]", levels)
	}

	level, ok, err := p.PeekHeap(0)
	if err != nil {
		t.Fatalf("PeekHeap: %v", err)
	}
	if !ok || level != 5 {
		t.Fatalf("PeekHeap = %d, %v, want 5, true", level, ok)
	}

	item, ok, err := p.PeekPriority(5, 0)
	if err != nil {
		t.Fatalf("PeekPriority: %v", err)
	}
	if !ok || string(item.Payload) != "hot" {
		t.Fatalf("PeekPriority = %+v, %v, want hot/true", item, ok)
	}
}

func TestProxyPendingAndClear(t *testing.T) {
	t.Parallel()

	p, cleanup := setupProxy(t, manager.Config{Type: queuecore.FIFO, Order: queuecore.HIGHEST})
	defer cleanup()

	if err := p.Enqueue([]queuecore.Item{{Payload: []byte("x")}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	pending, err := p.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if pending != 1 {
		t.Fatalf("Pending = %d, want 1", pending)
	}

	if err := p.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	pending, err = p.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if pending != 0 {
		t.Fatalf("Pending after Clear = %d, want 0", pending)
	}
}

func TestWaitOrDetachRunsAfterOnLateSuccess(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	afterCalled := make(chan error, 1)

	cancel() // ctx is already done before wait ever gets a chance to win
	err := waitOrDetach(ctx, func() error {
		<-release
		return nil
	}, func(waitErr error) {
		afterCalled <- waitErr
	})
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	close(release)
	select {
	case waitErr := <-afterCalled:
		if waitErr != nil {
			t.Fatalf("after called with %v, want nil", waitErr)
		}
	case <-time.After(time.Second):
		t.Fatal("after was never invoked once the detached wait succeeded")
	}
}

func TestWaitOrDetachDoesNotCallAfterOnNormalSuccess(t *testing.T) {
	t.Parallel()

	afterCalled := false
	err := waitOrDetach(context.Background(), func() error { return nil }, func(error) {
		afterCalled = true
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if afterCalled {
		t.Fatal("after must not run when wait wins the race normally")
	}
}

func TestProxyClearedQueueBlocksOnDequeue(t *testing.T) {
	t.Parallel()

	p, cleanup := setupProxy(t, manager.Config{Type: queuecore.FIFO, Order: queuecore.HIGHEST})
	defer cleanup()

	if err := p.Enqueue([]queuecore.Item{{Payload: []byte("x")}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := p.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	// A blocking dequeue against a cleared queue must actually block,
	// not wake instantly on the doorbell byte the enqueue rang before
	// Clear ran.
	ctx, cancel := withTimeout(t, 150*time.Millisecond)
	defer cancel()
	_, found, err := p.Dequeue(ctx, 1)
	if err == nil && found[0] {
		t.Fatal("Dequeue returned an item from a queue that was cleared before it was read")
	}
	if err != context.DeadlineExceeded {
		t.Fatalf("Dequeue err = %v, want context.DeadlineExceeded (i.e. it genuinely blocked)", err)
	}
}

func TestProxyDequeueNBAbsentOnEmpty(t *testing.T) {
	t.Parallel()

	p, cleanup := setupProxy(t, manager.Config{Type: queuecore.FIFO, Order: queuecore.HIGHEST})
	defer cleanup()

	items, found, err := p.DequeueNB(1)
	if err != nil {
		t.Fatalf("DequeueNB: %v", err)
	}
	if found[0] || items[0].Payload != nil {
		t.Fatalf("items = %+v found = %v, want empty/false", items, found)
	}
}

func TestProxyInsert(t *testing.T) {
	t.Parallel()

	p, cleanup := setupProxy(t, manager.Config{Type: queuecore.FIFO, Order: queuecore.HIGHEST})
	defer cleanup()

	if err := p.Enqueue([]queuecore.Item{{Payload: []byte("tail")}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := p.Insert(0, queuecore.Item{Payload: []byte("head")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	item, ok, err := p.Peek(0)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if !ok || string(item.Payload) != "head" {
		t.Fatalf("Peek(0) = %+v, %v, want head/true", item, ok)
	}
}

func TestProxyAwaitReleasesAtThreshold(t *testing.T) {
	t.Parallel()

	p, cleanup := setupProxy(t, manager.Config{Type: queuecore.FIFO, Order: queuecore.HIGHEST, AwaitEnabled: true})
	defer cleanup()

	if err := p.Enqueue([]queuecore.Item{{Payload: []byte("a")}, {Payload: []byte("b")}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		ctx, cancel := withTimeout(t, 2*time.Second)
		defer cancel()
		done <- p.Await(ctx, 0)
	}()

	time.Sleep(20 * time.Millisecond)
	ctx, cancel := withTimeout(t, 2*time.Second)
	defer cancel()
	if _, _, err := p.Dequeue(ctx, 2); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Await: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Await never released after threshold satisfied")
	}
}

func TestProxyAwaitDisabledDoesNotHang(t *testing.T) {
	t.Parallel()

	p, cleanup := setupProxy(t, manager.Config{Type: queuecore.FIFO, Order: queuecore.HIGHEST})
	defer cleanup()

	ctx, cancel := withTimeout(t, 200*time.Millisecond)
	defer cancel()
	err := p.Await(ctx, 0)
	if err == nil {
		t.Fatal("expected an error awaiting on a queue with no await channel")
	}
}
