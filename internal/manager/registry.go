package manager

import (
	"github.com/hiveq/hiveq/internal/doorbell"
	"github.com/hiveq/hiveq/internal/qid"
	"github.com/hiveq/hiveq/observability"
)

// Registry is the process-global id -> queue map. It is touched only by
// the dispatcher goroutine that owns it, so it needs no mutex.
type Registry struct {
	gen     qid.Generator
	queues  map[uint64]*ManagedQueue
	metrics *observability.QueueMetrics
}

// NewRegistry creates an empty registry. metrics may be nil, in which
// case queue-level instrumentation is skipped.
func NewRegistry(metrics *observability.QueueMetrics) *Registry {
	return &Registry{queues: make(map[uint64]*ManagedQueue), metrics: metrics}
}

// CreateQueue allocates a new managed queue, wires up its signal (and,
// if enabled, await) doorbell pair, and returns the id together with the
// worker-facing doorbell ends. The caller is responsible for handing
// those ends to whatever process or goroutine will run the worker side
// — over a real IPC boundary that would mean passing the underlying
// file descriptor before exec, but constructing that transfer is a
// concern of the process launcher, not the registry.
func (r *Registry) CreateQueue(cfg Config) (id uint64, workerSignal, workerAwait *doorbell.Doorbell, err error) {
	id = uint64(r.gen.New())

	managerSignal, workerSignal, err := doorbell.NewPair(cfg.Fast)
	if err != nil {
		return 0, nil, nil, err
	}

	var managerAwait *doorbell.Doorbell
	if cfg.AwaitEnabled {
		managerAwait, workerAwait, err = doorbell.NewPair(false)
		if err != nil {
			managerSignal.Close()
			workerSignal.Close()
			return 0, nil, nil, err
		}
	}

	r.queues[id] = newManagedQueue(id, cfg, managerSignal, managerAwait, r.metrics)
	return id, workerSignal, workerAwait, nil
}

// Get returns the queue registered under id.
func (r *Registry) Get(id uint64) (*ManagedQueue, bool) {
	q, ok := r.queues[id]
	return q, ok
}

// Destroy removes a queue from the registry and closes its doorbell
// ends, failing any read still pending on them.
func (r *Registry) Destroy(id uint64) {
	q, ok := r.queues[id]
	if !ok {
		return
	}
	delete(r.queues, id)
	q.signal.Close()
	if q.await != nil {
		q.await.Close()
	}
}
