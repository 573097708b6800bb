package hiveq

import (
	"context"
	"fmt"

	"github.com/hiveq/hiveq/internal/queuecore"
	"github.com/hiveq/hiveq/internal/workerclient"
)

// Queue is the operation set every worker drives, regardless of whether
// it is backed by a local queuecore.Core (standalone mode) or a
// workerclient.Proxy talking to a Manager over the wire protocol
// (manager-hosted mode). New picks the implementation once at
// construction; there is no runtime rebinding between the two.
type Queue interface {
	Enqueue(items []Item) error
	EnqueuePriority(priority int, items []Item) error
	Insert(index int, item Item) error
	InsertPriority(priority, index int, item Item) error

	Dequeue(ctx context.Context, count int) (items []Item, found []bool, err error)
	DequeueNB(count int) (items []Item, found []bool, err error)

	Peek(index int) (Item, bool, error)
	PeekPriority(priority, index int) (Item, bool, error)
	PeekHeap(index int) (level int, ok bool, err error)
	HeapSnapshot() ([]int, error)

	Pending() (int, error)
	Clear() error

	Await(ctx context.Context, threshold int) error

	Close() error
}

// New builds a Queue from cfg, applying opts on top of DefaultConfig.
// Setting WithManager makes it manager-hosted; otherwise the queue runs
// standalone with zero I/O. Mode is fixed at construction; there is no
// runtime rebinding between the two.
func New(opts ...Option) (Queue, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.Manager != nil {
		if cfg.Conn == nil {
			return nil, fmt.Errorf("%w: manager-hosted queue requires WithManager's conn argument", ErrBadArgument)
		}
		return cfg.Manager.createQueue(cfg, cfg.Channel, cfg.Conn)
	}

	core := queuecore.New(cfg.Type, cfg.PriorityOrder, cfg.Initial...)
	if cfg.Gather != nil {
		core.SetGather(cfg.Gather)
	}
	return workerclient.NewStandalone(core, cfg.AwaitEnabled, cfg.Fast), nil
}
