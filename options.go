package hiveq

import (
	"errors"
	"log/slog"
	"net"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/hiveq/hiveq/internal/doorbell"
	"github.com/hiveq/hiveq/internal/queuecore"
)

// Lane discipline, spelled out under two names each, and priority order:
// FIFO/LIFO describe dequeue-from-head-or-tail behavior directly,
// LILO/FILO name the same constants the way a stack or queue textbook
// would.
const (
	LIFO = queuecore.LIFO
	FIFO = queuecore.FIFO
	LILO = queuecore.FIFO
	FILO = queuecore.LIFO

	HIGHEST = queuecore.HIGHEST
	LOWEST  = queuecore.LOWEST
)

// MaxDequeueDepth is the fast-mode wake-up burst cap.
const MaxDequeueDepth = doorbell.MaxDepth

// Config configures a single queue at construction. Config is immutable
// once passed to New; there is no runtime rebinding of mode.
type Config struct {
	Type         queuecore.Type
	PriorityOrder queuecore.Order
	Fast         bool
	AwaitEnabled bool
	Initial      []Item
	Gather       func(Item)

	// Manager, if non-nil, hosts this queue over the wire protocol
	// instead of running it standalone in this process. Conn must also
	// be set: the shared control connection this worker will use to
	// reach Manager.
	Manager *Manager
	Conn    net.Conn
	Channel int

	Logger        *slog.Logger
	MeterProvider metric.MeterProvider
}

// Option mutates a Config under construction.
type Option func(*Config)

// WithQueueType selects FIFO or LIFO lane discipline.
func WithQueueType(t queuecore.Type) Option {
	return func(c *Config) { c.Type = t }
}

// WithPriorityOrder selects HIGHEST or LOWEST priority drain order.
func WithPriorityOrder(o queuecore.Order) Option {
	return func(c *Config) { c.PriorityOrder = o }
}

// WithFast enables the amortized wake-up regime, at the cost of
// disallowing Clear and DequeueNB.
func WithFast(fast bool) Option {
	return func(c *Config) { c.Fast = fast }
}

// WithAwait enables the await/threshold semaphore.
func WithAwait(enabled bool) Option {
	return func(c *Config) { c.AwaitEnabled = enabled }
}

// WithInitialItems preloads the normal lane at construction.
func WithInitialItems(items ...Item) Option {
	return func(c *Config) { c.Initial = items }
}

// WithGather installs a hook that diverts every normal-lane Enqueue to
// fn instead of appending to the lane. New installs it on standalone and
// manager-hosted queues alike.
func WithGather(fn func(Item)) Option {
	return func(c *Config) { c.Gather = fn }
}

// WithManager hosts the queue on m instead of running it standalone,
// reaching it over conn on the given channel number.
func WithManager(m *Manager, conn net.Conn, channel int) Option {
	return func(c *Config) { c.Manager = m; c.Conn = conn; c.Channel = channel }
}

// WithLogger sets Config.Logger. New does not read it: a manager-hosted
// queue logs through the logger given to NewManager, and a standalone
// queue does not log.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithMeterProvider sets Config.MeterProvider. New does not read it: a
// manager-hosted queue records metrics through the provider given to
// NewManager, and a standalone queue records none.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Config) { c.MeterProvider = mp }
}

var defaultsMu sync.Mutex

var defaults = Config{
	Type:          FIFO,
	PriorityOrder: HIGHEST,
	AwaitEnabled:  false,
	Fast:          false,
}

// DefaultConfig returns a copy of the process-wide default configuration,
// as most recently set by SetDefaults.
func DefaultConfig() Config {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	return defaults
}

// SetDefaults changes the process-wide baseline that DefaultConfig (and
// therefore New, absent overriding Options) returns. It may be called at
// any time but fails fast on an invalid combination rather than silently
// keeping the prior defaults.
func SetDefaults(opts ...Option) error {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	defaultsMu.Lock()
	defaults = cfg
	defaultsMu.Unlock()
	return nil
}

func validateConfig(cfg Config) error {
	if cfg.Type != FIFO && cfg.Type != LIFO {
		return errors.Join(ErrBadArgument, errors.New("hiveq: queue type must be FIFO or LIFO"))
	}
	if cfg.PriorityOrder != HIGHEST && cfg.PriorityOrder != LOWEST {
		return errors.Join(ErrBadArgument, errors.New("hiveq: priority order must be HIGHEST or LOWEST"))
	}
	return nil
}
