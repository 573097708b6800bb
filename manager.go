package hiveq

import (
	"context"
	"log/slog"
	"net"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	imanager "github.com/hiveq/hiveq/internal/manager"
	"github.com/hiveq/hiveq/internal/workerclient"
	"github.com/hiveq/hiveq/observability"
)

const meterName = "github.com/hiveq/hiveq"

func otelDefaultMeterProvider() metric.MeterProvider {
	return otel.GetMeterProvider()
}

// Manager hosts any number of queues over the wire protocol for any
// number of connected worker processes. One Manager typically backs one
// listening socket; Serve may be called once per accepted connection.
type Manager struct {
	registry   *imanager.Registry
	dispatcher *imanager.Dispatcher
}

// NewManager creates a manager with no queues yet registered.
func NewManager(logger *slog.Logger, meterProvider metric.MeterProvider) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if meterProvider == nil {
		meterProvider = otelDefaultMeterProvider()
	}
	meter := meterProvider.Meter(meterName)
	queueMetrics, err := observability.NewQueueMetrics(meter)
	if err != nil {
		queueMetrics = nil
	}
	registry := imanager.NewRegistry(queueMetrics)
	dispatcher := imanager.NewDispatcher(registry, logger, meter)
	return &Manager{registry: registry, dispatcher: dispatcher}
}

// Serve reads and dispatches frames from conn until the peer disconnects,
// conn errors, or ctx is done. Run it in its own goroutine per accepted
// connection.
func (m *Manager) Serve(ctx context.Context, conn net.Conn) error {
	return m.dispatcher.Serve(ctx, conn)
}

// createQueue registers a new queue against cfg and wires up a
// workerclient.Proxy bound to conn for driving it. It is the manager-mode
// half of New.
func (m *Manager) createQueue(cfg Config, channel int, conn net.Conn) (*workerclient.Proxy, error) {
	id, signal, await, err := m.registry.CreateQueue(imanager.Config{
		Type:         cfg.Type,
		Order:        cfg.PriorityOrder,
		Fast:         cfg.Fast,
		AwaitEnabled: cfg.AwaitEnabled,
		Initial:      cfg.Initial,
		Gather:       cfg.Gather,
	})
	if err != nil {
		return nil, err
	}
	return workerclient.NewProxy(id, channel, conn, signal, await), nil
}

// Destroy removes a queue and closes its doorbell ends.
func (m *Manager) Destroy(id QueueID) {
	m.registry.Destroy(uint64(id))
}
