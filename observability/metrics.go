// Package observability provides the queue-level OpenTelemetry
// instruments layered on top of internal/manager's own per-frame
// duration/count metrics. Where the manager's Dispatcher metrics answer
// "how is the control-plane loop performing", QueueMetrics answers
// "what is happening inside a given queue" — depth, throughput, and
// doorbell traffic — instrument-once-at-construction, in the same shape
// as a request-duration histogram paired with a backlog-size gauge.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QueueMetrics is instrumented once at construction against a Meter,
// the same instrument-once-at-construction pattern the manager
// dispatcher uses for its frame instruments.
type QueueMetrics struct {
	pending       metric.Int64UpDownCounter
	enqueued      metric.Int64Counter
	dequeued      metric.Int64Counter
	doorbellBytes metric.Int64Counter
}

// NewQueueMetrics registers the queue-level instrument set against meter.
func NewQueueMetrics(meter metric.Meter) (*QueueMetrics, error) {
	pending, err := meter.Int64UpDownCounter(
		"hiveq.queue.pending",
		metric.WithDescription("Current number of items pending across all lanes of a queue"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}
	enqueued, err := meter.Int64Counter(
		"hiveq.queue.enqueued",
		metric.WithDescription("Total items enqueued or inserted"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}
	dequeued, err := meter.Int64Counter(
		"hiveq.queue.dequeued",
		metric.WithDescription("Total items dequeued"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}
	doorbellBytes, err := meter.Int64Counter(
		"hiveq.queue.doorbell_bytes",
		metric.WithDescription("Wake-up bytes written to a queue's signal or await channel"),
		metric.WithUnit("{byte}"),
	)
	if err != nil {
		return nil, err
	}
	return &QueueMetrics{pending: pending, enqueued: enqueued, dequeued: dequeued, doorbellBytes: doorbellBytes}, nil
}

// laneAttr renders a normal-lane enqueue as lane="normal" and a
// priority-lane enqueue as lane="<level>".
func laneAttr(lane string) attribute.KeyValue {
	return attribute.String("lane", lane)
}

// RecordEnqueue records n items landing in lane on queueID.
func (m *QueueMetrics) RecordEnqueue(ctx context.Context, queueID uint64, lane string, n int64) {
	if m == nil || n == 0 {
		return
	}
	attrs := metric.WithAttributes(attribute.Int64("queue_id", int64(queueID)), laneAttr(lane))
	m.enqueued.Add(ctx, n, attrs)
	m.pending.Add(ctx, n, attrs)
}

// RecordDequeue records n items leaving queueID (lane is best-effort —
// a multi-item dequeue can span lanes, so callers pass "mixed" when
// that happens).
func (m *QueueMetrics) RecordDequeue(ctx context.Context, queueID uint64, lane string, n int64) {
	if m == nil || n == 0 {
		return
	}
	attrs := metric.WithAttributes(attribute.Int64("queue_id", int64(queueID)), laneAttr(lane))
	m.dequeued.Add(ctx, n, attrs)
	m.pending.Add(ctx, -n, attrs)
}

// RecordDoorbellBytes records n wake-up bytes written to queueID's named
// channel ("signal" or "await").
func (m *QueueMetrics) RecordDoorbellBytes(ctx context.Context, queueID uint64, channel string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	attrs := metric.WithAttributes(attribute.Int64("queue_id", int64(queueID)), attribute.String("channel", channel))
	m.doorbellBytes.Add(ctx, n, attrs)
}
