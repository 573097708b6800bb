package manager

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"runtime/debug"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hiveq/hiveq/internal/queuecore"
	"github.com/hiveq/hiveq/internal/wire"
)

// meterName is the instrumentation scope name for hiveq manager metrics.
const meterName = "github.com/hiveq/hiveq/internal/manager"

// Dispatcher serves a single-threaded, frame-at-a-time control socket.
// One Dispatcher may (and typically does) serve many connections, each
// on its own goroutine, but a given connection's frames are always
// processed strictly in arrival order.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger

	frames   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewDispatcher builds a Dispatcher, instrumenting it against meter once
// at construction.
func NewDispatcher(registry *Registry, logger *slog.Logger, meter metric.Meter) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	duration, err := meter.Float64Histogram(
		"hiveq.manager.frame.duration",
		metric.WithDescription("Duration of manager frame handling in seconds"),
		metric.WithUnit("s"),
	)
	_ = err // noop fallback guaranteed by the OTel API contract

	frames, err := meter.Int64Counter(
		"hiveq.manager.frame.count",
		metric.WithDescription("Total number of frames handled"),
		metric.WithUnit("{frame}"),
	)
	_ = err

	return &Dispatcher{registry: registry, logger: logger, duration: duration, frames: frames}
}

// Serve reads and dispatches frames from conn until it errors, the peer
// closes the connection, or ctx is done.
func (d *Dispatcher) Serve(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	br := bufio.NewReader(conn)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		req, err := wire.DecodeRequest(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		d.dispatch(conn, req)
	}
}

// dispatch handles one frame, recovering from any panic in the handler
// chain and recording duration/count metrics.
func (d *Dispatcher) dispatch(w io.Writer, req *wire.Request) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("manager frame handler panicked",
				slog.String("opcode", string(req.Opcode)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	start := time.Now()
	err := d.handle(w, req)
	status := "ok"
	if err != nil {
		status = "error"
		d.logger.Warn("frame handling failed",
			slog.String("opcode", string(req.Opcode)),
			slog.Int("channel", req.Channel),
			slog.String("error", err.Error()),
		)
	}

	attrs := metric.WithAttributes(
		attribute.String("opcode", string(req.Opcode)),
		attribute.String("status", status),
	)
	ctx := context.Background()
	d.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	d.frames.Add(ctx, 1, attrs)
}

func (d *Dispatcher) handle(w io.Writer, req *wire.Request) error {
	if len(req.Fields) == 0 {
		return errors.New("manager: request carries no queue id field")
	}
	id := uint64(req.Fields[0])
	q, ok := d.registry.Get(id)
	if !ok {
		return ErrUnknownQueue
	}

	switch req.Opcode {
	case wire.OpAwait:
		threshold := int(req.Fields[1])
		if err := q.Await(threshold); err != nil {
			d.logger.Warn("await on non-await-enabled queue", slog.Uint64("queue_id", id))
		}
		return nil

	case wire.OpClear:
		if err := q.Clear(); err != nil {
			d.logger.Warn("clear under fast mode ignored", slog.Uint64("queue_id", id))
		}
		return wire.EncodeResponse(w, wire.RespSync, &wire.Response{Sync: true})

	case wire.OpEnqueueArray:
		items, err := decodeItemSequence(req.Payload)
		if err != nil {
			return err
		}
		q.Enqueue(items)
		return nil

	case wire.OpEnqueueArrayPriority:
		p := int(req.Fields[1])
		items, err := decodeItemSequence(req.Payload)
		if err != nil {
			return err
		}
		q.EnqueuePriority(p, items)
		return nil

	case wire.OpEnqueueScalar:
		q.Enqueue([]queuecore.Item{{Payload: req.Payload, Frozen: req.Frozen}})
		return nil

	case wire.OpEnqueueScalarPriority:
		p := int(req.Fields[1])
		q.EnqueuePriority(p, []queuecore.Item{{Payload: req.Payload, Frozen: req.Frozen}})
		return nil

	case wire.OpDequeue, wire.OpDequeueNB:
		count := int(req.Fields[1])
		blocking := req.Opcode == wire.OpDequeue
		return d.handleDequeue(w, q, count, blocking)

	case wire.OpPending:
		return wire.EncodeResponse(w, wire.RespDecimal, &wire.Response{Decimal: int64(q.Pending()), HasDecimal: true})

	case wire.OpInsert:
		index := int(req.Fields[1])
		q.Insert(index, []queuecore.Item{{Payload: req.Payload, Frozen: req.Frozen}})
		return nil

	case wire.OpInsertPriority:
		p := int(req.Fields[1])
		index := int(req.Fields[2])
		q.InsertPriority(p, index, []queuecore.Item{{Payload: req.Payload, Frozen: req.Frozen}})
		return nil

	case wire.OpPeek:
		index := int(req.Fields[1])
		item, ok := q.Peek(index)
		return writeItemResponse(w, item, ok)

	case wire.OpPeekPriority:
		p := int(req.Fields[1])
		index := int(req.Fields[2])
		item, ok := q.PeekPriority(p, index)
		return writeItemResponse(w, item, ok)

	case wire.OpPeekHeap:
		index := int(req.Fields[1])
		level, ok := q.PeekHeap(index)
		if !ok {
			return wire.EncodeResponse(w, wire.RespLevel, &wire.Response{Absent: true})
		}
		return wire.EncodeResponse(w, wire.RespLevel, &wire.Response{
			Payload: []byte(strconv.Itoa(level)),
		})

	case wire.OpHeapSnapshot:
		payload, err := encodeLevelSequence(q.HeapSnapshot())
		if err != nil {
			return err
		}
		return wire.EncodeResponse(w, wire.RespRawAlways, &wire.Response{Payload: payload})

	default:
		return &wire.FramingError{Code: "bad_opcode", Message: "dispatcher: unhandled opcode " + string(req.Opcode)}
	}
}

func (d *Dispatcher) handleDequeue(w io.Writer, q *ManagedQueue, count int, blocking bool) error {
	items, found, err := q.DequeueN(count, blocking)
	if err != nil {
		if errors.Is(err, ErrModeViolation) {
			d.logger.Warn("dequeue_nb under fast mode ignored")
			return wire.EncodeResponse(w, wire.RespItem, &wire.Response{Absent: true})
		}
		return err
	}

	present := make([]queuecore.Item, 0, len(items))
	for i, it := range items {
		if found[i] {
			present = append(present, it)
		}
	}
	if len(present) == 0 {
		return wire.EncodeResponse(w, wire.RespItem, &wire.Response{Absent: true})
	}
	if count == 1 {
		return writeItemResponse(w, present[0], true)
	}
	payload, err := encodeItemSequence(present)
	if err != nil {
		return err
	}
	return wire.EncodeResponse(w, wire.RespItem, &wire.Response{Payload: payload, Frozen: true})
}

func writeItemResponse(w io.Writer, item queuecore.Item, ok bool) error {
	if !ok {
		return wire.EncodeResponse(w, wire.RespItem, &wire.Response{Absent: true})
	}
	return wire.EncodeResponse(w, wire.RespItem, &wire.Response{Payload: item.Payload, Frozen: item.Frozen})
}
