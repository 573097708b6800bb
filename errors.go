package hiveq

import "errors"

// Error kinds from the failure-handling design: user errors (fail the
// operation, queue state untouched), mode violations (warn, no-op), and
// wire violations (fatal to a single frame, surfaced as *wire.FramingError
// rather than one of these sentinels since they carry a code and message).
var (
	// ErrBadArgument is returned by New and SetDefaults for an invalid
	// option value, and by New for WithManager without a conn.
	ErrBadArgument = errors.New("hiveq: bad argument")

	// ErrModeViolation names the mode-violation error kind. No Queue
	// implementation returns it: a standalone fast queue rejects Clear and
	// DequeueNB with workerclient.ErrModeViolation, Await without
	// WithAwait returns workerclient.ErrAwaitDisabled, and a
	// manager-hosted fast queue logs the violation on the manager and
	// answers Clear with a plain acknowledgement and DequeueNB with an
	// absent result.
	ErrModeViolation = errors.New("hiveq: operation not valid in this queue's mode")

	// ErrUnknownQueue names the unknown-queue-id error kind. It is not
	// returned to a worker: the manager logs and drops a frame that
	// addresses an unknown id, and sends no reply to it.
	ErrUnknownQueue = errors.New("hiveq: unknown queue id")

	// ErrClosed names the closed-queue error kind. No Queue implementation
	// returns it; operations after Close are not rejected by a check of
	// their own.
	ErrClosed = errors.New("hiveq: queue is closed")
)
