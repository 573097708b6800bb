package manager

import "errors"

var (
	// ErrUnknownQueue is returned when a frame names a queue id the
	// registry has never seen (or has since destroyed).
	ErrUnknownQueue = errors.New("manager: unknown queue id")
	// ErrModeViolation covers clear/dequeue_nb under fast=true and await
	// on a queue without await_enabled. The caller should warn and treat
	// the operation as a no-op rather than fail the connection.
	ErrModeViolation = errors.New("manager: mode violation")
	// ErrBadArgument covers integer-shaped arguments that are out of
	// domain for the operation (count < 1 on a dequeue).
	ErrBadArgument = errors.New("manager: bad argument")
)
