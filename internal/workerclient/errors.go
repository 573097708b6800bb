package workerclient

import "errors"

// ErrAwaitDisabled is returned by Await when the queue was not
// constructed with await enabled.
var ErrAwaitDisabled = errors.New("workerclient: await on a queue without await enabled")

// ErrModeViolation is returned by Clear and DequeueNB on a fast-mode
// queue: fast mode trades the doorbell's synchronous invariants for
// throughput, and both operations depend on those invariants.
var ErrModeViolation = errors.New("workerclient: mode violation")
