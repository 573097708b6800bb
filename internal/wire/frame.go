// Package wire implements the length-prefixed, opcode-tagged framing used
// on the shared control socket between workers and a manager. It carries
// opaque bytes only: serialization of structured values happens above
// this package, in the hiveq package's Freezer/Thawer hook.
package wire

import "fmt"

// Opcode is the fixed 5-character ASCII tag that opens every request
// frame.
type Opcode string

const (
	OpAwait                 Opcode = "W~QUE"
	OpClear                 Opcode = "C~QUE"
	OpEnqueueArray          Opcode = "A~QUE"
	OpEnqueueArrayPriority  Opcode = "A~QUP"
	OpEnqueueScalar         Opcode = "S~QUE"
	OpEnqueueScalarPriority Opcode = "S~QUP"
	OpDequeue               Opcode = "D~QUE"
	OpDequeueNB             Opcode = "D~QUN"
	OpPending               Opcode = "N~QUE"
	OpInsert                Opcode = "I~QUE"
	OpInsertPriority        Opcode = "I~QUP"
	OpPeek                  Opcode = "P~QUE"
	OpPeekPriority          Opcode = "P~QUP"
	OpPeekHeap              Opcode = "P~QUH"
	OpHeapSnapshot          Opcode = "H~QUE"
)

// RespShape describes how a manager replies to a given opcode.
type RespShape int

const (
	RespNone RespShape = iota
	RespSync
	RespDecimal
	RespItem      // -1 or len+payload+marker
	RespLevel     // -1 or len+payload, no marker (a bare decimal level)
	RespRawAlways // len+payload, no marker, never -1 (heap snapshot)
)

// opSpec describes a request opcode's wire shape: how many plain decimal
// fields precede any payload (id counts as one), whether the request
// itself carries a length-prefixed payload, whether that payload carries
// a trailing scalar/reference marker, and the shape of the response.
type opSpec struct {
	numFields  int
	reqPayload bool
	reqMarker  bool
	resp       RespShape
}

var specs = map[Opcode]opSpec{
	OpAwait:                 {numFields: 2, resp: RespNone},
	OpClear:                 {numFields: 1, resp: RespSync},
	OpEnqueueArray:          {numFields: 1, reqPayload: true, reqMarker: true, resp: RespNone},
	OpEnqueueArrayPriority:  {numFields: 2, reqPayload: true, reqMarker: true, resp: RespNone},
	OpEnqueueScalar:         {numFields: 1, reqPayload: true, reqMarker: false, resp: RespNone},
	OpEnqueueScalarPriority: {numFields: 2, reqPayload: true, reqMarker: false, resp: RespNone},
	OpDequeue:               {numFields: 2, resp: RespItem},
	OpDequeueNB:             {numFields: 2, resp: RespItem},
	OpPending:               {numFields: 1, resp: RespDecimal},
	OpInsert:                {numFields: 2, reqPayload: true, reqMarker: true, resp: RespNone},
	OpInsertPriority:        {numFields: 3, reqPayload: true, reqMarker: true, resp: RespNone},
	OpPeek:                  {numFields: 2, resp: RespItem},
	OpPeekPriority:          {numFields: 3, resp: RespItem},
	OpPeekHeap:              {numFields: 2, resp: RespLevel},
	OpHeapSnapshot:          {numFields: 1, resp: RespRawAlways},
}

// spec looks up the wire shape for op, returning a *FramingError if op is
// not a recognized opcode.
func spec(op Opcode) (opSpec, error) {
	s, ok := specs[op]
	if !ok {
		return opSpec{}, &FramingError{Code: "bad_opcode", Message: fmt.Sprintf("unrecognized opcode %q", string(op))}
	}
	return s, nil
}

// FramingError reports a malformed frame: a wire-level violation,
// distinct from a queue-level user error.
type FramingError struct {
	Code    string
	Message string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("wire: %s: %s", e.Code, e.Message)
}
