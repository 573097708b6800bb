package hiveq

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hiveq/hiveq/internal/queuecore"
)

// Item is the tagged union carried by every lane: either a raw scalar
// byte string (Frozen == false) or a pre-frozen structured blob
// (Frozen == true), mirroring the wire's has-ref marker byte.
type Item = queuecore.Item

// Freezer serializes a Go value into the opaque bytes a queue carries.
// A caller may plug in any serializer; EnqueueValue uses whichever
// Freezer it is given, defaulting to DefaultCodec.
type Freezer interface {
	Freeze(v any) ([]byte, error)
}

// Thawer is the inverse of Freezer, deserializing a queue payload back
// into a Go value.
type Thawer interface {
	Thaw(data []byte, v any) error
}

// Codec is both a Freezer and a Thawer.
type Codec interface {
	Freezer
	Thawer
}

// msgpackCodec is the default Codec.
type msgpackCodec struct{}

func (msgpackCodec) Freeze(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackCodec) Thaw(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

// DefaultCodec is the msgpack-backed Codec used by EnqueueValue and
// ThawInto when no other Codec is supplied.
var DefaultCodec Codec = msgpackCodec{}

// EnqueueValue freezes v with codec (DefaultCodec if nil) and enqueues
// it as a single frozen item.
func EnqueueValue(q Queue, codec Freezer, v any) error {
	if codec == nil {
		codec = DefaultCodec
	}
	data, err := codec.Freeze(v)
	if err != nil {
		return err
	}
	return q.Enqueue([]Item{{Payload: data, Frozen: true}})
}

// ThawInto thaws item's payload into out using codec (DefaultCodec if
// nil). It is a no-op check away from the raw Item.Payload access a
// caller can always fall back to for non-frozen scalar values.
func ThawInto(codec Thawer, item Item, out any) error {
	if codec == nil {
		codec = DefaultCodec
	}
	return codec.Thaw(item.Payload, out)
}
