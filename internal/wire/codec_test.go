package wire

import (
	"bufio"
	"bytes"
	"io"
	"testing"
)

func TestRequestRoundTripScalarEnqueue(t *testing.T) {
	t.Parallel()

	req := &Request{
		Opcode:     OpEnqueueScalar,
		Channel:    3,
		Fields:     []int64{42},
		HasPayload: true,
		Payload:    []byte("hello"),
	}
	var buf bytes.Buffer
	if err := req.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := DecodeRequest(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if got.Opcode != req.Opcode || got.Channel != req.Channel {
		t.Fatalf("got %+v, want %+v", got, req)
	}
	if len(got.Fields) != 1 || got.Fields[0] != 42 {
		t.Fatalf("Fields = %v, want [42]", got.Fields)
	}
	if !got.HasPayload || string(got.Payload) != "hello" || got.Frozen {
		t.Fatalf("payload = %q frozen=%v, want hello/false", got.Payload, got.Frozen)
	}
}

func TestRequestRoundTripFrozenArrayEnqueue(t *testing.T) {
	t.Parallel()

	req := &Request{
		Opcode:     OpEnqueueArrayPriority,
		Channel:    1,
		Fields:     []int64{7, 5},
		HasPayload: true,
		Payload:    []byte{0x81, 0xa1, 'x'},
		Frozen:     true,
	}
	var buf bytes.Buffer
	if err := req.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := DecodeRequest(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if !got.Frozen {
		t.Error("expected Frozen=true after decode")
	}
	if !bytes.Equal(got.Payload, req.Payload) {
		t.Errorf("payload = %v, want %v", got.Payload, req.Payload)
	}
	if len(got.Fields) != 2 || got.Fields[0] != 7 || got.Fields[1] != 5 {
		t.Errorf("Fields = %v, want [7 5]", got.Fields)
	}
}

func TestRequestRoundTripNoPayload(t *testing.T) {
	t.Parallel()

	req := &Request{Opcode: OpAwait, Channel: 9, Fields: []int64{1, 10}}
	var buf bytes.Buffer
	if err := req.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeRequest(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if got.HasPayload {
		t.Error("await request should not carry a payload")
	}
	if len(got.Fields) != 2 || got.Fields[0] != 1 || got.Fields[1] != 10 {
		t.Errorf("Fields = %v, want [1 10]", got.Fields)
	}
}

func TestResponseRoundTripItemAbsent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := EncodeResponse(&buf, RespItem, &Response{Absent: true}); err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	got, err := DecodeResponse(bufio.NewReader(&buf), RespItem)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if !got.Absent {
		t.Error("expected Absent=true")
	}
}

func TestResponseRoundTripItemPresent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	resp := &Response{Payload: []byte("value"), Frozen: false}
	if err := EncodeResponse(&buf, RespItem, resp); err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	got, err := DecodeResponse(bufio.NewReader(&buf), RespItem)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if got.Absent || string(got.Payload) != "value" || got.Frozen {
		t.Fatalf("got %+v", got)
	}
}

func TestResponseRoundTripDecimal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := EncodeResponse(&buf, RespDecimal, &Response{Decimal: 17}); err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	got, err := DecodeResponse(bufio.NewReader(&buf), RespDecimal)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if got.Decimal != 17 {
		t.Errorf("Decimal = %d, want 17", got.Decimal)
	}
}

func TestResponseRoundTripSync(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := EncodeResponse(&buf, RespSync, &Response{}); err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	got, err := DecodeResponse(bufio.NewReader(&buf), RespSync)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if !got.Sync {
		t.Error("expected Sync=true")
	}
}

func TestResponseRoundTripRawAlways(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	resp := &Response{Payload: []byte{6, 5, 4}}
	if err := EncodeResponse(&buf, RespRawAlways, resp); err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	got, err := DecodeResponse(bufio.NewReader(&buf), RespRawAlways)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if !bytes.Equal(got.Payload, resp.Payload) {
		t.Errorf("Payload = %v, want %v", got.Payload, resp.Payload)
	}
}

func TestDecodeRequestBadOpcode(t *testing.T) {
	t.Parallel()

	br := bufio.NewReader(bytes.NewBufferString("X~BAD\n0\n"))
	if _, err := DecodeRequest(br); err == nil {
		t.Fatal("expected error for unrecognized opcode")
	} else if _, ok := err.(*FramingError); !ok {
		t.Fatalf("error type = %T, want *FramingError", err)
	}
}

func TestDecodeRequestNonIntegerField(t *testing.T) {
	t.Parallel()

	br := bufio.NewReader(bytes.NewBufferString("N~QUE\n0\nnotanumber\n"))
	if _, err := DecodeRequest(br); err == nil {
		t.Fatal("expected error for non-integer field")
	} else if _, ok := err.(*FramingError); !ok {
		t.Fatalf("error type = %T, want *FramingError", err)
	}
}

func TestDecodeRequestTruncatedPayload(t *testing.T) {
	t.Parallel()

	// Declares a 10-byte payload but supplies fewer bytes.
	br := bufio.NewReader(bytes.NewBufferString("S~QUE\n0\n5\n10\nabc"))
	if _, err := DecodeRequest(br); err != io.ErrUnexpectedEOF && err != io.EOF {
		t.Fatalf("expected a short-read error, got %v", err)
	}
}

func TestMultipleFramesOnOneStream(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	first := &Request{Opcode: OpPending, Channel: 0, Fields: []int64{1}}
	second := &Request{Opcode: OpClear, Channel: 0, Fields: []int64{1}}
	if err := first.Encode(&buf); err != nil {
		t.Fatalf("Encode first: %v", err)
	}
	if err := second.Encode(&buf); err != nil {
		t.Fatalf("Encode second: %v", err)
	}

	br := bufio.NewReader(&buf)
	got1, err := DecodeRequest(br)
	if err != nil {
		t.Fatalf("DecodeRequest first: %v", err)
	}
	if got1.Opcode != OpPending {
		t.Errorf("first opcode = %v, want %v", got1.Opcode, OpPending)
	}
	got2, err := DecodeRequest(br)
	if err != nil {
		t.Fatalf("DecodeRequest second: %v", err)
	}
	if got2.Opcode != OpClear {
		t.Errorf("second opcode = %v, want %v", got2.Opcode, OpClear)
	}
}
