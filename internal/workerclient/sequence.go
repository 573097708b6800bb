package workerclient

import (
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/hiveq/hiveq/internal/queuecore"
)

// wireItem mirrors the manager's msgpack-visible item shape so a Proxy
// can encode/decode the same array-enqueue and multi-item dequeue
// payloads the manager produces, without exporting that type from
// internal/manager.
type wireItem struct {
	Payload []byte
	Frozen  bool
}

func encodeSequence(items []queuecore.Item) ([]byte, error) {
	seq := make([]wireItem, len(items))
	for i, it := range items {
		seq[i] = wireItem{Payload: it.Payload, Frozen: it.Frozen}
	}
	return msgpack.Marshal(seq)
}

func decodeSequence(data []byte) ([]queuecore.Item, error) {
	var seq []wireItem
	if err := msgpack.Unmarshal(data, &seq); err != nil {
		return nil, err
	}
	items := make([]queuecore.Item, len(seq))
	for i, w := range seq {
		items[i] = queuecore.Item{Payload: w.Payload, Frozen: w.Frozen}
	}
	return items, nil
}

func decodeLevelSequence(data []byte) ([]int, error) {
	var as64 []int64
	if err := msgpack.Unmarshal(data, &as64); err != nil {
		return nil, err
	}
	out := make([]int, len(as64))
	for i, v := range as64 {
		out[i] = int(v)
	}
	return out, nil
}

// parseLevel decodes a P~QUH response payload: a bare ASCII decimal
// integer rather than a msgpack value, since heap-index peek returns a
// priority level, not a serialized item.
func parseLevel(payload []byte) (int, error) {
	return strconv.Atoi(string(payload))
}
