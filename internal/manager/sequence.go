package manager

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hiveq/hiveq/internal/queuecore"
)

// wireItem is the msgpack-visible shape of a queuecore.Item, used when a
// frame's payload carries more than one item at once (A~QUE/A~QUP array
// enqueue, multi-item D~QUE/D~QUN responses).
type wireItem struct {
	Payload []byte
	Frozen  bool
}

// encodeItemSequence serializes items as a single frozen blob: the
// payload for a multi-item enqueue or dequeue is one serialized sequence
// of all items, not one frame per item.
func encodeItemSequence(items []queuecore.Item) ([]byte, error) {
	seq := make([]wireItem, len(items))
	for i, it := range items {
		seq[i] = wireItem{Payload: it.Payload, Frozen: it.Frozen}
	}
	return msgpack.Marshal(seq)
}

// decodeItemSequence is the inverse of encodeItemSequence, used to split
// an array-enqueue payload back into individual items before pushing
// them into queuecore one at a time.
func decodeItemSequence(data []byte) ([]queuecore.Item, error) {
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

// encodeLevelSequence serializes a heap snapshot for H~QUE.
func encodeLevelSequence(levels []int) ([]byte, error) {
	as64 := make([]int64, len(levels))
	for i, l := range levels {
		as64[i] = int64(l)
	}
	return msgpack.Marshal(as64)
}
