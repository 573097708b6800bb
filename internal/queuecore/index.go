package queuecore

// insertIndex converts a logical insertion index (0 == the end that will
// be dequeued next) into a raw slice splice position in [0, n], where n
// is the lane's current length.
//
// Under FIFO the logical index behaves exactly like a normal array
// insert: non-negative counts from the head, negative counts from the
// tail, and an out-of-range index clamps to whichever end it overflowed
// toward.
//
// Under LIFO the same logical numbering is mirrored around the length so
// that index 0 lands at the tail (the top of the stack): a positive
// logical index m maps to raw position n-m. The one place this diverges
// from a naive mirror of the FIFO math is a negative, out-of-range LIFO
// index — naively mirroring would clamp it to the tail, but the intended
// behavior (see the design doc's Open Question resolution) clamps it to
// the head instead, symmetric with how an out-of-range positive LIFO
// index already clamps to the head.
func insertIndex(n int, typ Type, idx int) int {
	py := idx
	if idx < 0 {
		py = n + idx
	}
	clampedLow := py < 0
	if py < 0 {
		py = 0
	}
	if py > n {
		py = n
	}

	if typ != LIFO {
		return py
	}
	if idx < 0 && clampedLow {
		return 0
	}
	return n - py
}

// peekIndex converts a logical read index into a raw slice position,
// returning ok=false when |idx| >= n ("absent"). The mirroring for LIFO
// follows the same index-0-is-the-tail convention as insertIndex.
func peekIndex(n int, typ Type, idx int) (int, bool) {
	abs := idx
	if abs < 0 {
		abs = -abs
	}
	if abs >= n {
		return 0, false
	}

	py := idx
	if idx < 0 {
		py = n + idx
	}
	if typ == LIFO {
		return n - 1 - py, true
	}
	return py, true
}
