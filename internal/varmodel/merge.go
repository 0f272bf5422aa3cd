package varmodel

import "fmt"

// MergeValue combines a variable's stored value with an incoming one. The
// row is the table row the incoming value addresses, or a negative number
// when it addresses no row.
//
//   - neither row-indexed (scalar stored, scalar incoming, no row): replace.
//   - both row-indexed (sequence or nothing stored, sequence incoming): with a
//     row only that slot is copied, allocating the sequence on first use;
//     without a row the sequence is replaced.
//   - row-indexed stored, scalar incoming at a row: write that slot.
//   - scalar stored, scalar incoming at a row: replace.
//   - row-indexed stored, scalar without a row: the sequence is kept. A
//     column broadcast has already written every row slot.
//
// A sequence arriving for a stored scalar matches none of these and returns
// ErrInconsistentMerge with the stored value unchanged.
func MergeValue(stored, incoming any, row int) (any, error) {
	storedSeq, storedIsSeq := stored.([]any)
	incomingSeq, incomingIsSeq := incoming.([]any)
	storedIndexed := stored == nil || storedIsSeq

	switch {
	case !storedIsSeq && !incomingIsSeq && row < 0:
		return incoming, nil

	case storedIndexed && incomingIsSeq:
		if row < 0 {
			return incomingSeq, nil
		}
		var slot any
		if row < len(incomingSeq) {
			slot = incomingSeq[row]
		}
		return setSlot(storedSeq, row, slot), nil

	case storedIndexed && !incomingIsSeq && row >= 0:
		return setSlot(storedSeq, row, incoming), nil

	case !storedIsSeq && !incomingIsSeq && row >= 0:
		return incoming, nil

	case storedIsSeq && !incomingIsSeq && row < 0:
		return storedSeq, nil
	}

	return stored, fmt.Errorf("%w: stored %T, incoming %T, row %d", ErrInconsistentMerge, stored, incoming, row)
}

// setSlot writes one slot of a row sequence, growing it as needed. The
// stored sequence is copied so callers holding the old one see no change.
func setSlot(seq []any, row int, value any) []any {
	size := len(seq)
	if row >= size {
		size = row + 1
	}
	out := make([]any, size)
	copy(out, seq)
	out[row] = value
	return out
}
