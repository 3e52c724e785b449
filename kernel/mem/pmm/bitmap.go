package pmm

// frameState is the two-bit per-frame encoding packed four-to-a-byte,
// most-significant pair first (spec §3.2).
type frameState byte

const (
	stateFollow frameState = 0x0 // 00
	stateHead   frameState = 0x1 // 01
	// 0x2 (10) is reserved and never produced by this allocator.
	stateFree frameState = 0x3 // 11
)

// pairShift returns the bit offset of the pos'th two-bit pair within a byte,
// pos 0 being the most-significant pair.
func pairShift(pos int) uint {
	return uint(2 * (3 - pos))
}

// getState returns the frame state stored at intra-byte position pos (0-3).
func getState(b byte, pos int) frameState {
	return frameState((b >> pairShift(pos)) & 0x3)
}

// setState overwrites the intra-byte position pos (0-3) of *b with state.
func setState(b *byte, pos int, state frameState) {
	shift := pairShift(pos)
	*b = (*b &^ (0x3 << shift)) | (byte(state) << shift)
}

// maskRange clears every two-bit pair outside [start, end) of b, per spec
// §4.A: pairs before start are cleared by ANDing with 0xFF>>2*start, pairs
// at or after end are cleared by further ANDing with 0xFF<<2*(4-end). The
// cleared pairs read as 0b00, so this helper is only safe to use when
// searching for a state that is never 0b00 (i.e. stateFree) — searching for
// stateFollow or "not stateFollow" must scan the range directly instead, to
// avoid mistaking a masked-out pair for a real FOLLOW frame.
func maskRange(b byte, start, end int) byte {
	if start > 0 {
		b &= 0xFF >> uint(2*start)
	}
	if end < 4 {
		b &= 0xFF << uint(2*(4-end))
	}
	return b
}

// firstFreeInByte returns the intra-byte position (0-3) of the first FREE
// pair in [start, end), or 4 if none is found.
func firstFreeInByte(b byte, start, end int) int {
	masked := maskRange(b, start, end)
	for pos := start; pos < end; pos++ {
		if getState(masked, pos) == stateFree {
			return pos
		}
	}
	return 4
}

// firstFollowInByte returns the intra-byte position of the first FOLLOW
// pair in [start, end), or 4 if none is found.
func firstFollowInByte(b byte, start, end int) int {
	for pos := start; pos < end; pos++ {
		if getState(b, pos) == stateFollow {
			return pos
		}
	}
	return 4
}

// firstNonFollowInByte returns the intra-byte position of the first pair in
// [start, end) that is not FOLLOW, or 4 if the whole range is FOLLOW.
func firstNonFollowInByte(b byte, start, end int) int {
	for pos := start; pos < end; pos++ {
		if getState(b, pos) != stateFollow {
			return pos
		}
	}
	return 4
}
