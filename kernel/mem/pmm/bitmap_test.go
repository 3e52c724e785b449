package pmm

import "testing"

func TestGetSetState(t *testing.T) {
	var b byte
	for pos := 0; pos < 4; pos++ {
		setState(&b, pos, stateFree)
	}
	if b != 0xFF {
		t.Fatalf("expected 0xFF after filling with FREE, got %#02x", b)
	}

	setState(&b, 1, stateHead)
	if got := getState(b, 1); got != stateHead {
		t.Fatalf("position 1: got %v, want stateHead", got)
	}
	if got := getState(b, 0); got != stateFree {
		t.Fatalf("position 0 should be untouched FREE, got %v", got)
	}

	setState(&b, 2, stateFollow)
	if got := getState(b, 2); got != stateFollow {
		t.Fatalf("position 2: got %v, want stateFollow", got)
	}
}

func TestFirstFreeInByte(t *testing.T) {
	// HEAD, FOLLOW, FREE, FREE
	var b byte
	setState(&b, 0, stateHead)
	setState(&b, 1, stateFollow)
	setState(&b, 2, stateFree)
	setState(&b, 3, stateFree)

	if got := firstFreeInByte(b, 0, 4); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
	if got := firstFreeInByte(b, 3, 4); got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
	if got := firstFreeInByte(b, 0, 2); got != 4 {
		t.Fatalf("masked out the only FREE pairs, got %d, want 4 (not found)", got)
	}
}

func TestFirstFollowAndNonFollow(t *testing.T) {
	// HEAD, FOLLOW, FOLLOW, FREE
	var b byte
	setState(&b, 0, stateHead)
	setState(&b, 1, stateFollow)
	setState(&b, 2, stateFollow)
	setState(&b, 3, stateFree)

	if got := firstFollowInByte(b, 0, 4); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
	if got := firstNonFollowInByte(b, 1, 4); got != 3 {
		t.Fatalf("got %d, want 3 (the FREE pair)", got)
	}
	if got := firstNonFollowInByte(b, 1, 3); got != 4 {
		t.Fatalf("range [1,3) is all FOLLOW, got %d, want 4", got)
	}
}

func TestMaskRangeNeverAliasesFreeSearchOutOfRange(t *testing.T) {
	// All FREE.
	b := byte(0xFF)
	for start := 0; start < 4; start++ {
		for end := start + 1; end <= 4; end++ {
			masked := maskRange(b, start, end)
			for pos := 0; pos < start; pos++ {
				if getState(masked, pos) == stateFree {
					t.Fatalf("start=%d end=%d: position %d before start reads FREE", start, end, pos)
				}
			}
			for pos := end; pos < 4; pos++ {
				if getState(masked, pos) == stateFree {
					t.Fatalf("start=%d end=%d: position %d at/after end reads FREE", start, end, pos)
				}
			}
		}
	}
}
