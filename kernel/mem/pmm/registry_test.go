package pmm

import "testing"

func TestFindLocatesOwningPool(t *testing.T) {
	ResetRegistry()
	a := NewFramePool(Params{Base: 0, NFrames: 100, InfoFrame: 1, NInfoFrames: NeededInfoFrames(100)})
	b := NewFramePool(Params{Base: 500, NFrames: 100, InfoFrame: 1, NInfoFrames: NeededInfoFrames(100)})

	if Find(50) != a {
		t.Fatalf("Find(50) should resolve to pool a")
	}
	if Find(550) != b {
		t.Fatalf("Find(550) should resolve to pool b")
	}
	if Find(1000) != nil {
		t.Fatalf("Find(1000) should resolve to no pool")
	}
	// Boundaries: b's range is [500,600).
	if Find(600) != nil {
		t.Fatalf("Find(600) is one past b's range and should resolve to no pool")
	}
}

func TestResetRegistryClearsPools(t *testing.T) {
	ResetRegistry()
	NewFramePool(Params{Base: 0, NFrames: 10, InfoFrame: 1, NInfoFrames: NeededInfoFrames(10)})
	if Find(5) == nil {
		t.Fatalf("expected a pool to be registered")
	}
	ResetRegistry()
	if Find(5) != nil {
		t.Fatalf("expected no pools after ResetRegistry")
	}
}
