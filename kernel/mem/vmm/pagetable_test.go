package vmm

import (
	"testing"

	"memkern/kernel/irq"
	"memkern/kernel/mem"
)

func TestNewBeforePagingInstallsSelfMapAndDirectMap(t *testing.T) {
	kp, _ := resetVMMState(t)
	InitPaging(kp, kp, 2*mem.FrameSize)

	pt := New()
	if pt == nil {
		t.Fatalf("New() returned nil")
	}

	dir := dirAt(pt.directory.Address())
	if !dir[selfMapIndex].hasFlags(flagPresent) {
		t.Fatalf("self-map PDE should be present")
	}
	if dir[selfMapIndex].hasFlags(flagRW) {
		t.Fatalf("self-map PDE should not be writable")
	}
	if dir[selfMapIndex].frame() != pt.directory {
		t.Fatalf("self-map PDE should point at the directory's own frame")
	}

	if !dir[0].hasFlags(flagPresent) {
		t.Fatalf("PDE 0 should be present after direct-mapping the shared region")
	}
	table := dirAt(dir[0].frame().Address())
	for i := uint32(0); i < 2; i++ {
		if !table[i].hasFlags(flagPresent) {
			t.Fatalf("identity PTE %d should be present", i)
		}
		if table[i].frame().Address() != uintptr(i)*uintptr(mem.FrameSize) {
			t.Fatalf("identity PTE %d should map to frame %d", i, i)
		}
	}
}

func TestLoadSetsCurrentAndWritesTranslationBase(t *testing.T) {
	kp, _ := resetVMMState(t)
	InitPaging(kp, kp, 0)

	pt := New()
	var written uintptr
	loadPageDirectoryFn = func(addr uintptr) { written = addr }

	pt.Load()

	if current != pt {
		t.Fatalf("Load() should record pt as the current table")
	}
	if written != pt.directory.Address() {
		t.Fatalf("Load() wrote %#x, want directory address %#x", written, pt.directory.Address())
	}
}

func TestEnablePagingIsIdempotent(t *testing.T) {
	resetVMMState(t)

	calls := 0
	enablePagingFn = func() { calls++ }

	EnablePaging()
	EnablePaging()

	if calls != 1 {
		t.Fatalf("enablePagingFn called %d times, want 1", calls)
	}
	if !PagingEnabled() {
		t.Fatalf("PagingEnabled() should be true after EnablePaging")
	}
}

// Scenario 5 / property P6 (spec §8): a first touch installs exactly one
// frame and leaves the PTE present, so a second touch of the same page does
// not fault again.
func TestHandleFaultInstallsOneFrameAndPresentPTE(t *testing.T) {
	kp, pp := resetVMMState(t)
	InitPaging(kp, pp, 0)

	pt := New()
	pt.Load()

	vp := NewVMPool(0x40000000, 0x10000000, pp, pt, false)
	if vp == nil {
		t.Fatalf("NewVMPool returned nil")
	}

	before := pp.Stats().FreeFrames
	addr := vp.startPage.Address() + uintptr(mem.FrameSize) // second page: not the bookkeeping page
	vp.assign(slotTable(vp.startPage), uint32(vp.startPage)+1, 1) // hand the second page out so the fault is legitimate

	pt.HandleFault(&irq.Registers{FaultAddress: addr})
	afterFirst := pp.Stats().FreeFrames
	if before-afterFirst != 1 {
		t.Fatalf("first fault should consume exactly one frame, freeFrames went from %d to %d", before, afterFirst)
	}

	pte := entryAt(tableVirtualAddr(addr) + (ptIndexOf(addr) << mem.PointerShift))
	if !pte.hasFlags(flagPresent) {
		t.Fatalf("PTE should be present after the fault")
	}
}

func TestHandleFaultUnmappedAddressIsFatal(t *testing.T) {
	kp, pp := resetVMMState(t)
	InitPaging(kp, pp, 0)

	pt := New()
	pt.Load()

	expectFatal(t, func() {
		pt.HandleFault(&irq.Registers{FaultAddress: 0xDEADB000})
	})
}

func TestHandleFaultDoubleMapIsFatal(t *testing.T) {
	kp, pp := resetVMMState(t)
	InitPaging(kp, pp, 0)

	pt := New()
	pt.Load()

	vp := NewVMPool(0x40000000, 0x10000000, pp, pt, false)
	addr := vp.startPage.Address() + uintptr(mem.FrameSize)
	vp.assign(slotTable(vp.startPage), uint32(vp.startPage)+1, 1) // hand the second page out so the fault is legitimate

	pt.HandleFault(&irq.Registers{FaultAddress: addr})

	expectFatal(t, func() {
		pt.installMapping(addr, pp.GetFrames(1), DefaultSupervisorPage)
	})
}

func TestFreePageIsIdempotent(t *testing.T) {
	kp, pp := resetVMMState(t)
	InitPaging(kp, pp, 0)

	pt := New()
	pt.Load()

	vp := NewVMPool(0x40000000, 0x10000000, pp, pt, false)
	addr := vp.startPage.Address() + uintptr(mem.FrameSize)
	vp.assign(slotTable(vp.startPage), uint32(vp.startPage)+1, 1) // hand the second page out so the fault is legitimate
	pt.HandleFault(&irq.Registers{FaultAddress: addr})

	before := pp.Stats().FreeFrames
	pt.FreePage(PageFromAddress(addr))
	afterFirst := pp.Stats().FreeFrames
	if afterFirst-before != 1 {
		t.Fatalf("FreePage should release exactly one frame, freeFrames went from %d to %d", before, afterFirst)
	}

	pt.FreePage(PageFromAddress(addr)) // must be a silent no-op
	if pp.Stats().FreeFrames != afterFirst {
		t.Fatalf("second FreePage on an already-freed page must be a no-op")
	}
}

func TestDestroyReleasesDirectoryAndTableFrames(t *testing.T) {
	kp, _ := resetVMMState(t)
	InitPaging(kp, kp, 2*mem.FrameSize)

	before := kp.Stats().FreeFrames
	pt := New()
	pt.Load()
	afterConstruct := kp.Stats().FreeFrames
	if afterConstruct >= before {
		t.Fatalf("construction should have consumed frames from the kernel pool")
	}

	pt.Destroy()
	afterDestroy := kp.Stats().FreeFrames
	if afterDestroy != before {
		t.Fatalf("Destroy should return freeFrames to %d, got %d", before, afterDestroy)
	}
}
