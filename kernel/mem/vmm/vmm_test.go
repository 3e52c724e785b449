package vmm

import (
	"testing"
	"unsafe"

	"memkern/kernel"
	"memkern/kernel/mem"
	"memkern/kernel/mem/pmm"
)

// fakeMemory backs every address vmm code touches (physical frame content
// and the fixed self-map virtual addresses alike) with real Go-allocated
// storage, page by page, so PDE/PTE reads and writes can be exercised
// without a real MMU underneath — the same approach gopher-os's
// TestMapTemporaryAmd64 uses for its ptePtrFn seam.
type fakeMemory struct {
	pages map[uintptr]*[dirSize]entry
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{pages: make(map[uintptr]*[dirSize]entry)}
}

func (m *fakeMemory) ptrAt(addr uintptr) unsafe.Pointer {
	base := addr &^ uintptr(mem.FrameSize-1)
	idx := (addr - base) / wordSize

	page, ok := m.pages[base]
	if !ok {
		page = &[dirSize]entry{}
		m.pages[base] = page
	}
	return unsafe.Pointer(&page[idx])
}

// resetVMMState clears every package-level global so test cases don't leak
// into one another; this cannot happen on the real kernel, where these
// globals live for the machine's lifetime.
func resetVMMState(t *testing.T) (*pmm.FramePool, *pmm.FramePool) {
	t.Helper()
	pmm.ResetRegistry()

	// The kernel pool keeps its bitmap in frame 0, so frame 0 (the null
	// frame) is never handed out as a directory or table.
	kp := pmm.NewFramePool(pmm.Params{Base: 0, NFrames: 4096})
	pp := pmm.NewFramePool(pmm.Params{Base: 4096, NFrames: 4096, InfoFrame: 1, NInfoFrames: pmm.NeededInfoFrames(4096)})

	kernelPool, processPool = kp, pp
	sharedSize = 0
	pagingEnabled = false
	current = nil

	fm := newFakeMemory()
	ptrAtFn = fm.ptrAt

	loadPageDirectoryFn = func(uintptr) {}
	enablePagingFn = func() {}
	flushTLBFn = func() {}

	return kp, pp
}

func expectFatal(t *testing.T, fn func()) {
	t.Helper()
	halted := false
	orig := kernel.HaltFunc
	kernel.HaltFunc = func() { halted = true; panic("halt") }
	defer func() {
		kernel.HaltFunc = orig
		recover()
		if !halted {
			t.Fatalf("expected a fatal halt, none occurred")
		}
	}()
	fn()
}
