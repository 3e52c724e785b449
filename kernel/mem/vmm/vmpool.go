package vmm

import (
	"memkern/kernel"
	"memkern/kernel/errors"
	"memkern/kernel/mem"
	"memkern/kernel/mem/pmm"
)

var errReleaseForeignVirtual = &kernel.Error{Module: "vmm", Message: "release of a virtual range owned by no VM pool"}

// wordSize is the byte size of one directory/table entry on this target.
const wordSize = 1 << mem.PointerShift

// slotsPerPage is the number of (start,end) page-range slots that fit in
// one FrameSize page (spec §3.5: "FRAME_SIZE / (2*sizeof(word))").
const slotsPerPage = int(mem.FrameSize) / (2 * wordSize)

// assignment is one occupied (or free, when both fields are zero) slot in
// a VM Region Pool's bookkeeping table.
type assignment struct {
	start uintptr
	end   uintptr
}

func slotTable(startPage Page) *[slotsPerPage]assignment {
	return (*[slotsPerPage]assignment)(ptrAtFn(startPage.Address()))
}

// VMPool tracks which virtual page ranges have been handed out inside a
// single arena of a single address space (spec §3.5, module D). Its
// bookkeeping table lives inside the first page of the arena itself,
// rather than in a general-purpose heap, since a VM Region Pool is what
// the heap allocator is built on top of.
type VMPool struct {
	startPage    Page
	numPages     uint32
	framePool    *pmm.FramePool
	pageTable    *PageTable
	totalAssigns uint32
	seed         uint32
}

// VMPoolStats reports the read-only counters tests and diagnostics need
// without reaching into the pool's bookkeeping page directly.
type VMPoolStats struct {
	StartPage    Page
	NumPages     uint32
	TotalAssigns uint32
}

// Stats returns a snapshot of vp's public counters.
func (vp *VMPool) Stats() VMPoolStats {
	return VMPoolStats{StartPage: vp.startPage, NumPages: vp.numPages, TotalAssigns: vp.totalAssigns}
}

// NewVMPool constructs a VM Region Pool over [baseAddr, baseAddr+size),
// registers it with pt, and eagerly backs the first page of the range
// with a frame from framePool so the bookkeeping table itself is
// immediately addressable (spec §4.D construct, invariant V3).
func NewVMPool(baseAddr uintptr, size mem.Size, framePool *pmm.FramePool, pt *PageTable, isHeap bool) *VMPool {
	if size.Pages() == 0 {
		kernel.Panic(&kernel.Error{Module: "vmm", Message: errors.ErrInvalidParamValue.Error()})
		return nil
	}

	vp := &VMPool{
		startPage: PageFromAddress(baseAddr),
		numPages:  size.Pages(),
		framePool: framePool,
		pageTable: pt,
		seed:      2147483647, // fixed odd prime, spec §4.D
	}
	pt.RegisterPool(vp, isHeap)

	frame := framePool.GetFrames(1)
	if frame.IsNil() {
		kernel.Panic(errOutOfFrames)
		return nil
	}
	pt.installMapping(vp.startPage.Address(), frame, DefaultSupervisorPage)

	table := slotTable(vp.startPage)
	for i := range table {
		table[i] = assignment{}
	}
	table[0] = assignment{start: uintptr(vp.startPage), end: uintptr(vp.startPage) + 1}
	vp.totalAssigns = 1

	return vp
}

// overlaps reports whether [aStart,aEnd) and [bStart,bEnd) share a page.
// This is the corrected form of the original's non-overlap check, which
// indexed assigned_frames[2*1] instead of assigned_frames[2*i] and so
// only ever compared against the first occupied slot.
func overlaps(aStart, aEnd, bStart, bEnd uintptr) bool {
	return aStart < bEnd && bStart < aEnd
}

func (vp *VMPool) fits(table *[slotsPerPage]assignment, start, n uint32) bool {
	end := uintptr(start) + uintptr(n)
	for i := range table {
		if table[i].start == 0 && table[i].end == 0 {
			continue
		}
		if overlaps(uintptr(start), end, table[i].start, table[i].end) {
			return false
		}
	}
	return true
}

func (vp *VMPool) assign(table *[slotsPerPage]assignment, start, n uint32) bool {
	for i := range table {
		if table[i].start == 0 && table[i].end == 0 {
			table[i] = assignment{start: uintptr(start), end: uintptr(start + n)}
			vp.totalAssigns++
			return true
		}
	}
	return false
}

// Allocate hands out a virtual range of size bytes, rounded up to whole
// pages, using a deterministic pseudo-random probe rather than a bump or
// first-fit search: the arena is sparse and demand-paged, so a probing
// allocator avoids contiguous-growth pathology while keeping the slot
// table small (spec §4.D allocate). Returns 0, not fatal, if five probes
// all land on occupied ranges ("heap crowded").
func (vp *VMPool) Allocate(size mem.Size) uintptr {
	nPages := size.Pages()
	if nPages == 0 || nPages >= vp.numPages {
		return 0
	}

	table := slotTable(vp.startPage)
	span := vp.numPages - nPages
	for probe := 0; probe < 5; probe++ {
		vp.seed = vp.seed*vp.seed + (vp.seed >> 1)
		candidate := uint32(vp.startPage) + vp.seed%span

		if vp.fits(table, candidate, nPages) {
			vp.assign(table, candidate, nPages)
			return Page(candidate).Address()
		}
	}
	return 0
}

// Release finds the slot whose start page matches startAddr, frees every
// page in its range through the page table, and marks the slot free.
// Fatal if no slot matches (spec §4.D release).
func (vp *VMPool) Release(startAddr uintptr) {
	start := uintptr(PageFromAddress(startAddr))
	table := slotTable(vp.startPage)

	for i := range table {
		if table[i].start != start {
			continue
		}
		for p := table[i].start; p < table[i].end; p++ {
			vp.pageTable.FreePage(Page(p))
		}
		table[i] = assignment{}
		vp.totalAssigns--
		return
	}

	kernel.Panic(errReleaseForeignVirtual)
}

// IsLegitimate reports whether addr falls inside some occupied slot,
// including the first-page bookkeeping reservation (spec §4.D
// is_legitimate, invariant V3).
func (vp *VMPool) IsLegitimate(addr uintptr) bool {
	page := uintptr(PageFromAddress(addr))
	table := slotTable(vp.startPage)
	for i := range table {
		if table[i].start == 0 && table[i].end == 0 {
			continue
		}
		if page >= table[i].start && page < table[i].end {
			return true
		}
	}
	return false
}
