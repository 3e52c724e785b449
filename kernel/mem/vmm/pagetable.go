package vmm

import (
	"memkern/kernel"
	"memkern/kernel/cpu"
	"memkern/kernel/irq"
	"memkern/kernel/mem"
	"memkern/kernel/mem/pmm"
)

var (
	errOutOfFrames   = &kernel.Error{Module: "vmm", Message: "out of frames while building translation structures"}
	errUnmappedFault = &kernel.Error{Module: "vmm", Message: "page fault at an address claimed by no VM pool"}
	errDoubleMap     = &kernel.Error{Module: "vmm", Message: "page-table slot already present"}
)

// Hardware call sites go through package-level function-pointer
// indirection, the same seam kernel.HaltFunc gives kernel.Panic, so tests
// can substitute a host-side fake for a real CR0/CR3/TLB write.
var (
	loadPageDirectoryFn = cpu.LoadPageDirectory
	enablePagingFn      = cpu.EnablePaging
	flushTLBFn          = cpu.FlushTLB
)

var (
	kernelPool  *pmm.FramePool
	processPool *pmm.FramePool
	sharedSize  mem.Size

	pagingEnabled bool
	current       *PageTable
)

// InitPaging stores the process-wide paging parameters: the kernel and
// process frame pools every page table draws from, and the size of the
// low, identity-direct-mapped region shared by every address space (spec
// §4.C init_paging).
func InitPaging(kernelMemPool, processMemPool *pmm.FramePool, shared mem.Size) {
	kernelPool = kernelMemPool
	processPool = processMemPool
	sharedSize = shared
}

// PagingEnabled reports whether EnablePaging has taken effect.
func PagingEnabled() bool { return pagingEnabled }

type vmPoolSlot struct {
	pool   *VMPool
	isHeap bool
}

// PageTable is one address space's two-level translation structure (spec
// §3.4): a page directory frame with a self-referencing entry at index
// 1023, plus the VM Region Pools registered against it.
type PageTable struct {
	directory      pmm.Frame
	vmPools        []vmPoolSlot
	poolTableFrame pmm.Frame
	heap           *VMPool
}

// New builds a page table: obtains a directory frame from the kernel
// pool, initializes every PDE to {V=0,RW=1,U=0}, installs the self-map at
// index 1023, and either direct-maps the shared region (before paging is
// enabled) or copies its PDEs from the currently loaded table (spec §4.C
// construct).
func New() *PageTable {
	dirFrame := kernelPool.GetFrames(1)
	if dirFrame.IsNil() {
		kernel.Panic(errOutOfFrames)
		return nil
	}

	pt := &PageTable{directory: dirFrame}

	if !pagingEnabled {
		dir := dirAt(dirFrame.Address())
		initDirectory(dir, dirFrame)
		pt.directMapIdentity(dir, sharedSize)
	} else {
		pt.initSharingActiveRegion(dirFrame)
	}

	return pt
}

func initDirectory(dir *[dirSize]entry, self pmm.Frame) {
	for i := range dir {
		dir[i] = 0
		dir[i].setFlags(flagsFor(NotPresentSupervisorPage))
	}
	installSelfMap(dir, self)
}

// installSelfMap points PDE 1023 at frame with supervisor-only,
// not-writable attributes (spec §3.4).
func installSelfMap(dir *[dirSize]entry, frame pmm.Frame) {
	dir[selfMapIndex] = 0
	dir[selfMapIndex].setFlags(flagPresent)
	dir[selfMapIndex].setFrame(frame)
}

// directMapIdentity walks PDEs sequentially over [0, size), allocating
// page-table frames from the process pool and installing identity PTEs
// (linear == physical) with {V=1,RW=1,U=0}. Only valid before paging is
// enabled, when a physical address is directly usable as a pointer.
func (pt *PageTable) directMapIdentity(dir *[dirSize]entry, size mem.Size) {
	nPages := size.Pages()
	for i := uint32(0); i < nPages; i++ {
		linear := uintptr(i) * uintptr(mem.FrameSize)
		pdIdx := pdIndexOf(linear)
		ptIdx := ptIndexOf(linear)

		if !dir[pdIdx].hasFlags(flagPresent) {
			tableFrame := processPool.GetFrames(1)
			if tableFrame.IsNil() {
				kernel.Panic(errOutOfFrames)
				return
			}
			table := dirAt(tableFrame.Address())
			initDirectoryEntries(table, NotPresentSupervisorPage)

			dir[pdIdx] = 0
			dir[pdIdx].setFlags(flagsFor(DefaultSupervisorPage))
			dir[pdIdx].setFrame(tableFrame)
		}

		table := dirAt(dir[pdIdx].frame().Address())
		table[ptIdx] = 0
		table[ptIdx].setFlags(flagsFor(DefaultSupervisorPage))
		table[ptIdx].setFrame(pmm.FrameFromAddress(linear))
	}
}

func initDirectoryEntries(table *[dirSize]entry, attrs PageAttributes) {
	for i := range table {
		table[i] = 0
		table[i].setFlags(flagsFor(attrs))
	}
}

// initSharingActiveRegion builds a directory whose shared-region PDEs are
// copied verbatim from the currently loaded table, so both address spaces
// point at the very same low-memory page tables (spec §4.C: "share the
// shared region across address spaces"). The active table's shared PDEs
// are snapshotted before the self-map is retargeted at the new directory,
// since only one of the two directories can sit behind the fixed self-map
// address at a time.
func (pt *PageTable) initSharingActiveRegion(dirFrame pmm.Frame) {
	nShared := int(pdIndexOf(uintptr(sharedSize-1))) + 1
	if sharedSize == 0 {
		nShared = 0
	}
	snapshot := make([]entry, nShared)
	copy(snapshot, dirAt(directoryVirtualAddr)[:nShared])

	withBorrowedSelfMap(dirFrame, func() {
		dir := dirAt(directoryVirtualAddr)
		initDirectory(dir, dirFrame)
		copy(dir[:nShared], snapshot)
	})
}

// withBorrowedSelfMap temporarily retargets the active table's self-map
// slot at target, runs fn (which can then reach target's own directory at
// the usual self-map address), and restores the active table's self-map
// afterward. Mirrors the trick a page-directory editor needs whenever the
// directory being edited is not the one currently loaded.
func withBorrowedSelfMap(target pmm.Frame, fn func()) {
	activeDir := dirAt(directoryVirtualAddr)
	saved := activeDir[selfMapIndex]

	installSelfMap(activeDir, target)
	flushTLBFn()

	fn()

	activeDir[selfMapIndex] = saved
	flushTLBFn()
}

// Load makes pt the active address space: records it as the currently
// loaded table and writes its directory's physical address to the
// translation-base register (spec §4.C load).
func (pt *PageTable) Load() {
	current = pt
	loadPageDirectoryFn(pt.directory.Address())
}

// EnablePaging turns on hardware paging. Idempotent after the first call
// (spec §4.C enable_paging).
func EnablePaging() {
	if pagingEnabled {
		return
	}
	pagingEnabled = true
	enablePagingFn()
}

// ensurePresent returns a pointer to the PTE for addr, allocating and
// installing a page-table page from the process pool first if the owning
// PDE is not yet present (spec §4.C handle_fault step 4).
func (pt *PageTable) ensurePresent(addr uintptr) *entry {
	pde := entryAt(directoryVirtualAddr + (pdIndexOf(addr) << mem.PointerShift))
	if !pde.hasFlags(flagPresent) {
		ptFrame := processPool.GetFrames(1)
		if ptFrame.IsNil() {
			kernel.Panic(errOutOfFrames)
			return nil
		}
		*pde = 0
		pde.setFlags(flagsFor(DefaultSupervisorPage))
		pde.setFrame(ptFrame)

		initDirectoryEntries(dirAt(tableVirtualAddr(addr)), NotPresentSupervisorPage)
	}
	return entryAt(tableVirtualAddr(addr) + (ptIndexOf(addr) << mem.PointerShift))
}

// installMapping installs frame at addr's PTE slot with attrs, halting
// with a double-map error if the slot is already present (spec §4.C
// handle_fault step 5). Used by both fault-driven and eager installs.
func (pt *PageTable) installMapping(addr uintptr, frame pmm.Frame, attrs PageAttributes) bool {
	pte := pt.ensurePresent(addr)
	if pte == nil {
		return false
	}
	if pte.hasFlags(flagPresent) {
		kernel.Panic(errDoubleMap)
		return false
	}
	*pte = 0
	pte.setFlags(flagsFor(attrs))
	pte.setFrame(frame)
	return true
}

// findClaimingPool returns the VM Region Pool registered against pt that
// claims addr, or nil.
func (pt *PageTable) findClaimingPool(addr uintptr) *VMPool {
	for _, slot := range pt.vmPools {
		if slot.pool.IsLegitimate(addr) {
			return slot.pool
		}
	}
	return nil
}

// HandleFault resolves a page fault: locates the VM Region Pool that
// claims the faulting address, obtains a frame from that pool's preferred
// Frame Pool, and installs the mapping (spec §4.C handle_fault, state
// machine IDLE→CHECK_LEGITIMATE→GET_FRAME→WALK_PDE→INSTALL_PTE).
func (pt *PageTable) HandleFault(regs *irq.Registers) {
	addr := regs.FaultAddress

	claim := pt.findClaimingPool(addr)
	if claim == nil {
		kernel.Panic(errUnmappedFault)
		return
	}

	frame := claim.framePool.GetFrames(1)
	if frame.IsNil() {
		kernel.Panic(errOutOfFrames)
		return
	}

	pt.installMapping(addr, frame, DefaultSupervisorPage)
}

// FreePage releases the frame backing pageNo, if any, and flushes the
// TLB. A silent no-op when the page is not present, since idempotent
// release is a correctness property (spec §4.C free_page).
func (pt *PageTable) FreePage(pageNo Page) {
	addr := pageNo.Address()

	pde := entryAt(directoryVirtualAddr + (pdIndexOf(addr) << mem.PointerShift))
	if !pde.hasFlags(flagPresent) {
		return
	}

	pte := entryAt(tableVirtualAddr(addr) + (ptIndexOf(addr) << mem.PointerShift))
	if !pte.hasFlags(flagPresent) {
		return
	}

	frame := pte.frame()
	*pte = 0
	pte.setFlags(flagsFor(NotPresentSupervisorPage))
	pmm.ReleaseFrames(frame)
	flushTLBFn()
}

// RegisterPool appends pool to pt's list of VM Region Pools. The list's
// backing storage charges a single kernel frame the first time a pool is
// registered, in the same spirit as the original's "vm_pools[] itself
// lives in a kernel frame" (spec §4.C register_pool), even though the Go
// slice underneath grows in the ordinary way.
func (pt *PageTable) RegisterPool(pool *VMPool, isHeap bool) {
	if pt.poolTableFrame.IsNil() {
		f := kernelPool.GetFrames(1)
		if f.IsNil() {
			kernel.Panic(errOutOfFrames)
			return
		}
		pt.poolTableFrame = f
	}

	pt.vmPools = append(pt.vmPools, vmPoolSlot{pool: pool, isHeap: isHeap})
	if isHeap {
		pt.heap = pool
	}
}

// HeapPool returns the VM Region Pool registered with isHeap=true, or nil.
func (pt *PageTable) HeapPool() *VMPool { return pt.heap }

// Destroy releases every frame backing pt's mapped regions, its page
// tables, its VM-pool bookkeeping frame, and its own directory frame
// (spec §3.6). Assumes pt is the currently loaded table, since it walks
// pt's structures through the self-map.
func (pt *PageTable) Destroy() {
	dir := dirAt(directoryVirtualAddr)
	for i := 0; i < selfMapIndex; i++ {
		if !dir[i].hasFlags(flagPresent) {
			continue
		}

		tableFrame := dir[i].frame()
		table := dirAt(tableVirtualAddr(uintptr(i) << (mem.FrameShift + 10)))
		for j := range table {
			if table[j].hasFlags(flagPresent) {
				pmm.ReleaseFrames(table[j].frame())
			}
		}
		pmm.ReleaseFrames(tableFrame)
	}

	if !pt.poolTableFrame.IsNil() {
		pmm.ReleaseFrames(pt.poolTableFrame)
	}
	pmm.ReleaseFrames(pt.directory)
}
