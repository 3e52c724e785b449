package vmm

import "unsafe"

// dirSize is the number of entries in a page directory or page table: one
// FrameSize page holds dirSize uintptr-sized words (spec §3.4: 1024 PDEs).
const dirSize = 1024

// selfMapIndex is the directory index that always maps to the directory
// itself (spec §3.4, "the self-map").
const selfMapIndex = dirSize - 1

const (
	// directoryVirtualAddr is where the active page directory is always
	// mapped once paging is enabled, via the self-map.
	directoryVirtualAddr uintptr = 0xFFFFF000

	// tableVirtualBase, OR-ed with a directory index shifted into place,
	// gives the address at which the page table for that directory
	// index is always mapped once paging is enabled.
	tableVirtualBase uintptr = 0xFFC00000
)

// tableVirtualAddr returns the fixed linear address of the page table that
// backs the given linear address, via the self-map (spec §3.4).
func tableVirtualAddr(linear uintptr) uintptr {
	return tableVirtualBase | ((linear >> 22) << 12)
}

func pdIndexOf(linear uintptr) uintptr { return (linear >> 22) & (dirSize - 1) }
func ptIndexOf(linear uintptr) uintptr { return (linear >> 12) & (dirSize - 1) }

// ptrAtFn resolves an address that the self-map (or, before paging is
// enabled, plain identity mapping) guarantees is backed by real memory
// into a Go pointer. Production code leaves this as a bare unsafe.Pointer
// conversion; tests substitute a fake so entries can be exercised without
// a real MMU underneath, following the same seam gopher-os's walk.go uses
// for ptePtrFn.
var ptrAtFn = func(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr)
}

func entryAt(addr uintptr) *entry {
	return (*entry)(ptrAtFn(addr))
}

func dirAt(addr uintptr) *[dirSize]entry {
	return (*[dirSize]entry)(ptrAtFn(addr))
}
