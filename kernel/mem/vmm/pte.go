// Package vmm implements the two-level page table manager (spec module C),
// the VM region pool (module D) and the page-attribute value type (module
// E) that together turn on-demand paging for a single 32-bit address space.
package vmm

import (
	"memkern/kernel/mem"
	"memkern/kernel/mem/pmm"
)

// entryFlag is one of the bits packed into the low 12 bits of a page-table
// or page-directory entry (spec §4.C, bit-exact PTE/PDE encoding).
type entryFlag uintptr

const (
	flagPresent entryFlag = 1 << 0 // V
	flagRW      entryFlag = 1 << 1 // RW
	flagUser    entryFlag = 1 << 2 // U

	frameFieldMask = ^uintptr(mem.FrameSize - 1) // bits 12-31
)

// entry is a single 32-bit page-table or page-directory word: a frame
// number in the top bits plus flags in the low bits. It backs both PTEs
// and PDEs, which the spec gives an identical encoding (§4.C).
type entry uintptr

// hasFlags reports whether all of flags are set.
func (e entry) hasFlags(flags entryFlag) bool {
	return uintptr(e)&uintptr(flags) == uintptr(flags)
}

// setFlags ORs flags into the entry, leaving the frame field untouched.
func (e *entry) setFlags(flags entryFlag) {
	*e = entry(uintptr(*e) | uintptr(flags))
}

// clearFlags clears flags from the entry.
func (e *entry) clearFlags(flags entryFlag) {
	*e = entry(uintptr(*e) &^ uintptr(flags))
}

// frame returns the frame number encoded in the entry's top bits.
func (e entry) frame() pmm.Frame {
	return pmm.FrameFromAddress(uintptr(e) & frameFieldMask)
}

// setFrame updates the entry's frame field, leaving flags untouched.
func (e *entry) setFrame(f pmm.Frame) {
	*e = entry((uintptr(*e) &^ frameFieldMask) | f.Address())
}

// PageAttributes packs the three permission booleans a page-table or
// page-directory entry can carry (spec module E). Its only behavior is
// producing the OR-able 3-bit value that goes alongside a frame-aligned
// address to form a PTE/PDE.
type PageAttributes struct {
	Valid bool
	RW    bool
	User  bool
}

// Value returns the 3-bit flag field for these attributes.
func (a PageAttributes) Value() uintptr {
	var v uintptr
	if a.Valid {
		v |= uintptr(flagPresent)
	}
	if a.RW {
		v |= uintptr(flagRW)
	}
	if a.User {
		v |= uintptr(flagUser)
	}
	return v
}

// The four well-known attribute combinations spec module E calls out by
// name.
var (
	DefaultUserPage          = PageAttributes{Valid: true, RW: true, User: true}
	DefaultSupervisorPage    = PageAttributes{Valid: true, RW: true, User: false}
	NotPresentUserPage       = PageAttributes{Valid: false, RW: true, User: true}
	NotPresentSupervisorPage = PageAttributes{Valid: false, RW: true, User: false}
)

func flagsFor(a PageAttributes) entryFlag {
	return entryFlag(a.Value())
}
