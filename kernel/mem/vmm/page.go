package vmm

import "memkern/kernel/mem"

// Page identifies a virtual memory page by its page number.
type Page uintptr

// Address returns the virtual byte address of this page.
func (p Page) Address() uintptr {
	return uintptr(p) * uintptr(mem.FrameSize)
}

// PageFromAddress returns the Page containing virtAddr, rounding down if
// virtAddr is not page-aligned.
func PageFromAddress(virtAddr uintptr) Page {
	return Page(virtAddr / uintptr(mem.FrameSize))
}
