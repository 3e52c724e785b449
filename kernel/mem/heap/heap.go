// Package heap implements the new/delete-style allocator that sits on top
// of a VM Region Pool (spec §2). It is deliberately not a general-purpose
// allocator: every request is forwarded straight to the pool's probing
// allocator, with no free list, no splitting, and no coalescing, matching
// the Non-goal of physical-allocator defragmentation carried up to the
// virtual side.
package heap

import (
	"memkern/kernel/mem"
	"memkern/kernel/mem/vmm"
)

// Allocator wraps a *vmm.VMPool with the two operations a language runtime
// needs from a heap.
type Allocator struct {
	pool *vmm.VMPool
}

// New wraps pool in an Allocator.
func New(pool *vmm.VMPool) *Allocator {
	return &Allocator{pool: pool}
}

// Alloc reserves n bytes of virtual address space, rounded up to whole
// pages, and returns its base address, or 0 if the pool has no room left
// after five probes ("heap crowded", spec §4.D).
func (a *Allocator) Alloc(n uintptr) uintptr {
	if n == 0 {
		return 0
	}
	return a.pool.Allocate(mem.Size(n))
}

// Free releases the range previously returned by Alloc(n) for the same
// addr. Every page of the range that was touched has its backing frame
// released immediately; a page that was never touched, and so never
// faulted in, is simply unassigned with nothing to give back to the
// frame pool.
func (a *Allocator) Free(addr uintptr) {
	a.pool.Release(addr)
}
