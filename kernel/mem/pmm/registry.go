package pmm

import "memkern/kernel"

// registry is the process-wide set of frame pools, indexed by frame-number
// range (spec §3.6, §4.B, §9). A plain slice is used in place of the
// singly-linked list the original threads through Pool objects: the pool
// count is small, so a linear scan is already the intended complexity
// class, and a slice avoids the self-referential pointer field that a
// literal port of "next *FramePool" would need.
var registry []*FramePool

// register links a newly constructed pool into the global registry.
func register(p *FramePool) {
	registry = append(registry, p)
}

// Find returns the unique pool whose range contains frameNo, or nil.
func Find(frameNo Frame) *FramePool {
	for _, p := range registry {
		if frameNo >= p.baseFrame && frameNo < p.baseFrame+Frame(p.nFrames) {
			return p
		}
	}
	return nil
}

// ReleaseFrames looks up the pool that owns first and releases the run
// starting there. Releasing a frame owned by no pool is a foreign-frame
// error and is fatal (spec §4.A, §7).
func ReleaseFrames(first Frame) {
	p := Find(first)
	if p == nil {
		kernel.Panic(errForeignFrame)
		return
	}
	p.release(first)
}

// ResetRegistry clears the global registry. It exists only for tests,
// which otherwise leak pools across test cases run in the same process —
// something that cannot happen on the real kernel, where the registry
// lives for the lifetime of the machine.
func ResetRegistry() {
	registry = nil
}
