// Command memkern is the kernel image's entrypoint. It is intentionally a
// thin trampoline: the rt0 assembly stub that a real bootloader hands
// control to sets up a GDT and a minimal stack, then jumps here with no Go
// runtime scheduler running yet, so main must not do anything the Go
// runtime itself depends on before it has a chance to initialize.
//
// main is not expected to return; boot.Halt reports it if it does.
package main

import (
	"memkern/kernel/boot"
	"memkern/kernel/mem"
	"memkern/kernel/mem/pmm"
)

// Boot-time layout, carried over from the reference kernel's own literal
// constants rather than invented: a 2MB kernel pool at the 2MB mark, a 28MB
// process pool at the 4MB mark with a 1MB hole punched out at the 15MB
// mark (memory-mapped hardware the frame allocator must never hand out),
// a 4MB identity-mapped shared region, and a 256MB heap arena based at 1GB.
const (
	kernelPoolBase   = pmm.Frame((2 << 20) / mem.FrameSize)
	kernelPoolFrames = uint32((2 << 20) / mem.FrameSize)

	processPoolBase   = pmm.Frame((4 << 20) / mem.FrameSize)
	processPoolFrames = uint32((28 << 20) / mem.FrameSize)

	holeBase   = pmm.Frame((15 << 20) / mem.FrameSize)
	holeFrames = uint32((1 << 20) / mem.FrameSize)

	sharedSize = mem.Size(4 << 20)

	heapBase = uintptr(1 << 30)
	heapSize = mem.Size(256 << 20)
)

func main() {
	boot.Bootstrap(boot.Params{
		KernelPoolBase:    kernelPoolBase,
		KernelPoolFrames:  kernelPoolFrames,
		ProcessPoolBase:   processPoolBase,
		ProcessPoolFrames: processPoolFrames,
		HoleBase:          holeBase,
		HoleFrames:        holeFrames,
		SharedSize:        sharedSize,
		HeapBase:          heapBase,
		HeapSize:          heapSize,
	})

	boot.Halt()
}
