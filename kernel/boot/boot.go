// Package boot wires the four memory-management components together into
// the boot sequence spec §2 describes in prose but never gives an
// operation to: build the two process-wide frame pools, initialize
// paging, construct and load the kernel page table, enable paging, and
// finally stand up the heap's VM Region Pool. Grounded on
// gopher-os/kernel/kmain.Kmain's own init chain and, for the pool-building
// details (external info-frame for the process pool, punching a hole for
// a memory-mapped gap), on the reference kernel's own boot routine.
package boot

import (
	"memkern/kernel"
	"memkern/kernel/irq"
	"memkern/kernel/kfmt/early"
	"memkern/kernel/mem"
	"memkern/kernel/mem/pmm"
	"memkern/kernel/mem/vmm"
)

var errKmainReturned = &kernel.Error{Module: "boot", Message: "Bootstrap returned"}

// Params carries the boot-time values gopher-os's Kmain instead receives
// as bootloader-supplied arguments: this module has no bootloader, so
// they are plain fields.
type Params struct {
	// KernelPoolBase, KernelPoolFrames describe the kernel's own frame
	// range. Its bitmap lives inside the pool itself (info_frame == 0).
	KernelPoolBase   pmm.Frame
	KernelPoolFrames uint32

	// ProcessPoolBase, ProcessPoolFrames describe the range handed out
	// to everything else. Its bitmap is stored in frames borrowed from
	// the kernel pool, mirroring the reference kernel's own boot
	// sequence rather than paying for it out of its own range.
	ProcessPoolBase   pmm.Frame
	ProcessPoolFrames uint32

	// HoleBase, HoleFrames punch out a hardware gap (e.g. MMIO) inside
	// the process pool before anything can be allocated from it.
	// Both zero means "no hole".
	HoleBase   pmm.Frame
	HoleFrames uint32

	// SharedSize is the size, in bytes, of the low linear region every
	// address space direct-maps identically.
	SharedSize mem.Size

	// HeapBase, HeapSize describe the virtual arena backing new/delete.
	HeapBase uintptr
	HeapSize mem.Size
}

// Result is what a successful Bootstrap hands back to the rest of the
// kernel: the loaded page table and the VM Region Pool a heap allocator
// should be built on top of.
type Result struct {
	PageTable *vmm.PageTable
	HeapPool  *vmm.VMPool
}

// Bootstrap takes the machine from raw physical memory to a paged kernel
// address space with a registered heap arena, in the order spec §2's
// "Data flow at boot" describes.
func Bootstrap(cfg Params) *Result {
	kernelPool := pmm.NewFramePool(pmm.Params{
		Base:    cfg.KernelPoolBase,
		NFrames: cfg.KernelPoolFrames,
	})
	early.Printf("boot: kernel frame pool ready (%d frames at %d)\n", uint64(cfg.KernelPoolFrames), uint64(cfg.KernelPoolBase))

	nInfo := pmm.NeededInfoFrames(cfg.ProcessPoolFrames)
	infoFrame := kernelPool.GetFrames(nInfo)
	processPool := pmm.NewFramePool(pmm.Params{
		Base:        cfg.ProcessPoolBase,
		NFrames:     cfg.ProcessPoolFrames,
		InfoFrame:   infoFrame,
		NInfoFrames: nInfo,
	})
	early.Printf("boot: process frame pool ready (%d frames at %d)\n", uint64(cfg.ProcessPoolFrames), uint64(cfg.ProcessPoolBase))

	if cfg.HoleFrames > 0 {
		processPool.MarkInaccessible(cfg.HoleBase, cfg.HoleFrames)
		early.Printf("boot: reserved %d hole frames at %d\n", uint64(cfg.HoleFrames), uint64(cfg.HoleBase))
	}

	irq.BindException(irq.PageFaultVector, func(regs *irq.Registers) {
		current().HandleFault(regs)
	})

	vmm.InitPaging(kernelPool, processPool, cfg.SharedSize)

	pt := vmm.New()
	pt.Load()
	early.Printf("boot: kernel page table loaded\n")

	vmm.EnablePaging()
	early.Printf("boot: paging enabled\n")

	setCurrent(pt)

	heapPool := vmm.NewVMPool(cfg.HeapBase, cfg.HeapSize, processPool, pt, true)
	early.Printf("boot: heap VM pool registered at %x\n", uint64(cfg.HeapBase))

	return &Result{PageTable: pt, HeapPool: heapPool}
}

// currentPT is the page table the page-fault handler bound in Bootstrap
// dispatches into. It exists because irq.Handler takes no receiver: the
// dispatcher only knows about the exception vector, not which address
// space faulted (this module has exactly one, the kernel's own).
var currentPT *vmm.PageTable

func setCurrent(pt *vmm.PageTable) { currentPT = pt }
func current() *vmm.PageTable      { return currentPT }

// Halt reports Bootstrap having returned, which should never happen: the
// caller is expected to fall through into the scheduler's idle loop, an
// external collaborator out of scope for this module.
func Halt() {
	kernel.Panic(errKmainReturned)
}
