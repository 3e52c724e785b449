package kernel

import (
	"memkern/kernel/cpu"
	"memkern/kernel/kfmt/early"
)

// HaltFunc is called by Panic to stop the CPU. It is exported, not just a
// package-level var, because every package in this module can raise a
// fatal error directly (spec §7 routes invalid-release, foreign-frame,
// double-map and friends straight to Panic from deep inside pmm/vmm code,
// not just from kernel itself) and their tests need the same seam
// gopher-os gives its own cpuHaltFn: a way to keep a triggered halt from
// hanging the test process.
var HaltFunc = cpu.Halt

// Panic prints a diagnostic for err (if not nil) and halts the CPU. Every
// "fatal" disposition in this module's error-handling design routes through
// here; none of the callers that invoke Panic expect it to return.
func Panic(err *Error) {
	early.Printf("\n---------------------------------------\n")
	if err != nil {
		early.Printf("[%s] fatal: %s\n", err.Module, err.Message)
	}
	early.Printf("*** kernel panic: system halted ***\n")
	early.Printf("---------------------------------------\n")

	HaltFunc()
}
