// +build 386

// Package cpu declares the register-level primitives the memory core needs
// from the machine: enabling paging, loading a translation base, flushing
// the TLB, and reading the fault address. Bodies live in architecture
// assembly that is out of scope for this module (spec §1, §6); the
// declarations below are the contract the rest of the module is written
// against, in the same style as gopher-os/kernel/cpu/cpu_amd64.go.
package cpu

// Halt stops instruction execution. Used by kernel.Panic.
func Halt()

// EnablePaging sets the paging-enable bit in the machine's CR0-equivalent
// control register. Idempotent: calling it a second time is a no-op on real
// hardware.
func EnablePaging()

// LoadPageDirectory writes the physical address of a page directory to the
// machine's CR3-equivalent translation-base register.
func LoadPageDirectory(physAddr uintptr)

// FlushTLB reloads the translation-base register with its current value,
// invalidating all cached translations. Used after freeing a page so a
// subsequent allocation reusing the same virtual address does not observe a
// stale mapping (spec §5, "TLB discipline").
func FlushTLB()

// FaultAddress reads the machine's CR2-equivalent fault-address register,
// valid only while handling a page fault.
func FaultAddress() uintptr
