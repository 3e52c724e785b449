// Package irq declares the interrupt-binding surface the memory core relies
// on to receive page faults. Dispatch itself (the IDT, the trap gate, the
// assembly stub that saves registers and calls back into Go) is out of
// scope for this module (spec §1) and lives in the external interrupt
// subsystem; this package is the seam the two sides agree on.
package irq

// PageFaultVector is the exception vector the machine raises on a page
// fault (vector 14 on the target architecture, spec §6).
const PageFaultVector = 14

// Registers is the subset of the trapped machine state a fault handler
// needs. The interrupt dispatcher out of scope for this module is
// responsible for populating it before invoking a Handler.
type Registers struct {
	// FaultAddress is the linear address that caused the fault. On the
	// real machine this is read from CR2 (cpu.FaultAddress); it is
	// carried here explicitly so handlers are testable without a CPU.
	FaultAddress uintptr

	// ErrorCode is the machine-supplied page-fault error code (present,
	// write, user bits). This module's fault handler does not currently
	// branch on it (see spec §4.C's fault state machine), but it is
	// exposed for handlers that want to distinguish read/write faults.
	ErrorCode uintptr
}

// Handler processes a trapped exception.
type Handler func(*Registers)

// handlers holds one Handler per exception vector.
var handlers [32]Handler

// BindException registers h as the handler for the given exception vector.
// It is the registration half of the "attach to interrupt vector 14" out-of-
// scope collaborator described in spec §6; the dispatch loop that reads
// this table on a real trap lives outside this module.
func BindException(vector uint8, h Handler) {
	handlers[vector] = h
}

// Dispatch invokes the handler bound to vector, if any. Provided so tests
// (and a future real dispatcher) can drive the registration table without
// duplicating it.
func Dispatch(vector uint8, regs *Registers) {
	if h := handlers[vector]; h != nil {
		h(regs)
	}
}
