// Package kernel holds the handful of types every other package in this
// module depends on: the fatal error record and the halt entry point.
package kernel

// Error describes a fatal condition raised by the memory core: a violated
// invariant, not a recoverable condition. All kernel errors are declared as
// package-level *Error values rather than constructed with errors.New,
// because the Go allocator is not available for most of the code that can
// raise one.
type Error struct {
	// Module names the subsystem that detected the condition (e.g. "pmm", "vmm").
	Module string

	// Message is a short, static diagnostic string.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Module + ": " + e.Message
}
