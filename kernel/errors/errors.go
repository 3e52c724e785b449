// Package errors provides an allocation-free error type for ordinary Go-API
// misuse (bad arguments passed by a caller) as distinct from the fatal,
// kernel.Panic-routed invariant violations raised by the memory core
// itself. Modeled on gopher-os's own kernel/errors package, which exists
// for the same reason: errors.New is unavailable this early, but returning
// a plain error to a caller that hasn't touched any kernel state yet is
// still the idiomatic thing to do.
package errors

// KernelError is a string-backed error that requires no allocation.
type KernelError string

// Error implements the error interface.
func (e KernelError) Error() string {
	return string(e)
}

// ErrInvalidParamValue reports a constructor argument that is nonsensical
// on its face (e.g. a zero-length arena), detected before any kernel state
// is built. The pmm and vmm constructors halt through kernel.Panic with
// its message rather than returning it.
const ErrInvalidParamValue = KernelError("invalid parameter value")
