// Package hal collects the hardware-abstraction seams that the memory core
// consumes but does not implement: a console sink and (via kernel/cpu and
// kernel/irq) the control-register and interrupt-binding primitives. Concrete
// drivers for real hardware are out of scope for this module.
package hal

// Console is the write-only sink that kernel/kfmt/early formats onto. A real
// kernel backs it with a VGA/serial driver; this module ships only the
// trivial implementations below, since a console driver is an external
// collaborator (see spec §1).
type Console interface {
	WriteByte(b byte)
	Write(p []byte)
}

// ActiveConsole is the console currently receiving kernel diagnostics. It
// defaults to a discarding console so that code can run (and be tested)
// before a real console is attached.
var ActiveConsole Console = NullConsole{}

// NullConsole discards everything written to it.
type NullConsole struct{}

// WriteByte implements Console.
func (NullConsole) WriteByte(byte) {}

// Write implements Console.
func (NullConsole) Write([]byte) {}

// BufferConsole accumulates everything written to it in memory, so that
// output sent through early.Printf can be read back when it is installed
// as ActiveConsole.
type BufferConsole struct {
	buf []byte
}

// WriteByte implements Console.
func (c *BufferConsole) WriteByte(b byte) {
	c.buf = append(c.buf, b)
}

// Write implements Console.
func (c *BufferConsole) Write(p []byte) {
	c.buf = append(c.buf, p...)
}

// String returns everything written so far.
func (c *BufferConsole) String() string {
	return string(c.buf)
}

// Reset clears the accumulated buffer.
func (c *BufferConsole) Reset() {
	c.buf = c.buf[:0]
}
