// +build 386

package mem

const (
	// FrameShift is log2(FrameSize). Used to convert a frame/page number
	// to a byte address (shift left) and back (shift right).
	FrameShift = 12

	// FrameSize is the size in bytes of a physical frame or virtual page
	// on this target. It matches the hardware page size.
	FrameSize = Size(1 << FrameShift)

	// PointerShift is log2(sizeof(uintptr)) on this target; used when
	// walking arrays of page-table entries.
	PointerShift = 2
)
