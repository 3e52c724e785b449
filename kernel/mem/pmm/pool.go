package pmm

import (
	"memkern/kernel"
	"memkern/kernel/errors"
	"memkern/kernel/mem"
)

var (
	errBadConfig      = &kernel.Error{Module: "pmm", Message: "external info-frame count too small for pool size"}
	errInvalidRelease = &kernel.Error{Module: "pmm", Message: "release of a non-HEAD frame"}
	errForeignFrame   = &kernel.Error{Module: "pmm", Message: "release of a frame owned by no pool"}
)

// Params configures a new FramePool (spec §4.A construct).
type Params struct {
	// Base is the frame number of the first frame in the pool's range.
	Base Frame

	// NFrames is the number of frames in [Base, Base+NFrames).
	NFrames uint32

	// InfoFrame, when non-zero, names an external range of frames that
	// holds the pool's bitmap; NInfoFrames must then be at least
	// NeededInfoFrames(NFrames). When InfoFrame is zero, the bitmap is
	// stored inside the pool itself, at frame offset 0.
	InfoFrame Frame

	// NInfoFrames is the size, in frames, of the external info-frame
	// range. Ignored when InfoFrame is zero.
	NInfoFrames uint32
}

// FramePool partitions a contiguous physical frame range and hands out
// contiguous runs of frames on request (spec §3.2, §4.A).
type FramePool struct {
	baseFrame  Frame
	nFrames    uint32
	freeFrames uint32
	bitmap     []byte
	infoFrame  Frame
}

// Stats reports the read-only counters callers and tests use to observe a
// pool's occupancy without reaching into its private bitmap.
type Stats struct {
	Base       Frame
	NFrames    uint32
	FreeFrames uint32
}

// Stats returns a snapshot of the pool's public counters.
func (p *FramePool) Stats() Stats {
	return Stats{Base: p.baseFrame, NFrames: p.nFrames, FreeFrames: p.freeFrames}
}

// NeededInfoFrames returns the number of frames required to store the free
// bitmap for a pool of nFrames frames: ceil(ceil(nFrames/4) / FrameSize).
func NeededInfoFrames(nFrames uint32) uint32 {
	bitmapBytes := mem.Size((nFrames + 3) / 4)
	return uint32((bitmapBytes + mem.FrameSize - 1) / mem.FrameSize)
}

// validate reports errors.ErrInvalidParamValue for a pool configuration
// that is nonsensical on its face, before any frame accounting is touched.
func (params Params) validate() error {
	if params.NFrames == 0 {
		return errors.ErrInvalidParamValue
	}
	return nil
}

// NewFramePool constructs a FramePool over params.Base with the given
// frame count and registers it with the global registry (spec §4.A, §4.B).
// A zero-length pool or a mismatched external info-frame count are both
// bad-configuration errors; boot time has no caller able to recover from
// either, so both are fatal (spec §7).
func NewFramePool(params Params) *FramePool {
	if err := params.validate(); err != nil {
		kernel.Panic(&kernel.Error{Module: "pmm", Message: err.Error()})
		return nil
	}

	bitmapBytes := (params.NFrames + 3) / 4

	p := &FramePool{
		baseFrame:  params.Base,
		nFrames:    params.NFrames,
		freeFrames: params.NFrames,
		bitmap:     make([]byte, bitmapBytes),
	}
	for i := range p.bitmap {
		p.bitmap[i] = 0xFF // every pair 11 == FREE
	}

	needed := NeededInfoFrames(params.NFrames)
	if params.InfoFrame == 0 {
		p.infoFrame = params.Base
		if needed > 0 {
			p.markRun(0, needed)
			p.freeFrames -= needed
		}
	} else {
		if params.NInfoFrames < needed {
			kernel.Panic(errBadConfig)
			return nil
		}
		p.infoFrame = params.InfoFrame
	}

	register(p)
	return p
}

// GetFrames allocates the first free run of n contiguous frames it finds,
// scanning from the start of the pool on every call (spec §4.A). It returns
// 0, not an error, when no run is large enough — out-of-memory is
// recoverable and left to the caller (spec §7).
func (p *FramePool) GetFrames(n uint32) Frame {
	if n == 0 || n > p.freeFrames {
		return 0
	}

	pos := uint32(0)
	for pos < p.nFrames {
		start := p.firstFreeFrom(pos)
		if start >= p.nFrames {
			return 0
		}

		run := p.freeRunLength(start, n)
		if run >= n {
			p.markRun(start, n)
			p.freeFrames -= n
			return p.baseFrame + Frame(start)
		}

		pos = start + run
	}
	return 0
}

// MarkInaccessible behaves like GetFrames except that the caller names the
// starting frame explicitly, rather than letting the pool search for one.
// It is used to punch a hole for a hardware MMIO gap, or to carve out the
// pool's own bitmap storage.
func (p *FramePool) MarkInaccessible(base Frame, n uint32) Frame {
	if n == 0 || base < p.baseFrame {
		return 0
	}

	offset := uint32(base - p.baseFrame)
	if offset >= p.nFrames || p.nFrames-offset < n || n > p.freeFrames {
		return 0
	}
	if p.freeRunLength(offset, n) < n {
		return 0
	}

	p.markRun(offset, n)
	p.freeFrames -= n
	return base
}

// release marks the run starting at the given HEAD frame as FREE, halting
// with errInvalidRelease if first is not a HEAD frame (spec §4.A, I6).
func (p *FramePool) release(first Frame) {
	offset := uint32(first - p.baseFrame)
	byteIdx, pos := int(offset/4), int(offset%4)
	if getState(p.bitmap[byteIdx], pos) != stateHead {
		kernel.Panic(errInvalidRelease)
		return
	}
	setState(&p.bitmap[byteIdx], pos, stateFree)
	freed := uint32(1)

	frame := offset + 1
	for frame < p.nFrames {
		byteIdx = int(frame / 4)
		intraStart := int(frame % 4)
		intraEnd := 4
		if byteIdx == len(p.bitmap)-1 {
			if last := int(p.nFrames - uint32(byteIdx)*4); last < 4 {
				intraEnd = last
			}
		}

		b := p.bitmap[byteIdx]
		if intraStart == 0 && intraEnd == 4 && b == 0x00 {
			p.bitmap[byteIdx] = 0xFF
			freed += 4
			frame += 4
			continue
		}

		stop := firstNonFollowInByte(b, intraStart, intraEnd)
		for i := intraStart; i < stop; i++ {
			setState(&p.bitmap[byteIdx], i, stateFree)
		}
		freed += uint32(stop - intraStart)
		frame = uint32(byteIdx)*4 + uint32(stop)
		if stop < intraEnd {
			break
		}
	}

	p.freeFrames += freed
}

// markRun writes a HEAD frame at start followed by n-1 FOLLOW frames.
func (p *FramePool) markRun(start, n uint32) {
	setState(&p.bitmap[start/4], int(start%4), stateHead)
	for i := start + 1; i < start+n; i++ {
		setState(&p.bitmap[i/4], int(i%4), stateFollow)
	}
}

// firstFreeFrom returns the frame number of the first FREE frame at or
// after pos, or p.nFrames if none exists. Whole FOLLOW bytes (four allocated
// frames at once) are skipped in a single comparison, per spec §4.A's
// required bit tricks.
func (p *FramePool) firstFreeFrom(pos uint32) uint32 {
	for pos < p.nFrames {
		byteIdx := int(pos / 4)
		intraStart := int(pos % 4)
		intraEnd := 4
		if byteIdx == len(p.bitmap)-1 {
			if last := int(p.nFrames - uint32(byteIdx)*4); last < 4 {
				intraEnd = last
			}
		}

		b := p.bitmap[byteIdx]
		if intraStart == 0 && intraEnd == 4 && b == 0x00 {
			pos += 4
			continue
		}

		if found := firstFreeInByte(b, intraStart, intraEnd); found < intraEnd {
			return uint32(byteIdx)*4 + uint32(found)
		}
		pos = uint32(byteIdx)*4 + uint32(intraEnd)
	}
	return p.nFrames
}

// freeRunLength measures the length of the unbroken FREE run starting at
// start, stopping early once it reaches limit frames (callers only need to
// know whether the run is at least limit long).
func (p *FramePool) freeRunLength(start, limit uint32) uint32 {
	pos := start
	for pos < p.nFrames && pos-start < limit {
		byteIdx := int(pos / 4)
		intraStart := int(pos % 4)
		intraEnd := 4
		if remaining := limit - (pos - start); uint32(intraEnd-intraStart) > remaining {
			intraEnd = intraStart + int(remaining)
		}
		if byteIdx == len(p.bitmap)-1 {
			if last := int(p.nFrames - uint32(byteIdx)*4); last < intraEnd {
				intraEnd = last
			}
		}

		b := p.bitmap[byteIdx]
		if intraStart == 0 && intraEnd == 4 && b == 0xFF {
			pos += 4
			continue
		}

		nonFree := intraEnd
		for i := intraStart; i < intraEnd; i++ {
			if getState(b, i) != stateFree {
				nonFree = i
				break
			}
		}
		pos = uint32(byteIdx)*4 + uint32(nonFree)
		if nonFree < intraEnd {
			break
		}
	}
	return pos - start
}
