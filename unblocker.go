package ipc

import "encoding/binary"

// readFrameLength and writeFrameLengthOrdered read/write the 8-byte frame-length word that leads every
// frame in a term partition. A positive value is a committed
// frame of that byte length; zero means the slot has never been written;
// negative means a producer reserved the slot (via an atomic tail advance)
// but crashed or stalled before committing the frame — the condition the
// unblocker exists to repair.
func readFrameLength(term []byte, offset uint32) int64 {
	return int64(binary.LittleEndian.Uint64(term[offset : offset+frameLengthFieldSize]))
}

func writeFrameLengthOrdered(term []byte, offset uint32, length int64) {
	// Ordering here is about sequencing relative to the rest of the frame
	// body, not about this single store needing a fence beyond what the Go
	// memory model already gives a plain aligned store; callers are
	// responsible for writing payload/padding bytes before calling this.
	binary.LittleEndian.PutUint64(term[offset:offset+frameLengthFieldSize], uint64(length))
}

// Unblocker inspects a term partition for a stalled or abandoned frame slot
// and advances past it. It is the only mechanism allowed to move
// the producer past a frame it did not author.
type Unblocker struct{}

// TryUnblock inspects the frame at termOffset within term (whose length is
// termLength) and, if it finds a stalled slot, writes a padding frame over it
// and returns the offset just past the padding. advanced is false if nothing
// needed repair at this offset.
func (Unblocker) TryUnblock(term []byte, termLength int32, termOffset uint32) (newOffset uint32, advanced bool) {
	if termOffset >= uint32(termLength) {
		return termOffset, false
	}

	length := readFrameLength(term, termOffset)

	switch {
	case length > 0:
		// Already a committed frame; nothing stalled here.
		return termOffset, false

	case length < 0:
		// Reservation taken but never committed: turn it into a padding
		// frame covering exactly the reserved span, freeing the stuck
		// producer's successor to continue past it.
		paddingLength := -length
		writeFrameLengthOrdered(term, termOffset, paddingLength)
		return termOffset + uint32(alignUp(paddingLength, FrameAlignment)), true

	default: // length == 0
		// Either this is simply the unwritten tail (nothing to unblock) or
		// there is a gap: a later frame was committed past an offset that
		// was reserved-then-abandoned without ever flipping negative (e.g.
		// the reservation advanced the tail but crashed before writing any
		// header at all). Scan forward for the next non-zero frame length;
		// if found, the gap between here and there is dead space that must
		// be bridged with padding so readers don't stall on a frame length
		// of zero forever.
		for scan := termOffset + FrameAlignment; scan < uint32(termLength); scan += FrameAlignment {
			if readFrameLength(term, scan) != 0 {
				gap := int64(scan - termOffset)
				writeFrameLengthOrdered(term, termOffset, gap)
				return scan, true
			}
		}
		return termOffset, false
	}
}
