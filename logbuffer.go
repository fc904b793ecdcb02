package ipc

import (
	"math/bits"
)

// PartitionCount is the fixed number of rotating term partitions backing
// every log buffer.
const PartitionCount = 3

// MinTermLength is the smallest termLength a log buffer may be created with.
// termLength must always be a power of two at least this large.
const MinTermLength = 64 * 1024

// FrameAlignment is the byte alignment every frame (and therefore every
// cleaned region boundary) must respect.
const FrameAlignment = 32

// frameLengthFieldSize is the width of the leading frame-length word that
// cleanBuffer must release-store last.
const frameLengthFieldSize = 8

// LogMetadata is the log's metadata header: term tail counters, active term
// count, the immutable stream parameters and the end-of-stream position.
//
// It is held in process memory and is not written into the metadata region
// of the mapped log file (MappedLog.MetadataBytes), so another process that
// maps the same file does not see these fields. Every mutation after
// construction still goes through an ordered store and every read through a
// volatile load — the same counters discipline Position gives allocated
// counters, just applied to metadata fields directly.
type LogMetadata struct {
	termTailCounters [PartitionCount]Position
	activeTermCount  Position

	initialTermID int32
	mtuLength     int32
	termLength    int32
	pageSize      int32
	correlationID int64

	isConnected          Position
	activeTransportCount Position
	endOfStreamPosition  Position

	defaultFrameHeader [FrameAlignment]byte
}

// ReplayInit carries the (termId, termOffset) pair a publication resumes
// from when constructed over an archived replay position instead of a fresh
// stream.
type ReplayInit struct {
	TermID     int32
	TermOffset uint32
}

// packTermTail packs (termId, termOffset) into the 64-bit representation
// used by termTailCounters.
func packTermTail(termID int32, termOffset uint32) int64 {
	return (int64(termID) << 32) | int64(termOffset)
}

// unpackTermTail splits a packed term tail counter back into its parts.
func unpackTermTail(v int64) (termID int32, termOffset uint32) {
	return int32(v >> 32), uint32(v)
}

// newLogMetadata initializes a LogMetadata. replay is nil for a fresh
// stream; non-nil to seed the active partition at a
// mid-stream resume position.
func newLogMetadata(initialTermID int32, termLength, mtuLength, pageSize int32, correlationID int64, replay *ReplayInit) *LogMetadata {
	md := &LogMetadata{
		initialTermID: initialTermID,
		mtuLength:     mtuLength,
		termLength:    termLength,
		pageSize:      pageSize,
		correlationID: correlationID,
	}
	md.endOfStreamPosition.SetOrdered(int64(^uint64(0) >> 1)) // math.MaxInt64, avoids importing math for one constant

	if replay == nil {
		md.termTailCounters[0].SetOrdered(packTermTail(initialTermID, 0))
		for i := 1; i < PartitionCount; i++ {
			md.termTailCounters[i].SetOrdered(packTermTail(initialTermID+int32(i)-PartitionCount, 0))
		}
		md.activeTermCount.SetOrdered(0)
		return md
	}

	// Replay-init mode: the active index is derived from how far the
	// resumed term is past the initial term; other partitions are seeded as
	// if the stream had been rotating normally up to that point.
	activeIndex := int(mod(int64(replay.TermID-initialTermID), PartitionCount))
	for k := 0; k < PartitionCount; k++ {
		idx := (activeIndex + k) % PartitionCount
		if k == 0 {
			md.termTailCounters[idx].SetOrdered(packTermTail(replay.TermID, replay.TermOffset))
			continue
		}
		md.termTailCounters[idx].SetOrdered(packTermTail(replay.TermID+int32(k)-PartitionCount, 0))
	}
	// The replay-init activeTermCount is authoritative here, not masked by a
	// later unconditional zero.
	md.activeTermCount.SetOrdered(int64(replay.TermID - initialTermID))
	return md
}

func mod(a, n int64) int64 {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// ActiveTermCount returns the current active-partition generation.
func (md *LogMetadata) ActiveTermCount() int32 {
	return int32(md.activeTermCount.GetVolatile())
}

// ActivePartitionIndex returns activeTermCount mod P.
func (md *LogMetadata) ActivePartitionIndex() int {
	return int(mod(md.activeTermCount.GetVolatile(), PartitionCount))
}

// TermLength returns the fixed term length this metadata was created with.
func (md *LogMetadata) TermLength() int32 { return md.termLength }

// InitialTermID returns the stream's initial term id.
func (md *LogMetadata) InitialTermID() int32 { return md.initialTermID }

// PositionBitsToShift returns log2(termLength), used to convert between a
// (termId, termOffset) pair and a flat stream position.
func PositionBitsToShift(termLength int32) uint {
	return uint(bits.TrailingZeros32(uint32(termLength)))
}

// ComputePosition converts a (termId, termOffset) pair into a flat stream
// position relative to initialTermId.
func ComputePosition(termID int32, termOffset uint32, positionBitsToShift uint, initialTermID int32) int64 {
	termCount := int64(termID - initialTermID)
	return (termCount << positionBitsToShift) + int64(termOffset)
}

// ComputeTermOffset returns the offset within a term for a given stream
// position.
func ComputeTermOffset(position int64, positionBitsToShift uint) uint32 {
	termLength := int64(1) << positionBitsToShift
	return uint32(position & (termLength - 1))
}

// ComputeTermID returns the term id a given stream position falls in.
func ComputeTermID(position int64, positionBitsToShift uint, initialTermID int32) int32 {
	return initialTermID + int32(position>>positionBitsToShift)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int32) bool {
	return n > 0 && n&(n-1) == 0
}

// ComputedLogLength returns the total byte length a log file of the given
// termLength must have once partitions, metadata, and page alignment are all
// accounted for. metadataLength is left as a parameter rather than a
// constant so embedders that extend the metadata region can still use the
// layout math.
func ComputedLogLength(termLength int32, pageSize int32, metadataLength int32) int64 {
	raw := int64(PartitionCount)*int64(termLength) + int64(metadataLength)
	return alignUp(raw, int64(pageSize))
}

func alignUp(v, align int64) int64 {
	if align <= 0 {
		return v
	}
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + (align - rem)
}

// validateLogParams enforces the InvalidParams checks on construction.
func validateLogParams(termLength, mtuLength, pageSize int32) error {
	if !IsPowerOfTwo(termLength) || termLength < MinTermLength {
		return newConstructError(InvalidParams, "termLength must be a power of two >= MinTermLength", nil)
	}
	if mtuLength > termLength/2 {
		return newConstructError(InvalidParams, "mtuLength must be <= termLength/2", nil)
	}
	if !IsPowerOfTwo(pageSize) {
		return newConstructError(InvalidParams, "pageSize must be a power of two", nil)
	}
	return nil
}
