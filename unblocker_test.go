package ipc

import "testing"

func TestUnblockerCommittedFrameIsNoOp(t *testing.T) {
	term := make([]byte, 4096)
	writeFrameLengthOrdered(term, 0, 64)

	var u Unblocker
	newOffset, advanced := u.TryUnblock(term, int32(len(term)), 0)
	if advanced {
		t.Errorf("TryUnblock() advanced = true for a committed frame, want false")
	}
	if newOffset != 0 {
		t.Errorf("TryUnblock() newOffset = %d, want 0", newOffset)
	}
}

func TestUnblockerReservedFrameGetsPadded(t *testing.T) {
	term := make([]byte, 4096)
	writeFrameLengthOrdered(term, 0, -96) // reserved but never committed

	var u Unblocker
	newOffset, advanced := u.TryUnblock(term, int32(len(term)), 0)
	if !advanced {
		t.Fatalf("TryUnblock() advanced = false, want true")
	}
	if got := readFrameLength(term, 0); got != 96 {
		t.Errorf("frame length after unblock = %d, want 96", got)
	}
	wantOffset := uint32(alignUp(96, FrameAlignment))
	if newOffset != wantOffset {
		t.Errorf("newOffset = %d, want %d", newOffset, wantOffset)
	}
}

func TestUnblockerGapIsBridged(t *testing.T) {
	term := make([]byte, 4096)
	// offset 0 is zero (never written); offset 64 has a committed frame.
	writeFrameLengthOrdered(term, 64, 32)

	var u Unblocker
	newOffset, advanced := u.TryUnblock(term, int32(len(term)), 0)
	if !advanced {
		t.Fatalf("TryUnblock() advanced = false, want true")
	}
	if got := readFrameLength(term, 0); got != 64 {
		t.Errorf("padding frame length = %d, want 64", got)
	}
	if newOffset != 64 {
		t.Errorf("newOffset = %d, want 64", newOffset)
	}
}

func TestUnblockerUnwrittenTailIsNotUnblocked(t *testing.T) {
	term := make([]byte, 4096) // entirely zero: legitimate unwritten tail

	var u Unblocker
	_, advanced := u.TryUnblock(term, int32(len(term)), 0)
	if advanced {
		t.Errorf("TryUnblock() advanced = true for an unwritten tail, want false")
	}
}
