package ipc

import "testing"

func TestPackUnpackTermTail(t *testing.T) {
	tests := []struct {
		termID     int32
		termOffset uint32
	}{
		{0, 0},
		{5, 128},
		{-3, 65536},
		{1 << 20, 0},
	}

	for _, tt := range tests {
		packed := packTermTail(tt.termID, tt.termOffset)
		gotID, gotOffset := unpackTermTail(packed)
		if gotID != tt.termID || gotOffset != tt.termOffset {
			t.Errorf("packTermTail(%d, %d) round trip = (%d, %d)", tt.termID, tt.termOffset, gotID, gotOffset)
		}
	}
}

func TestNewLogMetadataFreshStream(t *testing.T) {
	md := newLogMetadata(7, MinTermLength, 1408, 4096, 42, nil)

	if got := md.ActiveTermCount(); got != 0 {
		t.Errorf("ActiveTermCount() = %d, want 0", got)
	}
	if got := md.ActivePartitionIndex(); got != 0 {
		t.Errorf("ActivePartitionIndex() = %d, want 0", got)
	}

	gotID, gotOffset := unpackTermTail(md.termTailCounters[0].GetVolatile())
	if gotID != 7 || gotOffset != 0 {
		t.Errorf("termTailCounters[0] = (%d, %d), want (7, 0)", gotID, gotOffset)
	}
	for i := 1; i < PartitionCount; i++ {
		gotID, gotOffset := unpackTermTail(md.termTailCounters[i].GetVolatile())
		wantID := int32(7 + i - PartitionCount)
		if gotID != wantID || gotOffset != 0 {
			t.Errorf("termTailCounters[%d] = (%d, %d), want (%d, 0)", i, gotID, gotOffset, wantID)
		}
	}

	const maxInt64 = int64(^uint64(0) >> 1)
	if got := md.endOfStreamPosition.GetVolatile(); got != maxInt64 {
		t.Errorf("endOfStreamPosition = %d, want MaxInt64", got)
	}
}

func TestNewLogMetadataReplayInit(t *testing.T) {
	initialTermID := int32(7)
	replay := &ReplayInit{TermID: 10, TermOffset: 512}

	md := newLogMetadata(initialTermID, MinTermLength, 1408, 4096, 42, replay)

	// 's Open Question resolution: the replay-init activeTermCount must be
	// the final value, not masked by a later unconditional zero.
	if got := md.ActiveTermCount(); got != int32(replay.TermID-initialTermID) {
		t.Errorf("ActiveTermCount() = %d, want %d", got, replay.TermID-initialTermID)
	}

	activeIdx := md.ActivePartitionIndex()
	gotID, gotOffset := unpackTermTail(md.termTailCounters[activeIdx].GetVolatile())
	if gotID != replay.TermID || gotOffset != replay.TermOffset {
		t.Errorf("active partition tail = (%d, %d), want (%d, %d)", gotID, gotOffset, replay.TermID, replay.TermOffset)
	}
}

func TestComputePositionRoundTrip(t *testing.T) {
	const termLength = int32(1 << 17)
	shift := PositionBitsToShift(termLength)
	initialTermID := int32(3)

	pos := ComputePosition(5, 4096, shift, initialTermID)
	gotTermID := ComputeTermID(pos, shift, initialTermID)
	gotOffset := ComputeTermOffset(pos, shift)

	if gotTermID != 5 || gotOffset != 4096 {
		t.Errorf("round trip = (termID=%d, offset=%d), want (5, 4096)", gotTermID, gotOffset)
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		n    int32
		want bool
	}{
		{0, false},
		{1, true},
		{2, true},
		{3, false},
		{1 << 20, true},
		{-4, false},
	}
	for _, tt := range tests {
		if got := IsPowerOfTwo(tt.n); got != tt.want {
			t.Errorf("IsPowerOfTwo(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestComputedLogLengthPageAligned(t *testing.T) {
	got := ComputedLogLength(MinTermLength, 4096, 4096)
	if got%4096 != 0 {
		t.Errorf("ComputedLogLength() = %d, not page-aligned", got)
	}
	want := int64(PartitionCount)*int64(MinTermLength) + 4096
	if got != want {
		t.Errorf("ComputedLogLength() = %d, want %d", got, want)
	}
}

func TestValidateLogParams(t *testing.T) {
	tests := []struct {
		name                             string
		termLength, mtuLength, pageSize int32
		wantErr                          bool
	}{
		{"valid", MinTermLength, 1408, 4096, false},
		{"term not power of two", MinTermLength + 1, 1408, 4096, true},
		{"term too small", 1024, 512, 4096, true},
		{"mtu too large", MinTermLength, MinTermLength, 4096, true},
		{"page size not power of two", MinTermLength, 1408, 4097, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateLogParams(tt.termLength, tt.mtuLength, tt.pageSize)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateLogParams() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
