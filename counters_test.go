package ipc

import "testing"

func TestPositionOrderedStoreVolatileLoad(t *testing.T) {
	var p Position
	p.SetOrdered(42)
	if got := p.GetVolatile(); got != 42 {
		t.Errorf("GetVolatile() = %d, want 42", got)
	}

	if got := p.IncrementOrdered(8); got != 50 {
		t.Errorf("IncrementOrdered(8) = %d, want 50", got)
	}
	if got := p.GetVolatile(); got != 50 {
		t.Errorf("GetVolatile() after increment = %d, want 50", got)
	}
}

func TestInMemoryCountersManagerAllocateFreeReuse(t *testing.T) {
	m := NewInMemoryCountersManager()

	id1, pos1, err := m.Allocate("first")
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	pos1.SetOrdered(7)

	id2, _, err := m.Allocate("second")
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if id1 == id2 {
		t.Fatalf("Allocate() returned duplicate ids %d, %d", id1, id2)
	}

	m.Free(id1)
	if _, ok := m.Label(id1); ok {
		t.Errorf("Label(%d) found after Free, want not found", id1)
	}

	id3, pos3, err := m.Allocate("third")
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if id3 != id1 {
		t.Errorf("Allocate() after Free = %d, want reused id %d", id3, id1)
	}
	if got := pos3.GetVolatile(); got != 0 {
		t.Errorf("reused counter GetVolatile() = %d, want fresh zero value", got)
	}

	label, ok := m.Label(id2)
	if !ok || label != "second" {
		t.Errorf("Label(%d) = (%q, %v), want (\"second\", true)", id2, label, ok)
	}
}

func TestInMemoryCountersManagerFreeUnknownIsNoOp(t *testing.T) {
	m := NewInMemoryCountersManager()
	m.Free(999)
	if _, ok := m.Label(999); ok {
		t.Errorf("Label(999) found, want not found")
	}
}
