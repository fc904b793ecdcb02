package ipc

import "testing"

func TestRegistryFindSharedSkipsExclusiveAndInactive(t *testing.T) {
	ctx, _ := NewTestContext()
	reg := NewRegistry()

	exclusive, err := Create(ctx, Identity{SessionID: 1, StreamID: 5, RegistrationID: 1}, 0, Params{
		TermLength: MinTermLength, MTULength: 1408, PageSize: 4096,
	}, true)
	if err != nil {
		t.Fatalf("Create(exclusive) error = %v", err)
	}
	reg.Add(exclusive)

	if _, ok := reg.FindShared(5); ok {
		t.Errorf("FindShared(5) found an exclusive publication, want not found")
	}

	shared, err := Create(ctx, Identity{SessionID: 2, StreamID: 5, RegistrationID: 2}, 0, Params{
		TermLength: MinTermLength, MTULength: 1408, PageSize: 4096,
	}, false)
	if err != nil {
		t.Fatalf("Create(shared) error = %v", err)
	}
	reg.Add(shared)

	found, ok := reg.FindShared(5)
	if !ok || found.RegistrationID != shared.RegistrationID {
		t.Fatalf("FindShared(5) = (%v, %v), want shared publication", found, ok)
	}

	shared.Decref() // refCount 1 -> 0, transitions to INACTIVE
	if _, ok := reg.FindShared(5); ok {
		t.Errorf("FindShared(5) found an INACTIVE publication, want not found")
	}
}

func TestRegistryRemove(t *testing.T) {
	ctx, _ := NewTestContext()
	reg := NewRegistry()

	pub, err := Create(ctx, Identity{SessionID: 1, StreamID: 9, RegistrationID: 42}, 0, Params{
		TermLength: MinTermLength, MTULength: 1408, PageSize: 4096,
	}, false)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	reg.Add(pub)
	reg.Remove(42)

	if _, ok := reg.Get(42); ok {
		t.Errorf("Get(42) found after Remove, want not found")
	}
	if _, ok := reg.FindShared(9); ok {
		t.Errorf("FindShared(9) found after Remove, want not found")
	}
}
