package ipc

import "sync/atomic"

// SystemCounters is the process-wide counters surface a conductor exposes to
// every publication it owns. It follows the same shape as a metrics provider: a small set of
// atomic fields plus a point-in-time snapshot, so a conductor can swap in a
// counters-manager-backed implementation (shared across processes) without
// changing publication code.
type SystemCounters interface {
	// IncrementUnblockedPublications records that the unblocker successfully
	// advanced a stalled producer past a frame it did not author.
	IncrementUnblockedPublications()
	// Snapshot returns a point-in-time copy of all counters.
	Snapshot() SystemCountersSnapshot
}

// SystemCountersSnapshot is a point-in-time view of SystemCounters.
type SystemCountersSnapshot struct {
	UnblockedPublications uint64
}

// AtomicSystemCounters implements SystemCounters with plain atomics, the
// in-process analogue of a counters-manager-backed implementation shared
// across driver processes.
type AtomicSystemCounters struct {
	unblockedPublications atomic.Uint64
}

var _ SystemCounters = (*AtomicSystemCounters)(nil)

// NewAtomicSystemCounters creates a zeroed counters set.
func NewAtomicSystemCounters() *AtomicSystemCounters {
	return &AtomicSystemCounters{}
}

func (c *AtomicSystemCounters) IncrementUnblockedPublications() {
	c.unblockedPublications.Add(1)
}

func (c *AtomicSystemCounters) Snapshot() SystemCountersSnapshot {
	return SystemCountersSnapshot{
		UnblockedPublications: c.unblockedPublications.Load(),
	}
}
