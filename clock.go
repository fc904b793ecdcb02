package ipc

import "time"

// Clock supplies a monotonic nanosecond time source. Every timeout in this
// package is measured against it rather than time.Now directly, so that
// lifecycle and untethered-subscription timing can be driven deterministically
// in tests.
//
// Implementations must be non-decreasing for the life of a publication;
// callers never need to guard against a clock that runs backwards.
type Clock interface {
	NowNanos() int64
}

// SystemClock is the production Clock backed by the OS monotonic clock.
type SystemClock struct{}

var _ Clock = SystemClock{}

// processStart anchors SystemClock: its wall reading supplies the epoch and
// its monotonic reading the elapsed time.
var processStart = time.Now()

// NowNanos returns processStart's Unix nanos plus the monotonic time elapsed
// since processStart, so successive calls within a process never decrease,
// even if the wall clock is stepped backwards.
func (SystemClock) NowNanos() int64 {
	return processStart.UnixNano() + int64(time.Since(processStart))
}

// ManualClock is a settable Clock for tests. Zero value starts at nanos 0.
type ManualClock struct {
	nanos int64
}

var _ Clock = (*ManualClock)(nil)

// NewManualClock creates a ManualClock starting at the given nanos value.
func NewManualClock(startNanos int64) *ManualClock {
	return &ManualClock{nanos: startNanos}
}

func (c *ManualClock) NowNanos() int64 {
	return c.nanos
}

// Advance moves the clock forward by delta nanoseconds. delta must be >= 0.
func (c *ManualClock) Advance(delta int64) {
	c.nanos += delta
}

// Set moves the clock to an absolute nanos value. It must not go backwards.
func (c *ManualClock) Set(nanos int64) {
	c.nanos = nanos
}
