package ipc

import "time"

// DefaultUnblockTimeout, DefaultUntetheredWindowLimitTimeout, and
// DefaultUntetheredRestingTimeout are the conductor-side defaults threaded
// through a Context as its timeouts.
const (
	DefaultUnblockTimeout               = 10 * time.Second
	DefaultUntetheredWindowLimitTimeout = 5 * time.Second
	DefaultUntetheredRestingTimeout     = 5 * time.Second

	DefaultMetadataLength int32 = 4096
	DefaultPageSize       int32 = 4096
)

// Context bundles every collaborator and timeout that must be
// threaded through construction and every onTimeEvent call, rather than
// reached for as global state. There is no global state at the publication
// level; everything a publication needs comes from here.
type Context struct {
	Clock           Clock
	FSProbe         FileSystemProbe
	Mapper          LogMapper
	CountersManager CountersManager
	SystemCounters  SystemCounters
	Logger          Logger

	// IPCPublicationWindowLength is the configured flow-control window; 0
	// means "use termLength/2".
	IPCPublicationWindowLength int32

	UnblockTimeoutNs               int64
	UntetheredWindowLimitTimeoutNs int64
	UntetheredRestingTimeoutNs     int64

	MetadataLength int32
	PageSize       int32

	// LogDir is the directory publication log files are created under.
	LogDir string
}

// DefaultContext returns production defaults: a system clock, a real statfs
// probe, a real mmap-backed mapper, an in-process counters manager, and
// atomic system counters. Embedders typically override LogDir and leave the
// rest as-is.
func DefaultContext(logDir string) *Context {
	return &Context{
		Clock:                           SystemClock{},
		FSProbe:                         StatfsProbe{},
		Mapper:                          UnixMapper{},
		CountersManager:                 NewInMemoryCountersManager(),
		SystemCounters:                  NewAtomicSystemCounters(),
		Logger:                          NoOpLogger{},
		UnblockTimeoutNs:                DefaultUnblockTimeout.Nanoseconds(),
		UntetheredWindowLimitTimeoutNs:  DefaultUntetheredWindowLimitTimeout.Nanoseconds(),
		UntetheredRestingTimeoutNs:      DefaultUntetheredRestingTimeout.Nanoseconds(),
		MetadataLength:                  DefaultMetadataLength,
		PageSize:                        DefaultPageSize,
		LogDir:                          logDir,
	}
}

// NewTestContext returns a Context wired entirely with in-process test
// doubles (manual clock, in-memory mapper, fixed space probe) so publication
// logic can be exercised deterministically without touching the filesystem.
func NewTestContext() (*Context, *ManualClock) {
	clock := NewManualClock(0)
	ctx := &Context{
		Clock:                          clock,
		FSProbe:                        FixedSpaceProbe{Bytes: 1 << 40},
		Mapper:                         &InMemoryMapper{},
		CountersManager:                NewInMemoryCountersManager(),
		SystemCounters:                 NewAtomicSystemCounters(),
		Logger:                         NoOpLogger{},
		UnblockTimeoutNs:               DefaultUnblockTimeout.Nanoseconds(),
		UntetheredWindowLimitTimeoutNs: DefaultUntetheredWindowLimitTimeout.Nanoseconds(),
		UntetheredRestingTimeoutNs:     DefaultUntetheredRestingTimeout.Nanoseconds(),
		MetadataLength:                 DefaultMetadataLength,
		PageSize:                       DefaultPageSize,
		LogDir:                         "",
	}
	return ctx, clock
}

// producerWindowLength implements the flow-control window policy:
// min(configured, termLength/2), with configured <= 0 meaning "use the max".
func producerWindowLength(configured, termLength int32) int32 {
	half := termLength / 2
	if configured <= 0 || configured > half {
		return half
	}
	return configured
}
