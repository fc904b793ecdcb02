package ipc

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
)

// PublicationState is a publication's lifecycle state.
type PublicationState int32

const (
	PublicationActive PublicationState = iota
	PublicationInactive
	PublicationLinger
)

func (s PublicationState) String() string {
	switch s {
	case PublicationActive:
		return "ACTIVE"
	case PublicationInactive:
		return "INACTIVE"
	case PublicationLinger:
		return "LINGER"
	default:
		return "UNKNOWN"
	}
}

// Identity names an IPC publication the way conductor-side code looks one
// up: (sessionId, streamId, registrationId).
type Identity struct {
	SessionID      int32
	StreamID       int32
	RegistrationID int64
}

// Params are the construction-time publication parameters.
type Params struct {
	TermLength int32
	MTULength  int32
	IsSparse   bool
	PageSize   int32
	Replay     *ReplayInit // nil unless resuming mid-stream from an archived position
}

// Publication is the in-process object that owns a memory-mapped
// append-only log, coordinates subscribers via shared position counters,
// performs windowed flow control, detects and unblocks stalled publishers,
// and drives the ACTIVE -> INACTIVE -> LINGER lifecycle.
//
// A Publication is only ever driven by a single conductor goroutine; nothing
// here takes a lock, matching the single-threaded-cooperative-per-conductor
// model each publication is driven under. Positions shared with external
// writer/reader processes go through Position's ordered store / volatile
// load.
type Publication struct {
	Identity
	isExclusive bool

	ctx  *Context
	path string

	mappedLog *MappedLog
	metadata  *LogMetadata

	pubPosID  CounterID
	pubPos    *Position
	pubLmtID  CounterID
	pubLmt    *Position

	subscribers *SubscribableSet

	positionBitsToShift uint
	termWindowLength    int32
	tripGain            int32
	unblockTimeoutNs    int64

	consumerPosition                   int64
	lastConsumerPosition               int64
	cleanPosition                      int64
	tripLimit                          int64
	timeOfLastConsumerPositionChangeNs int64

	state                   PublicationState
	timeOfLastStateChangeNs int64
	refCount                int32
	hasReachedEndOfLife     bool

	unblocker Unblocker
}

var _ subscribableHooks = (*Publication)(nil)

// Create constructs an IPC publication: it validates parameters, checks
// usable filesystem space, maps the log, seeds metadata and the position
// counters, and returns a Publication in state ACTIVE with refCount 1.
//
// On any failure, resources already allocated are released before
// returning.
func Create(ctx *Context, id Identity, initialTermID int32, params Params, isExclusive bool) (*Publication, error) {
	if err := validateLogParams(params.TermLength, params.MTULength, params.PageSize); err != nil {
		return nil, err
	}

	logLength := ComputedLogLength(params.TermLength, params.PageSize, ctx.MetadataLength)

	usable, err := ctx.FSProbe.UsableSpace(ctx.LogDir)
	if err != nil {
		return nil, newConstructError(OutOfMemory, "probe usable fs space", err)
	}
	if usable < logLength {
		return nil, newConstructError(NoSpace, fmt.Sprintf("need %d bytes, have %d", logLength, usable), nil)
	}

	path := logFilePath(ctx.LogDir, id)

	mapped, err := ctx.Mapper.Map(path, logLength)
	if err != nil {
		return nil, newConstructError(MapFailed, "map log file", err)
	}

	correlationID := id.RegistrationID
	metadata := newLogMetadata(initialTermID, params.TermLength, params.MTULength, params.PageSize, correlationID, params.Replay)

	pubPosID, pubPos, err := ctx.CountersManager.Allocate(fmt.Sprintf("pub-pos:%d:%d:%d", id.SessionID, id.StreamID, id.RegistrationID))
	if err != nil {
		ctx.Mapper.Unmap(mapped)
		return nil, newConstructError(OutOfMemory, "allocate publisher position counter", err)
	}
	pubLmtID, pubLmt, err := ctx.CountersManager.Allocate(fmt.Sprintf("pub-lmt:%d:%d:%d", id.SessionID, id.StreamID, id.RegistrationID))
	if err != nil {
		ctx.CountersManager.Free(pubPosID)
		ctx.Mapper.Unmap(mapped)
		return nil, newConstructError(OutOfMemory, "allocate publisher limit counter", err)
	}

	positionBitsToShift := PositionBitsToShift(params.TermLength)
	termWindowLength := producerWindowLength(ctx.IPCPublicationWindowLength, params.TermLength)
	tripGain := termWindowLength / 8
	if tripGain == 0 {
		tripGain = 1
	}

	pub := &Publication{
		Identity:            id,
		isExclusive:         isExclusive,
		ctx:                 ctx,
		path:                path,
		mappedLog:           mapped,
		metadata:            metadata,
		pubPosID:            pubPosID,
		pubPos:              pubPos,
		pubLmtID:            pubLmtID,
		pubLmt:              pubLmt,
		positionBitsToShift: positionBitsToShift,
		termWindowLength:    termWindowLength,
		tripGain:            tripGain,
		unblockTimeoutNs:    ctx.UnblockTimeoutNs,
		state:               PublicationActive,
		refCount:            1,
	}
	pub.subscribers = NewSubscribableSet(pub)

	// Seed both position counters at the replay resume point rather than
	// leaving them at zero.
	if params.Replay != nil {
		seedPos := ComputePosition(params.Replay.TermID, params.Replay.TermOffset, positionBitsToShift, initialTermID)
		pub.pubPos.SetOrdered(seedPos)
		pub.pubLmt.SetOrdered(seedPos)
	}

	now := pub.producerPosition()
	pub.consumerPosition = now
	pub.lastConsumerPosition = now
	pub.cleanPosition = now
	pub.tripLimit = now
	if ctx.Clock != nil {
		pub.timeOfLastConsumerPositionChangeNs = ctx.Clock.NowNanos()
		pub.timeOfLastStateChangeNs = ctx.Clock.NowNanos()
	}

	return pub, nil
}

// logFilePath builds the log file path. It is opaque to readers, published
// only through the onAvailableImage notification.
func logFilePath(dir string, id Identity) string {
	name := fmt.Sprintf("ipc-%d-%d-%d.logbuffer", id.SessionID, id.StreamID, id.RegistrationID)
	return filepath.Join(dir, "publications", name)
}

// Path returns the log file path, for onAvailableImage notification.
func (p *Publication) Path() string { return p.path }

// State returns the current lifecycle state.
func (p *Publication) State() PublicationState { return p.state }

// IsExclusive reports whether this publication was created exclusively for a
// single local publisher (never shared, never subject to blocked-publisher
// detection).
func (p *Publication) IsExclusive() bool { return p.isExclusive }

// producerPosition computes the position immediately after the last
// reservation, from the active term's tail counter.
func (p *Publication) producerPosition() int64 {
	idx := p.metadata.ActivePartitionIndex()
	raw := p.metadata.termTailCounters[idx].GetVolatile()
	termID, termOffset := unpackTermTail(raw)
	return ComputePosition(termID, termOffset, p.positionBitsToShift, p.metadata.InitialTermID())
}

// ProducerPosition is the conductor-facing operation for reading the current
// write position.
func (p *Publication) ProducerPosition() int64 {
	return p.producerPosition()
}

// JoiningPosition is the position a newly attached subscriber adopts:
// for an IPC publication that is the current producer position, since a new
// subscriber joins the live stream rather than replaying history.
func (p *Publication) JoiningPosition() int64 {
	return p.producerPosition()
}

// NumSubscribers is the conductor-facing operation for the attached
// subscriber count.
func (p *Publication) NumSubscribers() int {
	return p.subscribers.Len()
}

// HasReachedEndOfLife is the conductor-facing operation for deciding when a
// closed publication's resources can finally be reclaimed.
func (p *Publication) HasReachedEndOfLife() bool {
	return p.hasReachedEndOfLife
}

// IsDrained reports whether every attached subscriber (or no subscribers at
// all) has consumed up to the current producer position.
func (p *Publication) IsDrained() bool {
	producer := p.producerPosition()
	drained := true
	p.subscribers.Each(func(sp *SubscriberPosition) {
		if sp.Pos.GetVolatile() < producer {
			drained = false
		}
	})
	return drained
}

// AttachSubscriber adds a new tetherable subscriber position to the set and
// returns the allocated counter handle. It is rejected once the publication
// is INACTIVE.
func (p *Publication) AttachSubscriber(subscriptionRegistrationID int64, isTether bool, label string) (*SubscriberPosition, error) {
	if p.state != PublicationActive {
		return nil, fmt.Errorf("publication %d is %s, not accepting new subscribers", p.RegistrationID, p.state)
	}

	id, pos, err := p.ctx.CountersManager.Allocate(label)
	if err != nil {
		return nil, fmt.Errorf("allocate subscriber position counter: %w", err)
	}
	pos.SetOrdered(p.JoiningPosition())

	now := int64(0)
	if p.ctx.Clock != nil {
		now = p.ctx.Clock.NowNanos()
	}
	sp := &SubscriberPosition{
		CounterID:                  id,
		Pos:                        pos,
		SubscriptionRegistrationID: subscriptionRegistrationID,
		IsTether:                   isTether,
		State:                      SubscriberActive,
		TimeOfLastUpdateNs:         now,
	}
	p.subscribers.Add(sp)
	return sp, nil
}

// DetachSubscriber removes a subscriber and frees its position counter.
func (p *Publication) DetachSubscriber(subscriptionRegistrationID int64) bool {
	sp, ok := p.subscribers.Find(subscriptionRegistrationID)
	if !ok {
		return false
	}
	removed := p.subscribers.Remove(subscriptionRegistrationID)
	if removed {
		p.ctx.CountersManager.Free(sp.CounterID)
	}
	return removed
}

// onAdd/onRemove implement subscribableHooks: the publication currently has
// no cached aggregate that needs eager recomputation on membership change —
// updatePubLmt already recomputes consumerPosition/tripLimit from a fresh
// scan every tick — but the hook point exists so a future cache (e.g. a
// maintained min-heap of positions) can plug in without changing the
// SubscribableSet contract.
func (p *Publication) onAdd(*SubscriberPosition)    {}
func (p *Publication) onRemove(*SubscriberPosition) {}

// Incref is the conductor-facing operation for a second local publisher
// joining an already-open shared publication.
func (p *Publication) Incref() int32 {
	return atomic.AddInt32(&p.refCount, 1)
}

// Decref is the conductor-facing operation for a local publisher giving up
// its reference. It returns the new refCount; when it reaches zero the
// publication transitions to INACTIVE.
func (p *Publication) Decref() int32 {
	n := atomic.AddInt32(&p.refCount, -1)
	if n == 0 {
		p.transitionToInactive()
	}
	return n
}

// transitionToInactive moves state to INACTIVE, clamps pubLmt to
// the producer position if it overshot, then ordered-stores endOfStreamPosition
// — in that order, so a reader observing endOfStreamPosition != MaxInt64 can
// safely conclude no further data beyond it will appear.
func (p *Publication) transitionToInactive() {
	p.state = PublicationInactive
	producer := p.producerPosition()
	if p.pubLmt.GetVolatile() > producer {
		p.pubLmt.SetOrdered(producer)
	}
	p.metadata.endOfStreamPosition.SetOrdered(producer)
}

// Close releases every resource the publication owns: subscriber counters,
// its own position counters, the mapped log. It is idempotent on a nil
// receiver, matching  ("Idempotent on null input").
func Close(cm CountersManager, mapper LogMapper, p *Publication) error {
	if p == nil {
		return nil
	}

	p.subscribers.Each(func(sp *SubscriberPosition) {
		cm.Free(sp.CounterID)
	})
	cm.Free(p.pubPosID)
	cm.Free(p.pubLmtID)

	return mapper.Unmap(p.mappedLog)
}
