package replaymerge

import (
	"fmt"

	"github.com/flowlog/ipc"
)

// State is one of the replay-merge controller's states.
type State int

const (
	StateGetRecordingPosition State = iota
	StateReplay
	StateCatchup
	StateAttemptLiveJoin
	StateStopReplay
	StateMerged
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateGetRecordingPosition:
		return "GET_RECORDING_POSITION"
	case StateReplay:
		return "REPLAY"
	case StateCatchup:
		return "CATCHUP"
	case StateAttemptLiveJoin:
		return "ATTEMPT_LIVE_JOIN"
	case StateStopReplay:
		return "STOP_REPLAY"
	case StateMerged:
		return "MERGED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Controller drives a multi-destination subscription through a sequence of
// states to produce a single seamless image of [startPosition, ∞) over a
// recording: replay the history, catch the image up to the live edge, add
// the live destination once close enough, then drop the replay destination
// once the live feed has taken over.
type Controller struct {
	subscription Subscription
	archive      ArchiveClient

	replayChannel     string
	replayDestination string
	liveDestination   string
	recordingID       int64
	startPosition     int64

	liveAddThreshold      int64
	replayRemoveThreshold int64

	state              State
	nextTargetPosition int64
	replaySessionID    int64
	isReplayActive     bool
	isLiveAdded        bool
	image              Image
}

// New creates a controller in state GET_RECORDING_POSITION. termMinLength is
// the minimum term length of the stream being replayed, used to derive
// LIVE_ADD_THRESHOLD = termMinLength / 4.
func New(subscription Subscription, archive ArchiveClient, replayChannel, replayDestination, liveDestination string, recordingID, startPosition int64, termMinLength int32) *Controller {
	return &Controller{
		subscription:           subscription,
		archive:                archive,
		replayChannel:          replayChannel,
		replayDestination:      replayDestination,
		liveDestination:        liveDestination,
		recordingID:            recordingID,
		startPosition:          startPosition,
		liveAddThreshold:       int64(termMinLength) / 4,
		replayRemoveThreshold:  0,
		state:                  StateGetRecordingPosition,
		nextTargetPosition:     startPosition,
	}
}

// IsMerged reports whether the controller has reached MERGED. Once
// true it stays true until Close moves the controller to CLOSED; DoWork and
// Poll never move it out of MERGED or CLOSED.
func (c *Controller) IsMerged() bool { return c.state == StateMerged }

// IsLiveAdded reports whether the live destination has been added.
func (c *Controller) IsLiveAdded() bool { return c.isLiveAdded }

// State returns the controller's current state, mainly for tests and
// diagnostics.
func (c *Controller) State() State { return c.state }

// Image returns the tracked image, or nil before CATCHUP completes.
func (c *Controller) Image() Image { return c.image }

// DoWork advances the state machine by at most one transition and returns
// 1 if it did work, 0 otherwise. It never blocks: an archive response that
// hasn't arrived yet simply leaves the controller in its current state
// until the next call.
func (c *Controller) DoWork() (int, error) {
	switch c.state {
	case StateGetRecordingPosition:
		return c.doGetRecordingPosition()
	case StateReplay:
		return c.doReplay()
	case StateCatchup:
		return c.doCatchup()
	case StateAttemptLiveJoin:
		return c.doAttemptLiveJoin()
	case StateStopReplay:
		return c.doStopReplay()
	default: // MERGED, CLOSED
		return 0, nil
	}
}

func (c *Controller) doGetRecordingPosition() (int, error) {
	pos, ready, err := c.archive.PollRecordingPosition(c.recordingID)
	if err != nil {
		return 0, ipc.NewConstructError(ipc.ArchiveError, "poll recording position", err)
	}
	if !ready {
		return 0, nil
	}
	c.nextTargetPosition = pos
	c.state = StateReplay
	return 1, nil
}

func (c *Controller) doReplay() (int, error) {
	sessionID, err := c.archive.StartReplay(c.recordingID, c.replayChannel, c.replayDestination, c.startPosition)
	if err != nil {
		return 0, ipc.NewConstructError(ipc.ArchiveError, "start replay", err)
	}
	if err := c.subscription.AddDestination(c.replayDestination); err != nil {
		return 0, fmt.Errorf("add replay destination: %w", err)
	}
	c.replaySessionID = sessionID
	c.isReplayActive = true
	c.state = StateCatchup
	return 1, nil
}

func (c *Controller) doCatchup() (int, error) {
	if img, ok := c.subscription.ImageBySessionID(int32(c.replaySessionID)); ok {
		c.image = img
		c.state = StateAttemptLiveJoin
		return 1, nil
	}

	if !c.archive.IsReplayActive(c.replaySessionID) {
		// Replay session terminated unexpectedly before CATCHUP
		// completed — re-enter GET_RECORDING_POSITION rather than fail.
		c.isReplayActive = false
		c.state = StateGetRecordingPosition
		return 1, nil
	}
	return 0, nil
}

func (c *Controller) doAttemptLiveJoin() (int, error) {
	if pos, ready, err := c.archive.PollRecordingPosition(c.recordingID); err == nil && ready {
		c.nextTargetPosition = pos
	}

	imagePos := c.image.Position()

	if c.shouldAddLiveDestination(imagePos) {
		if err := c.subscription.AddDestination(c.liveDestination); err != nil {
			return 0, fmt.Errorf("add live destination: %w", err)
		}
		c.isLiveAdded = true
	}

	if c.shouldStopAndRemoveReplay(imagePos) {
		c.state = StateStopReplay
		return 1, nil
	}
	return 0, nil
}

func (c *Controller) doStopReplay() (int, error) {
	if err := c.archive.StopReplay(c.replaySessionID); err != nil {
		return 0, ipc.NewConstructError(ipc.ArchiveError, "stop replay", err)
	}
	if err := c.subscription.RemoveDestination(c.replayDestination); err != nil {
		return 0, fmt.Errorf("remove replay destination: %w", err)
	}
	c.isReplayActive = false
	c.state = StateMerged
	return 1, nil
}

// shouldAddLiveDestination reports whether the image is close enough to the
// live edge that the live destination should be added.
func (c *Controller) shouldAddLiveDestination(pos int64) bool {
	return !c.isLiveAdded && (c.nextTargetPosition-pos) <= c.liveAddThreshold
}

// shouldStopAndRemoveReplay reports whether the live feed has fully taken
// over and the replay destination can be dropped.
func (c *Controller) shouldStopAndRemoveReplay(pos int64) bool {
	return c.isLiveAdded &&
		(c.nextTargetPosition-pos) <= c.replayRemoveThreshold &&
		c.image.ActiveTransportCount() >= 2
}

// Poll performs DoWork, then, if an image has been acquired, polls it for up
// to fragmentLimit fragments. Fragments are never consumed before DoWork has
// had a chance to advance state first.
func (c *Controller) Poll(handler FragmentHandler, fragmentLimit int) int {
	if _, err := c.DoWork(); err != nil {
		if c.state != StateClosed {
			c.state = StateGetRecordingPosition
			c.isReplayActive = false
		}
		return 0
	}
	if c.image == nil {
		return 0
	}
	return c.image.Poll(handler, fragmentLimit)
}

// Close performs a best-effort stop of any active replay, then an
// unconditional transition to CLOSED.
func (c *Controller) Close() {
	if c.isReplayActive {
		_ = c.archive.StopReplay(c.replaySessionID)
		c.isReplayActive = false
	}
	c.state = StateClosed
}
