package replaymerge

import (
	"testing"

	"github.com/flowlog/ipc"
)

type fakeArchive struct {
	recordingPositionCalls int
	startReplayCalled      bool
	stopReplayCalled       bool
	replayActive           bool
}

func (a *fakeArchive) PollRecordingPosition(recordingID int64) (int64, bool, error) {
	a.recordingPositionCalls++
	if a.recordingPositionCalls == 1 {
		return 10_000, true, nil
	}
	return 10_050, true, nil
}

func (a *fakeArchive) StartReplay(recordingID int64, replayChannel, replayDestination string, startPosition int64) (int64, error) {
	a.startReplayCalled = true
	a.replayActive = true
	return 777, nil
}

func (a *fakeArchive) IsReplayActive(sessionID int64) bool { return a.replayActive }

func (a *fakeArchive) StopReplay(sessionID int64) error {
	a.stopReplayCalled = true
	a.replayActive = false
	return nil
}

type fakeImage struct {
	position              int64
	activeTransportCount  int32
}

func (img *fakeImage) Position() int64             { return img.position }
func (img *fakeImage) ActiveTransportCount() int32  { return img.activeTransportCount }
func (img *fakeImage) Poll(FragmentHandler, int) int { return 0 }

type fakeSubscription struct {
	image              *fakeImage
	addedDestinations  []string
	removedDestinations []string
}

func (s *fakeSubscription) AddDestination(channel string) error {
	s.addedDestinations = append(s.addedDestinations, channel)
	return nil
}

func (s *fakeSubscription) RemoveDestination(channel string) error {
	s.removedDestinations = append(s.removedDestinations, channel)
	return nil
}

func (s *fakeSubscription) ImageBySessionID(sessionID int32) (Image, bool) {
	if s.image == nil {
		return nil, false
	}
	return s.image, true
}

// Replay-merge happy path: GET_RECORDING_POSITION through MERGED.
func TestControllerHappyPath(t *testing.T) {
	archive := &fakeArchive{}
	img := &fakeImage{position: 8_000, activeTransportCount: 1}
	sub := &fakeSubscription{image: img}
	c := New(sub, archive, "replay-channel", "replay-dest", "live-dest", 1, 0, ipc.MinTermLength)

	if c.State() != StateGetRecordingPosition {
		t.Fatalf("initial state = %v, want GET_RECORDING_POSITION", c.State())
	}

	mustDoWork(t, c, StateReplay)

	mustDoWork(t, c, StateCatchup)
	if !archive.startReplayCalled {
		t.Fatalf("StartReplay not called by the REPLAY tick")
	}

	mustDoWork(t, c, StateAttemptLiveJoin)
	if c.Image() == nil {
		t.Fatalf("Image() = nil after CATCHUP")
	}

	// First ATTEMPT_LIVE_JOIN tick: delta 10050-8000=2050 <= LIVE_ADD_THRESHOLD
	// (MinTermLength/4 = 16384), so live is added but replay is not removed.
	if workCount, err := c.DoWork(); err != nil || workCount != 0 {
		t.Fatalf("DoWork() = (%d, %v), want (0, nil)", workCount, err)
	}
	if c.State() != StateAttemptLiveJoin {
		t.Fatalf("state = %v, want still ATTEMPT_LIVE_JOIN", c.State())
	}
	if !c.IsLiveAdded() {
		t.Fatalf("IsLiveAdded() = false, want true")
	}

	// Image catches up fully with two active transports: now the controller
	// should stop and remove the replay.
	img.position = 10_050
	img.activeTransportCount = 2

	mustDoWork(t, c, StateStopReplay)
	mustDoWork(t, c, StateMerged)

	if !archive.stopReplayCalled {
		t.Errorf("StopReplay not called")
	}
	if !c.IsMerged() {
		t.Errorf("IsMerged() = false, want true")
	}
	if len(sub.removedDestinations) != 1 || sub.removedDestinations[0] != "replay-dest" {
		t.Errorf("removed destinations = %v, want [replay-dest]", sub.removedDestinations)
	}
}

func TestControllerReplayLostBeforeCatchupReenters(t *testing.T) {
	archive := &fakeArchive{}
	sub := &fakeSubscription{} // no image ever appears
	c := New(sub, archive, "replay-channel", "replay-dest", "live-dest", 1, 0, ipc.MinTermLength)

	mustDoWork(t, c, StateReplay)
	mustDoWork(t, c, StateCatchup)

	archive.replayActive = false // session died before an image ever appeared

	mustDoWork(t, c, StateGetRecordingPosition)
	if c.IsLiveAdded() {
		t.Errorf("IsLiveAdded() = true after re-entry, want false")
	}
}

func TestControllerCloseStopsActiveReplay(t *testing.T) {
	archive := &fakeArchive{}
	sub := &fakeSubscription{}
	c := New(sub, archive, "replay-channel", "replay-dest", "live-dest", 1, 0, ipc.MinTermLength)
	mustDoWork(t, c, StateReplay)
	mustDoWork(t, c, StateCatchup) // the REPLAY tick starts the replay

	c.Close()
	if c.State() != StateClosed {
		t.Errorf("State() = %v, want CLOSED", c.State())
	}
	if !archive.stopReplayCalled {
		t.Errorf("Close() did not stop the active replay")
	}
}

func mustDoWork(t *testing.T, c *Controller, wantState State) {
	t.Helper()
	workCount, err := c.DoWork()
	if err != nil {
		t.Fatalf("DoWork() error = %v", err)
	}
	if workCount != 1 {
		t.Fatalf("DoWork() workCount = %d, want 1 (transitioning to %v)", workCount, wantState)
	}
	if c.State() != wantState {
		t.Fatalf("state = %v, want %v", c.State(), wantState)
	}
}
