package replaymerge

// ArchiveClient is the client-side handle to the archive media driver that
// the controller depends on for recording position lookups and replay
// session control.
//
// Methods that correspond to an outstanding async request (PollRecordingPosition)
// are non-blocking: ready=false means the prior request is still in flight
// and the controller must not issue a second one, matching the "no retry
// storm, one outstanding correlation id at a time" failure policy.
type ArchiveClient interface {
	// PollRecordingPosition polls for the current recording position of
	// recordingID. ready is false while the request is still outstanding;
	// err is non-nil only on a hard failure (e.g. the archive connection
	// dropped), not on "not ready yet".
	PollRecordingPosition(recordingID int64) (position int64, ready bool, err error)

	// StartReplay begins a bounded replay of recordingID from startPosition,
	// delivered over replayChannel/replayDestination, and returns the new
	// replay session id.
	StartReplay(recordingID int64, replayChannel, replayDestination string, startPosition int64) (sessionID int64, err error)

	// IsReplayActive reports whether a previously started replay session is
	// still running. The controller polls this while waiting for the
	// image to appear in CATCHUP, to detect a replay that died before the
	// subscription ever saw it.
	IsReplayActive(sessionID int64) bool

	// StopReplay stops a running replay session. Called during STOP_REPLAY,
	// where an error is returned from DoWork and the controller does not
	// move to MERGED, and best-effort on close, where an error is ignored.
	StopReplay(sessionID int64) error
}
