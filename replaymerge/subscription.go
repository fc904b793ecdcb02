package replaymerge

// FragmentHandler is invoked once per fragment delivered by Image.Poll.
type FragmentHandler func(data []byte)

// Image is a single active stream of fragments within a subscription — the
// replay image while catching up, then (conceptually) the live image once
// merged. The controller only ever tracks one at a time.
type Image interface {
	// Position is the image's current consumption position.
	Position() int64
	// ActiveTransportCount is the number of distinct transports (e.g. replay
	// + live) currently feeding this image. shouldStopAndRemoveReplay
	// requires this to reach 2 before the replay destination is removed, so
	// the live destination is never dropped before it has actually started
	// delivering data.
	ActiveTransportCount() int32
	// Poll delivers up to fragmentLimit fragments to handler and returns how
	// many were delivered.
	Poll(handler FragmentHandler, fragmentLimit int) int
}

// Subscription is a multi-destination subscription: a single logical
// subscriber that can have channels added and removed while running, used
// here to layer a live destination on top of a replay destination without
// losing any fragments in between.
type Subscription interface {
	AddDestination(channel string) error
	RemoveDestination(channel string) error
	// ImageBySessionID returns the image whose session id matches, once the
	// subscription has received data from it. ok is false until then.
	ImageBySessionID(sessionID int32) (Image, bool)
}
