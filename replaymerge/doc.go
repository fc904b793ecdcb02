// Package replaymerge implements the client-side controller that joins a
// historical archived stream with the live stream through a multi-
// destination subscription, so a consumer observes the full history
// without gap or duplication.
//
// A Controller is driven by calling Poll in a loop; it performs its own
// state-machine work before ever touching the image, per the doWork-then-
// poll ordering invariant this package enforces internally.
package replaymerge
