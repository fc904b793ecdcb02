// Package ipc implements the driver-side half of a shared-memory IPC
// publication: a memory-mapped append-only log, lock-free position counters
// coordinating writers and readers, flow control windowed to the slowest
// subscriber, detection and repair of stalled writers, and the publication
// lifecycle from ACTIVE through INACTIVE to LINGER.
//
// Nothing in this package blocks. A conductor drives it by calling Create
// once, then OnTimeEvent and UpdatePubLmt once per duty-cycle iteration, until HasReachedEndOfLife reports true and
// Close is called.
package ipc
