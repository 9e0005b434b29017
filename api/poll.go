// Package api
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness poller contract for I/O multiplexing.

package api

import "time"

// Event reports observed readiness for one descriptor. Both flags may
// be set when the descriptor became readable and writable in the same
// poll cycle. Err marks an error or hangup condition reported by the
// OS; the owning operation discovers the concrete failure on its next
// attempt (or via SO_ERROR for in-progress connects).
type Event struct {
	FD       int
	Readable bool
	Writable bool
	Err      bool
}

// Poller wraps the OS-level "wait until any watched descriptor is
// ready" primitive. Pure multiplexing, no dispatch policy: the reactor
// owns the mapping from readiness back to continuations.
//
// Implementations are not safe for concurrent use; the reactor calls
// them from its single loop thread only.
type Poller interface {
	// Add starts watching one (descriptor, direction) pair. Adding a
	// direction already being watched for the descriptor is a no-op.
	Add(fd int, dir Direction) error

	// Del stops watching one (descriptor, direction) pair. The
	// descriptor is dropped from the watch set entirely once neither
	// direction remains.
	Del(fd int, dir Direction) error

	// Forget drops every registration for a descriptor, used when the
	// owning socket closes. Unknown descriptors are ignored.
	Forget(fd int)

	// Wait blocks until at least one watched descriptor is ready or
	// timeout elapses, filling events and returning the count. A
	// negative timeout blocks indefinitely. A fatal OS error is
	// returned as-is; the reactor treats it as fatal to the loop.
	Wait(timeout time.Duration, events []Event) (int, error)

	// Close releases the poller's OS resources.
	Close() error
}
