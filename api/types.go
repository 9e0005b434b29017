// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Core value types shared between the reactor and its consumers.

package api

// Direction selects which readiness condition an Interest watches.
type Direction uint8

const (
	// Readable fires when a read attempt would make progress.
	Readable Direction = iota
	// Writable fires when a write attempt would make progress.
	Writable
)

// String returns the lowercase direction name.
func (d Direction) String() string {
	if d == Readable {
		return "readable"
	}
	return "writable"
}

// Interest is the unit the poller watches and the registry keys on:
// one descriptor, one direction. At most one continuation may be
// pending per Interest at any time.
type Interest struct {
	FD  int
	Dir Direction
}

// Outcome carries the result delivered to a continuation: a success
// value (bytes transferred, received payload, accepted connection)
// or a failure. A nil Err with a zero-length []byte Value is the
// orderly end-of-stream case, which is not a failure.
type Outcome struct {
	Value any
	Err   error
}

// Continuation is a unit of deferred work invoked with an operation's
// outcome. It returns nothing to the reactor; it acts only through
// side effects (further operations, task resumption).
type Continuation func(Outcome)
