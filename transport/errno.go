//go:build linux || darwin

// File: transport/errno.go
// Author: momentics <momentics@gmail.com>
//
// Maps OS errnos onto the library failure taxonomy.

package transport

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-evloop/api"
)

// connectFailure wraps any connect-phase errno (refused, timed out,
// network unreachable) as a connection failure outcome.
func connectFailure(err error) error {
	return api.NewError(api.ErrCodeConnectionFailure, "connect failed", err)
}

// writeFailure classifies a fatal send errno.
func writeFailure(err error) error {
	switch err {
	case unix.ECONNRESET:
		return api.NewError(api.ErrCodeConnectionReset, "send failed", err)
	case unix.EPIPE:
		return api.NewError(api.ErrCodeBrokenPipe, "send failed", err)
	}
	return api.NewError(api.ErrCodeInternal, "send failed", err)
}

// readFailure classifies a fatal receive errno.
func readFailure(err error) error {
	if err == unix.ECONNRESET {
		return api.NewError(api.ErrCodeConnectionReset, "receive failed", err)
	}
	return api.NewError(api.ErrCodeInternal, "receive failed", err)
}

func wouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}
