//go:build linux || darwin

// File: transport/listener.go
// Author: momentics <momentics@gmail.com>
//
// Non-blocking TCP listener: bind, listen, and accept on readable
// readiness. Accept delivers a connected *Socket as the success value.

package transport

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-evloop/api"
	"github.com/momentics/hioload-evloop/reactor"
)

// Listener accepts stream connections on a reactor. Like Socket it
// owns its descriptor exclusively until Close.
type Listener struct {
	r         *reactor.Reactor
	fd        int
	closed    bool
	accepting bool
}

// Listen binds addr (use port 0 for an ephemeral port) and starts
// listening with the given backlog.
func Listen(r *reactor.Reactor, addr string, backlog int) (*Listener, error) {
	sa, err := resolveSockaddr(addr)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err := unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &Listener{r: r, fd: fd}, nil
}

// Addr returns the bound host:port, resolving the actual port when
// the listener was bound with port 0.
func (l *Listener) Addr() string {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return ""
	}
	return formatSockaddr(sa)
}

// Accept delivers the next inbound connection as a *Socket success
// value, registering readable interest while none is queued.
func (l *Listener) Accept(cont api.Continuation) error {
	if l.closed {
		return api.ErrUseAfterClose
	}
	if l.accepting {
		return api.ErrDuplicateInterest
	}
	l.accepting = true
	deliver := func(o api.Outcome) {
		l.accepting = false
		cont(o)
	}
	var attempt api.Continuation
	attempt = func(api.Outcome) {
		// Same-drain close: the wakeup was enqueued before Close ran.
		if l.closed {
			l.accepting = false
			return
		}
		for {
			nfd, _, err := unix.Accept(l.fd)
			switch {
			case err == unix.EINTR:
				continue
			case wouldBlock(err):
				in := api.Interest{FD: l.fd, Dir: api.Readable}
				if rerr := l.r.Register(in, attempt); rerr != nil {
					deliver(api.Outcome{Err: rerr})
				}
				return
			case err != nil:
				deliver(api.Outcome{Err: api.NewError(api.ErrCodeInternal, "accept failed", err)})
				return
			}
			unix.CloseOnExec(nfd)
			if err := unix.SetNonblock(nfd, true); err != nil {
				_ = unix.Close(nfd)
				deliver(api.Outcome{Err: api.NewError(api.ErrCodeInternal, "accept failed", err)})
				return
			}
			deliver(api.Outcome{Value: newAccepted(l.r, nfd)})
			return
		}
	}
	l.r.ScheduleNow(attempt, api.Outcome{})
	return nil
}

// Close releases the listening descriptor and drops any pending
// accept registration.
func (l *Listener) Close() error {
	if l.closed {
		return api.ErrUseAfterClose
	}
	l.closed = true
	l.r.Forget(l.fd)
	return unix.Close(l.fd)
}
