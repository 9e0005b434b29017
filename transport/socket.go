//go:build linux || darwin

// File: transport/socket.go
// Author: momentics <momentics@gmail.com>
//
// Non-blocking AF_INET stream socket bound to a reactor. State machine
// follows the connection lifecycle: initial -> connecting -> connected
// -> closed; accepted sockets start out connected.

package transport

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-evloop/api"
	"github.com/momentics/hioload-evloop/reactor"
)

// ErrBadSocketState is returned synchronously when an operation is
// invoked in a lifecycle state that cannot accept it (e.g. Connect on
// an already-connected socket). Like api.ErrUseAfterClose this is a
// programming error, not an I/O failure outcome.
var ErrBadSocketState = errors.New("transport: operation not valid in current socket state")

type socketState uint8

const (
	stateInitial socketState = iota
	stateConnecting
	stateConnected
	stateClosed
)

// Socket owns one OS descriptor for its lifetime. All methods must be
// called on the loop thread; the reactor it binds to is explicit.
type Socket struct {
	r  *reactor.Reactor
	fd int
	st socketState

	// One outstanding operation per direction. Checked synchronously
	// so a duplicate Send/Recv fails at the call site, before any
	// interest registration happens.
	sending   bool
	receiving bool
}

// New opens a non-blocking IPv4 stream socket on r.
func New(r *reactor.Reactor) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &Socket{r: r, fd: fd}, nil
}

// newAccepted wraps a descriptor produced by accept(2); it is already
// connected.
func newAccepted(r *reactor.Reactor, fd int) *Socket {
	return &Socket{r: r, fd: fd, st: stateConnected}
}

// FD exposes the raw descriptor, primarily for diagnostics.
func (s *Socket) FD() int { return s.fd }

// Connected reports whether the socket is in the connected state.
func (s *Socket) Connected() bool { return s.st == stateConnected }

// Connect starts a non-blocking connect to addr ("127.0.0.1:9000").
// The outcome reaches cont through the ready queue: a nil-error
// outcome once established, or a connection-failure outcome. If the
// OS resolves the connect synchronously the outcome is known
// immediately and scheduled for the next drain pass.
func (s *Socket) Connect(addr string, cont api.Continuation) error {
	switch s.st {
	case stateClosed:
		return api.ErrUseAfterClose
	case stateInitial:
	default:
		return ErrBadSocketState
	}
	sa, err := resolveSockaddr(addr)
	if err != nil {
		return err
	}
	switch err := unix.Connect(s.fd, sa); err {
	case nil:
		s.st = stateConnected
		s.r.ScheduleNow(cont, api.Outcome{})
		return nil
	case unix.EINPROGRESS:
		s.st = stateConnecting
		in := api.Interest{FD: s.fd, Dir: api.Writable}
		return s.r.Register(in, func(api.Outcome) { s.finishConnect(cont) })
	default:
		s.r.ScheduleNow(cont, api.Outcome{Err: connectFailure(err)})
		return nil
	}
}

// finishConnect runs when the in-progress connect becomes writable;
// SO_ERROR distinguishes establishment from refusal.
func (s *Socket) finishConnect(cont api.Continuation) {
	if s.st != stateConnecting {
		// Closed after the writable event fired but before this ran.
		return
	}
	soerr, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err == nil && soerr != 0 {
		err = unix.Errno(soerr)
	}
	if err != nil {
		// Failed connects release the descriptor; the socket is done.
		s.r.Forget(s.fd)
		s.st = stateClosed
		_ = unix.Close(s.fd)
		cont(api.Outcome{Err: connectFailure(err)})
		return
	}
	s.st = stateConnected
	cont(api.Outcome{})
}

// Send writes all of p, retrying the unwritten remainder on writable
// readiness until flushed or a fatal write error occurs. The success
// outcome carries the total byte count, which always equals len(p).
func (s *Socket) Send(p []byte, cont api.Continuation) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if s.sending {
		return api.ErrDuplicateInterest
	}
	s.sending = true
	deliver := func(o api.Outcome) {
		s.sending = false
		cont(o)
	}
	off := 0
	var attempt api.Continuation
	attempt = func(api.Outcome) {
		// The socket may have been closed by an earlier continuation in
		// the same drain pass, after this wakeup was already enqueued.
		// Close cancels: drop without touching the descriptor, which the
		// OS may have reused by now.
		if s.st != stateConnected {
			s.sending = false
			return
		}
		for off < len(p) {
			n, err := unix.Write(s.fd, p[off:])
			if n > 0 {
				// Partial writes are normal; advance the offset, never
				// re-send bytes the kernel already accepted.
				off += n
				continue
			}
			switch {
			case err == unix.EINTR:
				continue
			case err == nil || wouldBlock(err):
				in := api.Interest{FD: s.fd, Dir: api.Writable}
				if rerr := s.r.Register(in, attempt); rerr != nil {
					deliver(api.Outcome{Err: rerr})
				}
				return
			default:
				deliver(api.Outcome{Err: writeFailure(err)})
				return
			}
		}
		deliver(api.Outcome{Value: off})
	}
	s.r.ScheduleNow(attempt, api.Outcome{})
	return nil
}

// Recv reads up to max bytes. Zero bytes with no error is orderly peer
// shutdown, delivered as a zero-length []byte success outcome; it is
// not a failure.
func (s *Socket) Recv(max int, cont api.Continuation) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	if max <= 0 {
		return errors.New("transport: receive size must be positive")
	}
	if s.receiving {
		return api.ErrDuplicateInterest
	}
	s.receiving = true
	deliver := func(o api.Outcome) {
		s.receiving = false
		cont(o)
	}
	var attempt api.Continuation
	attempt = func(api.Outcome) {
		// Same-drain close: the wakeup was enqueued before Close ran.
		if s.st != stateConnected {
			s.receiving = false
			return
		}
		buf := make([]byte, max)
		for {
			n, err := unix.Read(s.fd, buf)
			switch {
			case err == unix.EINTR:
				continue
			case wouldBlock(err):
				in := api.Interest{FD: s.fd, Dir: api.Readable}
				if rerr := s.r.Register(in, attempt); rerr != nil {
					deliver(api.Outcome{Err: rerr})
				}
				return
			case err != nil:
				deliver(api.Outcome{Err: readFailure(err)})
				return
			case n == 0:
				deliver(api.Outcome{Value: []byte{}})
				return
			default:
				deliver(api.Outcome{Value: buf[:n]})
				return
			}
		}
	}
	s.r.ScheduleNow(attempt, api.Outcome{})
	return nil
}

// Close releases the descriptor, silently dropping any still-pending
// interest registration. Further operations fail with UseAfterClose.
func (s *Socket) Close() error {
	if s.st == stateClosed {
		return api.ErrUseAfterClose
	}
	s.r.Forget(s.fd)
	s.st = stateClosed
	return unix.Close(s.fd)
}

func (s *Socket) requireConnected() error {
	switch s.st {
	case stateClosed:
		return api.ErrUseAfterClose
	case stateConnected:
		return nil
	default:
		return ErrBadSocketState
	}
}
