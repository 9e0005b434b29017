//go:build linux

// File: poller/poller_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7) implementation of the api.Poller contract.
// Level-triggered: the reactor unregisters an interest before its
// continuation runs, so no readiness event is ever re-delivered to a
// consumed registration.

package poller

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-evloop/api"
)

type epollPoller struct {
	epfd  int
	masks map[int]uint32 // current epoll event mask per watched fd
	buf   []unix.EpollEvent
}

// NewPoller constructs the platform poller for Linux.
func NewPoller() (api.Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollPoller{
		epfd:  epfd,
		masks: make(map[int]uint32),
	}, nil
}

func dirBit(dir api.Direction) uint32 {
	if dir == api.Readable {
		return unix.EPOLLIN
	}
	return unix.EPOLLOUT
}

// Add merges the direction into the descriptor's epoll mask, issuing
// EPOLL_CTL_ADD on first watch and EPOLL_CTL_MOD afterwards.
func (p *epollPoller) Add(fd int, dir api.Direction) error {
	bit := dirBit(dir)
	old, watched := p.masks[fd]
	if watched && old&bit != 0 {
		return nil
	}
	next := old | bit
	op := unix.EPOLL_CTL_MOD
	if !watched {
		op = unix.EPOLL_CTL_ADD
	}
	ev := unix.EpollEvent{Events: next, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, op, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add fd=%d: %w", fd, err)
	}
	p.masks[fd] = next
	return nil
}

// Del removes the direction from the descriptor's mask, dropping the
// descriptor from epoll entirely once no direction remains.
func (p *epollPoller) Del(fd int, dir api.Direction) error {
	old, watched := p.masks[fd]
	if !watched {
		return nil
	}
	next := old &^ dirBit(dir)
	if next == old {
		return nil
	}
	if next == 0 {
		if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
			return fmt.Errorf("epoll ctl del fd=%d: %w", fd, err)
		}
		delete(p.masks, fd)
		return nil
	}
	ev := unix.EpollEvent{Events: next, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod fd=%d: %w", fd, err)
	}
	p.masks[fd] = next
	return nil
}

// Forget drops every registration for fd. Errors are ignored: the fd
// may already be closed, which removes it from epoll implicitly.
func (p *epollPoller) Forget(fd int) {
	if _, watched := p.masks[fd]; !watched {
		return
	}
	_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	delete(p.masks, fd)
}

// Wait blocks until readiness or timeout. EINTR is not an error; the
// reactor simply re-polls.
func (p *epollPoller) Wait(timeout time.Duration, events []api.Event) (int, error) {
	if len(p.buf) < len(events) {
		p.buf = make([]unix.EpollEvent, len(events))
	}
	ms := -1
	if timeout >= 0 {
		ms = int(timeout.Milliseconds())
		if timeout > 0 && ms == 0 {
			ms = 1 // round sub-millisecond waits up, never spin
		}
	}
	n, err := unix.EpollWait(p.epfd, p.buf[:len(events)], ms)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		raw := p.buf[i].Events
		// Error and hangup conditions wake both directions so the
		// owning operation can observe the failure on its next attempt.
		fatal := raw&(unix.EPOLLERR|unix.EPOLLHUP) != 0
		events[i] = api.Event{
			FD:       int(p.buf[i].Fd),
			Readable: raw&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 || fatal,
			Writable: raw&unix.EPOLLOUT != 0 || fatal,
			Err:      fatal,
		}
	}
	return n, nil
}

// Close releases the epoll instance.
func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
