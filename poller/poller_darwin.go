//go:build darwin

// File: poller/poller_darwin.go
// Author: momentics <momentics@gmail.com>
//
// Darwin kqueue(2) implementation of the api.Poller contract.
// kqueue tracks read and write filters independently, which maps
// directly onto per-direction interests.

package poller

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-evloop/api"
)

type kqueuePoller struct {
	kq    int
	masks map[int]uint8 // bit 0 = read filter, bit 1 = write filter
	buf   []unix.Kevent_t
}

// NewPoller constructs the platform poller for Darwin.
func NewPoller() (api.Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("kqueue create: %w", err)
	}
	return &kqueuePoller{
		kq:    kq,
		masks: make(map[int]uint8),
	}, nil
}

func filterFor(dir api.Direction) (int16, uint8) {
	if dir == api.Readable {
		return unix.EVFILT_READ, 1
	}
	return unix.EVFILT_WRITE, 2
}

func (p *kqueuePoller) change(fd int, filter int16, flags uint16) error {
	ev := unix.Kevent_t{Flags: flags}
	ev.Ident = uint64(fd)
	ev.Filter = filter
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (p *kqueuePoller) Add(fd int, dir api.Direction) error {
	filter, bit := filterFor(dir)
	if p.masks[fd]&bit != 0 {
		return nil
	}
	if err := p.change(fd, filter, unix.EV_ADD); err != nil {
		return fmt.Errorf("kevent add fd=%d: %w", fd, err)
	}
	p.masks[fd] |= bit
	return nil
}

func (p *kqueuePoller) Del(fd int, dir api.Direction) error {
	filter, bit := filterFor(dir)
	if p.masks[fd]&bit == 0 {
		return nil
	}
	if err := p.change(fd, filter, unix.EV_DELETE); err != nil && err != unix.ENOENT {
		return fmt.Errorf("kevent delete fd=%d: %w", fd, err)
	}
	next := p.masks[fd] &^ bit
	if next == 0 {
		delete(p.masks, fd)
	} else {
		p.masks[fd] = next
	}
	return nil
}

func (p *kqueuePoller) Forget(fd int) {
	mask, watched := p.masks[fd]
	if !watched {
		return
	}
	if mask&1 != 0 {
		_ = p.change(fd, unix.EVFILT_READ, unix.EV_DELETE)
	}
	if mask&2 != 0 {
		_ = p.change(fd, unix.EVFILT_WRITE, unix.EV_DELETE)
	}
	delete(p.masks, fd)
}

func (p *kqueuePoller) Wait(timeout time.Duration, events []api.Event) (int, error) {
	if len(p.buf) < len(events) {
		p.buf = make([]unix.Kevent_t, len(events))
	}
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, p.buf[:len(events)], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("kevent wait: %w", err)
	}
	for i := 0; i < n; i++ {
		kev := p.buf[i]
		events[i] = api.Event{
			FD:       int(kev.Ident),
			Readable: kev.Filter == unix.EVFILT_READ,
			Writable: kev.Filter == unix.EVFILT_WRITE,
			Err:      kev.Flags&(unix.EV_ERROR|unix.EV_EOF) != 0,
		}
	}
	return n, nil
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.kq)
}
