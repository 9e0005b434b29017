// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package fake provides a scripted poller for deterministic reactor
// tests: readiness events are injected by the test and returned from
// Wait in injection order, so FIFO and exactly-once properties can be
// verified without real descriptors.
package fake

import (
	"errors"
	"time"

	"github.com/momentics/hioload-evloop/api"
)

// ErrStalled is returned when Wait is asked to block forever with no
// scripted events left; it fails a misconfigured test fast instead of
// hanging it.
var ErrStalled = errors.New("fake: poller would block forever")

// Poller implements api.Poller over a scripted event queue.
type Poller struct {
	Watched map[api.Interest]bool
	Waits   int
	WaitErr error // returned once by the next Wait, simulating a fatal poll failure

	queue []api.Event
}

// NewPoller creates an empty scripted poller.
func NewPoller() *Poller {
	return &Poller{Watched: make(map[api.Interest]bool)}
}

// Ready scripts readiness events for subsequent Wait calls.
func (p *Poller) Ready(events ...api.Event) {
	p.queue = append(p.queue, events...)
}

func (p *Poller) Add(fd int, dir api.Direction) error {
	p.Watched[api.Interest{FD: fd, Dir: dir}] = true
	return nil
}

func (p *Poller) Del(fd int, dir api.Direction) error {
	delete(p.Watched, api.Interest{FD: fd, Dir: dir})
	return nil
}

func (p *Poller) Forget(fd int) {
	delete(p.Watched, api.Interest{FD: fd, Dir: api.Readable})
	delete(p.Watched, api.Interest{FD: fd, Dir: api.Writable})
}

// Wait hands out every scripted event in order. Timed waits with no
// events return zero, as an expired timeout would.
func (p *Poller) Wait(timeout time.Duration, events []api.Event) (int, error) {
	p.Waits++
	if p.WaitErr != nil {
		err := p.WaitErr
		p.WaitErr = nil
		return 0, err
	}
	if len(p.queue) == 0 {
		if timeout < 0 {
			return 0, ErrStalled
		}
		return 0, nil
	}
	n := copy(events, p.queue)
	p.queue = p.queue[n:]
	return n, nil
}

func (p *Poller) Close() error { return nil }
