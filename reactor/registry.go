// File: reactor/registry.go
// Author: momentics <momentics@gmail.com>
//
// Callback registry and ready queue. Pure data-structure operations:
// nothing here ever invokes a continuation, preserving the strict
// phase separation between poll/notify and drain.

package reactor

import (
	"github.com/eapache/queue"

	"github.com/momentics/hioload-evloop/api"
)

// readyItem pairs a continuation with the outcome it must be invoked
// with, exactly once, during a drain pass.
type readyItem struct {
	cont    api.Continuation
	outcome api.Outcome
}

// registry maps each watched interest to its single pending
// continuation and holds the FIFO queue of work ready to run now.
type registry struct {
	pending map[api.Interest]api.Continuation
	ready   *queue.Queue
}

func newRegistry() *registry {
	return &registry{
		pending: make(map[api.Interest]api.Continuation),
		ready:   queue.New(),
	}
}

// register records the continuation for an interest. Registering a
// second continuation before the first fires is a programming error.
func (g *registry) register(in api.Interest, cont api.Continuation) error {
	if _, dup := g.pending[in]; dup {
		return api.ErrDuplicateInterest
	}
	g.pending[in] = cont
	return nil
}

// fire removes the registration and moves the continuation onto the
// ready queue with the given outcome. Reports whether a registration
// existed; firing an unknown interest is a no-op (it may have been
// canceled by a close between poll and dispatch).
func (g *registry) fire(in api.Interest, o api.Outcome) bool {
	cont, ok := g.pending[in]
	if !ok {
		return false
	}
	delete(g.pending, in)
	g.ready.Add(readyItem{cont: cont, outcome: o})
	return true
}

// cancel silently drops a pending registration without invoking it.
func (g *registry) cancel(in api.Interest) bool {
	if _, ok := g.pending[in]; !ok {
		return false
	}
	delete(g.pending, in)
	return true
}

// scheduleNow appends work with no I/O dependency to the ready queue,
// FIFO with everything else.
func (g *registry) scheduleNow(cont api.Continuation, o api.Outcome) {
	g.ready.Add(readyItem{cont: cont, outcome: o})
}

// popReady dequeues the next ready item in FIFO order.
func (g *registry) popReady() (readyItem, bool) {
	if g.ready.Length() == 0 {
		return readyItem{}, false
	}
	return g.ready.Remove().(readyItem), true
}

func (g *registry) readyLen() int   { return g.ready.Length() }
func (g *registry) pendingLen() int { return len(g.pending) }
