// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// The event loop. Two phases per tick: Drain runs every continuation
// currently ready (including ones enqueued during the same pass, FIFO),
// then Poll blocks on the platform poller for readiness. The loop
// terminates naturally when the ready queue, the interest set and the
// timer heap are all empty.

package reactor

import (
	"container/heap"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-evloop/api"
	"github.com/momentics/hioload-evloop/poller"
)

const defaultMaxEvents = 128

// Stats counts loop activity since construction.
type Stats struct {
	Ticks       uint64 // drain+poll cycles completed
	Polls       uint64 // poller.Wait calls
	Callbacks   uint64 // continuations invoked during drain
	Registered  uint64 // interest registrations accepted
	Fired       uint64 // interests satisfied by readiness
	Canceled    uint64 // registrations dropped without firing
	TimersFired uint64
	ErrWakeups  uint64 // readiness carrying an error/hangup condition
}

// Reactor multiplexes non-blocking I/O across many logically
// concurrent operations on a single thread. Not safe for concurrent
// use: every method must be called from the loop thread (that is,
// from Run's caller before Run, or from a continuation during drain).
type Reactor struct {
	poller    api.Poller
	registry  *registry
	timers    timerHeap
	timerSeq  uint64
	events    []api.Event
	maxEvents int
	now       func() time.Time
	log       *zap.Logger
	stats     Stats
	done      bool
}

// New constructs a reactor backed by the platform poller unless
// WithPoller overrides it.
func New(opts ...Option) (*Reactor, error) {
	r := &Reactor{
		registry:  newRegistry(),
		maxEvents: defaultMaxEvents,
		now:       time.Now,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.poller == nil {
		p, err := poller.NewPoller()
		if err != nil {
			return nil, err
		}
		r.poller = p
	}
	r.events = make([]api.Event, r.maxEvents)
	return r, nil
}

// Register records a continuation to run once the interest becomes
// ready. Fails with api.ErrDuplicateInterest while a prior
// registration for the same interest is still pending.
func (r *Reactor) Register(in api.Interest, cont api.Continuation) error {
	if r.done {
		return api.ErrLoopTerminated
	}
	if err := r.registry.register(in, cont); err != nil {
		return err
	}
	if err := r.poller.Add(in.FD, in.Dir); err != nil {
		r.registry.cancel(in)
		return err
	}
	r.stats.Registered++
	r.log.Debug("interest registered",
		zap.Int("fd", in.FD), zap.Stringer("dir", in.Dir))
	return nil
}

// Cancel silently drops a pending registration without invoking it.
func (r *Reactor) Cancel(in api.Interest) {
	if r.registry.cancel(in) {
		_ = r.poller.Del(in.FD, in.Dir)
		r.stats.Canceled++
	}
}

// Forget cancels every pending registration for a descriptor and
// removes it from the poller's watch set; the close path.
func (r *Reactor) Forget(fd int) {
	for _, dir := range [...]api.Direction{api.Readable, api.Writable} {
		if r.registry.cancel(api.Interest{FD: fd, Dir: dir}) {
			r.stats.Canceled++
		}
	}
	r.poller.Forget(fd)
}

// ScheduleNow appends work with no I/O dependency to the ready queue;
// it runs during the next drain pass, FIFO with everything else.
func (r *Reactor) ScheduleNow(cont api.Continuation, o api.Outcome) {
	r.registry.scheduleNow(cont, o)
}

// SetTimer schedules cont to run no earlier than d from now. Pending
// timers count as work for the termination rule.
func (r *Reactor) SetTimer(d time.Duration, cont api.Continuation) {
	r.timerSeq++
	heap.Push(&r.timers, &timerEntry{
		when: r.now().Add(d),
		seq:  r.timerSeq,
		cont: cont,
	})
}

// Stats returns a snapshot of the loop counters.
func (r *Reactor) Stats() Stats { return r.stats }

// Run seeds the ready queue with entry and drives the loop until no
// work remains, returning nil on natural termination or the fatal
// poll failure that aborted it. A continuation panic is not caught;
// it unwinds through Run to the caller.
func (r *Reactor) Run(entry func()) error {
	if r.done {
		return api.ErrLoopTerminated
	}
	if entry != nil {
		r.registry.scheduleNow(func(api.Outcome) { entry() }, api.Outcome{})
	}
	defer func() {
		r.done = true
		_ = r.poller.Close()
	}()
	for {
		r.drain()
		// Drain leaves the ready queue empty, so this is the natural
		// termination condition: nothing pending, nothing deferred.
		if r.registry.pendingLen() == 0 && r.timers.Len() == 0 {
			r.log.Debug("loop terminated", zap.Uint64("ticks", r.stats.Ticks))
			return nil
		}
		if err := r.poll(); err != nil {
			// No way to know which interests the failure affects;
			// fatal to the whole loop.
			return api.NewError(api.ErrCodePollFailure, "readiness wait failed", err)
		}
		r.stats.Ticks++
	}
}

// drain pops and invokes every ready item in FIFO order. Invoking one
// may enqueue more; those run in the same pass.
func (r *Reactor) drain() {
	for {
		item, ok := r.registry.popReady()
		if !ok {
			return
		}
		r.stats.Callbacks++
		item.cont(item.outcome)
	}
}

// poll blocks on the poller (bounded by the next timer deadline, if
// any), converts readiness into ready items in observation order, and
// expires due timers.
func (r *Reactor) poll() error {
	timeout := time.Duration(-1)
	now := r.now()
	if next, ok := r.timers.next(); ok {
		timeout = next.Sub(now)
		if timeout < 0 {
			timeout = 0
		}
	}
	n, err := r.poller.Wait(timeout, r.events)
	if err != nil {
		return err
	}
	r.stats.Polls++
	for i := 0; i < n; i++ {
		ev := r.events[i]
		if ev.Err {
			r.stats.ErrWakeups++
			r.log.Debug("error condition on descriptor", zap.Int("fd", ev.FD))
		}
		if ev.Readable {
			r.fireReady(api.Interest{FD: ev.FD, Dir: api.Readable})
		}
		if ev.Writable {
			r.fireReady(api.Interest{FD: ev.FD, Dir: api.Writable})
		}
	}
	r.expireTimers()
	return nil
}

// fireReady moves a satisfied interest's continuation to the ready
// queue and drops its poller registration, so a new registration for
// the same interest is accepted before the continuation even runs.
func (r *Reactor) fireReady(in api.Interest) {
	if r.registry.fire(in, api.Outcome{}) {
		_ = r.poller.Del(in.FD, in.Dir)
		r.stats.Fired++
		r.log.Debug("interest ready",
			zap.Int("fd", in.FD), zap.Stringer("dir", in.Dir))
	}
}

func (r *Reactor) expireTimers() {
	now := r.now()
	for {
		e, ok := r.timers.popDue(now)
		if !ok {
			return
		}
		r.stats.TimersFired++
		r.registry.scheduleNow(e.cont, api.Outcome{})
	}
}
