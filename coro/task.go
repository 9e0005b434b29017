// File: coro/task.go
// Author: momentics <momentics@gmail.com>
//
// Task lifecycle and the suspend/resume handoff between the loop
// thread and a task body goroutine.

package coro

import (
	"fmt"

	"github.com/momentics/hioload-evloop/api"
	"github.com/momentics/hioload-evloop/reactor"
)

// step is the driver-visible state of a task after one resume.
type step uint8

const (
	// stepSuspended: the body reached an await point and registered
	// its resumption continuation.
	stepSuspended step = iota
	// stepDone: the body returned a result.
	stepDone
	// stepFailed: the body returned an error or panicked.
	stepFailed
)

// Fn is a task body: straight-line code that suspends via the await
// helpers on t. A returned error is the task's terminal failure.
type Fn func(t *Task) (any, error)

// Task is sequential logic that runs until an await point, yields
// what it is waiting for to the driver, and is later resumed with the
// operation's outcome at exactly that point.
type Task struct {
	r      *reactor.Reactor
	resume chan api.Outcome // loop -> body, delivered at the suspension point
	yield  chan step        // body -> loop, next protocol state

	terminal api.Outcome
	done     bool
	waiters  []api.Continuation
}

// Spawn schedules fn to begin running on the reactor's next drain
// pass and returns a handle to its terminal outcome.
func Spawn(r *reactor.Reactor, fn Fn) *Task {
	t := &Task{
		r:      r,
		resume: make(chan api.Outcome),
		yield:  make(chan step),
	}
	r.ScheduleNow(func(api.Outcome) { t.start(fn) }, api.Outcome{})
	return t
}

// Run spawns fn as the entry task, drives the reactor until no work
// remains, and returns the entry task's terminal outcome. A fatal
// poll failure aborts the loop and is returned instead.
func Run(r *reactor.Reactor, fn Fn) (any, error) {
	t := Spawn(r, fn)
	if err := r.Run(nil); err != nil {
		return nil, err
	}
	if !t.done {
		// Only reachable when tasks await each other in a cycle.
		return nil, fmt.Errorf("coro: entry task never completed")
	}
	return t.terminal.Value, t.terminal.Err
}

// Reactor returns the loop this task is bound to, for constructing
// sockets and timers inside the body.
func (t *Task) Reactor() *reactor.Reactor { return t.r }

// Done reports whether the task reached its terminal outcome.
func (t *Task) Done() bool { return t.done }

// Outcome returns the terminal outcome; meaningful only once Done.
func (t *Task) Outcome() api.Outcome { return t.terminal }

// OnDone registers an observer of the task's terminal outcome. If the
// task already finished the observer is scheduled immediately.
func (t *Task) OnDone(cont api.Continuation) error {
	if t.done {
		t.r.ScheduleNow(cont, t.terminal)
		return nil
	}
	t.waiters = append(t.waiters, cont)
	return nil
}

// start launches the body goroutine and drives it to its first
// suspension point or terminal state. Runs on the loop thread.
func (t *Task) start(fn Fn) {
	go t.body(fn)
	t.stepOnce()
}

// body runs the user function and reports the terminal protocol step.
// A panic unwinds the body (running its deferred cleanup) and is
// captured as the task's terminal failure.
func (t *Task) body(fn Fn) {
	st := stepDone
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				t.terminal = api.Outcome{Err: fmt.Errorf("coro: task panicked: %v", rec)}
				st = stepFailed
			}
		}()
		v, err := fn(t)
		t.terminal = api.Outcome{Value: v, Err: err}
		if err != nil {
			st = stepFailed
		}
	}()
	t.yield <- st
}

// stepOnce blocks the loop thread until the body yields: either it
// suspended (its resumption continuation is already registered) or it
// finished, in which case waiting observers are scheduled. The strict
// handoff is what keeps scheduling single-threaded: while the body
// runs, the loop thread sits here.
func (t *Task) stepOnce() {
	st := <-t.yield
	if st == stepSuspended {
		return
	}
	t.done = true
	for _, w := range t.waiters {
		t.r.ScheduleNow(w, t.terminal)
	}
	t.waiters = nil
}

// resumeWith is the continuation registered for each suspension. It
// runs during drain, feeds the outcome to the body at its suspension
// point, and drives the body to its next yield.
func (t *Task) resumeWith(o api.Outcome) {
	t.resume <- o
	t.stepOnce()
}

// Await suspends the task until the operation started by start
// completes. start receives the resumption continuation to hand to a
// socket operation, timer, or another task's OnDone. If start itself
// returns an error (a synchronous programming error such as
// use-after-close) it is raised at the await point without
// suspending. A failure outcome comes back as the returned error,
// unwinding through the body's ordinary error handling.
func (t *Task) Await(start func(api.Continuation) error) (any, error) {
	if err := start(t.resumeWith); err != nil {
		return nil, err
	}
	t.yield <- stepSuspended
	o := <-t.resume // suspension point
	return o.Value, o.Err
}

// AwaitTask suspends until inner reaches its terminal outcome, which
// becomes this await's result (or error).
func (t *Task) AwaitTask(inner *Task) (any, error) {
	return t.Await(inner.OnDone)
}
