package coro_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-evloop/api"
	"github.com/momentics/hioload-evloop/coro"
	"github.com/momentics/hioload-evloop/fake"
	"github.com/momentics/hioload-evloop/reactor"
)

func newTestReactor(t *testing.T) *reactor.Reactor {
	t.Helper()
	r, err := reactor.New(reactor.WithPoller(fake.NewPoller()))
	require.NoError(t, err)
	return r
}

// scheduleOutcome builds an awaitable operation that completes on the
// next drain pass with the given outcome.
func scheduleOutcome(r *reactor.Reactor, o api.Outcome) func(api.Continuation) error {
	return func(cont api.Continuation) error {
		r.ScheduleNow(cont, o)
		return nil
	}
}

func TestRunReturnsTaskResult(t *testing.T) {
	r := newTestReactor(t)
	v, err := coro.Run(r, func(task *coro.Task) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestAwaitDeliversOutcomeAtSuspensionPoint(t *testing.T) {
	r := newTestReactor(t)
	v, err := coro.Run(r, func(task *coro.Task) (any, error) {
		got, err := task.Await(scheduleOutcome(r, api.Outcome{Value: "hello"}))
		if err != nil {
			return nil, err
		}
		return got.(string) + " world", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", v)
}

func TestFailureOutcomeUnwindsBody(t *testing.T) {
	r := newTestReactor(t)
	reset := api.NewError(api.ErrCodeConnectionReset, "send failed", nil)
	cleanedUp := false

	_, err := coro.Run(r, func(task *coro.Task) (any, error) {
		defer func() { cleanedUp = true }()
		if _, err := task.Await(scheduleOutcome(r, api.Outcome{Err: reset})); err != nil {
			return nil, err
		}
		t.Fatal("must not reach past the failed await")
		return nil, nil
	})
	assert.ErrorIs(t, err, &api.Error{Code: api.ErrCodeConnectionReset})
	assert.True(t, cleanedUp, "scoped cleanup must run on unwind")
}

func TestSynchronousErrorRaisedWithoutSuspending(t *testing.T) {
	r := newTestReactor(t)
	syncErr := errors.New("bad call")
	steps := 0

	v, err := coro.Run(r, func(task *coro.Task) (any, error) {
		_, err := task.Await(func(api.Continuation) error { return syncErr })
		require.ErrorIs(t, err, syncErr)
		steps++
		// The task is still runnable after a synchronous failure.
		got, err := task.Await(scheduleOutcome(r, api.Outcome{Value: 7}))
		require.NoError(t, err)
		steps++
		return got, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, steps)
}

func TestPanicBecomesTerminalFailure(t *testing.T) {
	r := newTestReactor(t)
	inner := coro.Spawn(r, func(task *coro.Task) (any, error) {
		panic("kaboom")
	})
	v, err := coro.Run(r, func(task *coro.Task) (any, error) {
		return task.AwaitTask(inner)
	})
	assert.Nil(t, v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestAwaitTaskDeliversTerminalOutcome(t *testing.T) {
	r := newTestReactor(t)
	v, err := coro.Run(r, func(task *coro.Task) (any, error) {
		inner := coro.Spawn(r, func(task *coro.Task) (any, error) {
			got, err := task.Await(scheduleOutcome(r, api.Outcome{Value: 10}))
			if err != nil {
				return nil, err
			}
			return got.(int) * 2, nil
		})
		return task.AwaitTask(inner)
	})
	require.NoError(t, err)
	assert.Equal(t, 20, v)
}

func TestAwaitAlreadyFinishedTask(t *testing.T) {
	r := newTestReactor(t)
	v, err := coro.Run(r, func(task *coro.Task) (any, error) {
		inner := coro.Spawn(r, func(task *coro.Task) (any, error) { return "done", nil })
		// Give the inner task time to finish before observing it.
		got, err := task.Await(scheduleOutcome(r, api.Outcome{}))
		_ = got
		if err != nil {
			return nil, err
		}
		return task.AwaitTask(inner)
	})
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestAllCollectsResultsInOrder(t *testing.T) {
	r := newTestReactor(t)
	v, err := coro.Run(r, func(task *coro.Task) (any, error) {
		tasks := make([]*coro.Task, 3)
		for i := range tasks {
			i := i
			tasks[i] = coro.Spawn(r, func(task *coro.Task) (any, error) {
				got, err := task.Await(scheduleOutcome(r, api.Outcome{Value: i}))
				if err != nil {
					return nil, err
				}
				return got, nil
			})
		}
		return coro.All(task, tasks...)
	})
	require.NoError(t, err)
	assert.Equal(t, []any{0, 1, 2}, v)
}

func TestAllReturnsFirstFailure(t *testing.T) {
	r := newTestReactor(t)
	boom := errors.New("boom")
	_, err := coro.Run(r, func(task *coro.Task) (any, error) {
		ok := coro.Spawn(r, func(task *coro.Task) (any, error) { return 1, nil })
		bad := coro.Spawn(r, func(task *coro.Task) (any, error) { return nil, boom })
		return coro.All(task, ok, bad)
	})
	assert.ErrorIs(t, err, boom)
}

func TestSleepSuspendsUntilDeadline(t *testing.T) {
	current := time.Unix(0, 0)
	p := fake.NewPoller()
	r, err := reactor.New(
		reactor.WithPoller(&advancingPoller{Poller: p, now: &current}),
		reactor.WithClock(func() time.Time { return current }),
	)
	require.NoError(t, err)

	var woke time.Time
	_, err = coro.Run(r, func(task *coro.Task) (any, error) {
		coro.Sleep(task, 25*time.Millisecond)
		woke = current
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, woke.Before(time.Unix(0, 0).Add(25*time.Millisecond)))
}

func TestTasksInterleaveCooperatively(t *testing.T) {
	r := newTestReactor(t)
	var trace []string
	step := func(name string, task *coro.Task) {
		trace = append(trace, name)
		_, _ = task.Await(scheduleOutcome(r, api.Outcome{}))
	}
	_, err := coro.Run(r, func(task *coro.Task) (any, error) {
		a := coro.Spawn(r, func(task *coro.Task) (any, error) {
			step("a1", task)
			step("a2", task)
			return nil, nil
		})
		b := coro.Spawn(r, func(task *coro.Task) (any, error) {
			step("b1", task)
			step("b2", task)
			return nil, nil
		})
		return coro.All(task, a, b)
	})
	require.NoError(t, err)
	// Round-robin through the shared ready queue.
	assert.Equal(t, []string{"a1", "b1", "a2", "b2"}, trace)
}

// advancingPoller advances the simulated clock by the wait timeout.
type advancingPoller struct {
	*fake.Poller
	now *time.Time
}

func (p *advancingPoller) Wait(timeout time.Duration, events []api.Event) (int, error) {
	if timeout > 0 {
		*p.now = p.now.Add(timeout)
	}
	return p.Poller.Wait(timeout, events)
}
