// File: coro/join.go
// Author: momentics <momentics@gmail.com>
//
// Timer suspension and task joining.

package coro

import (
	"time"

	"github.com/momentics/hioload-evloop/api"
)

// Sleep suspends the task for at least d.
func Sleep(t *Task, d time.Duration) {
	_, _ = t.Await(func(cont api.Continuation) error {
		t.r.SetTimer(d, cont)
		return nil
	})
}

// All joins every task, collecting results in argument order. The
// first failure observed is returned; remaining tasks still run to
// their terminal outcome before All returns.
func All(t *Task, tasks ...*Task) ([]any, error) {
	results := make([]any, len(tasks))
	var firstErr error
	for i, inner := range tasks {
		v, err := t.AwaitTask(inner)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		results[i] = v
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
