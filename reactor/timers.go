// File: reactor/timers.go
// Author: momentics <momentics@gmail.com>
//
// Binary min-heap of deferred continuations, ordered by deadline then
// by registration sequence so same-deadline timers fire in FIFO order.

package reactor

import (
	"container/heap"
	"time"

	"github.com/momentics/hioload-evloop/api"
)

type timerEntry struct {
	when time.Time
	seq  uint64
	cont api.Continuation
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) { *h = append(*h, x.(*timerEntry)) }

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// next reports the earliest pending deadline.
func (h timerHeap) next() (time.Time, bool) {
	if len(h) == 0 {
		return time.Time{}, false
	}
	return h[0].when, true
}

// popDue removes and returns the earliest timer if it is due at now.
func (h *timerHeap) popDue(now time.Time) (*timerEntry, bool) {
	if len(*h) == 0 || (*h)[0].when.After(now) {
		return nil, false
	}
	return heap.Pop(h).(*timerEntry), true
}
