// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for loop-level monitoring.
// Exposes counters in a map with dynamic registration. Snapshots are
// taken on the loop thread; reads may come from anywhere.

package control

import (
	"sync"
	"time"

	"github.com/momentics/hioload-evloop/reactor"
)

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}

// CollectLoop publishes the reactor's counters under the "loop."
// prefix. Call it from the loop thread (e.g. a timer continuation).
func (mr *MetricsRegistry) CollectLoop(r *reactor.Reactor) {
	s := r.Stats()
	mr.mu.Lock()
	mr.metrics["loop.ticks"] = s.Ticks
	mr.metrics["loop.polls"] = s.Polls
	mr.metrics["loop.callbacks"] = s.Callbacks
	mr.metrics["loop.registered"] = s.Registered
	mr.metrics["loop.fired"] = s.Fired
	mr.metrics["loop.canceled"] = s.Canceled
	mr.metrics["loop.timers_fired"] = s.TimersFired
	mr.metrics["loop.err_wakeups"] = s.ErrWakeups
	mr.updated = time.Now()
	mr.mu.Unlock()
}
