// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Named debug probes for loop inspection. A probe is a snapshot
// function evaluated lazily at dump time, so attaching one costs
// nothing while the loop runs.

package control

import (
	"sync"

	"github.com/momentics/hioload-evloop/reactor"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook, replacing any prior probe
// under the same name.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// AttachLoop registers a probe that snapshots the reactor's counters
// on every dump.
func (dp *DebugProbes) AttachLoop(name string, r *reactor.Reactor) {
	dp.RegisterProbe(name, func() any { return r.Stats() })
}

// DumpState evaluates all probes and returns their current values.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}
