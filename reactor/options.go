// File: reactor/options.go
// Package reactor defines functional options for Reactor construction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-evloop/api"
)

// Option customizes reactor initialization.
type Option func(*Reactor)

// WithLogger attaches a structured logger. The loop logs at debug
// level only; the default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Reactor) {
		if log != nil {
			r.log = log
		}
	}
}

// WithMaxEvents overrides the per-poll event batch size.
func WithMaxEvents(n int) Option {
	return func(r *Reactor) {
		if n > 0 {
			r.maxEvents = n
		}
	}
}

// WithPoller substitutes the platform poller, used by tests to drive
// the loop deterministically.
func WithPoller(p api.Poller) Option {
	return func(r *Reactor) {
		r.poller = p
	}
}

// WithClock substitutes the time source used for timer deadlines.
func WithClock(now func() time.Time) Option {
	return func(r *Reactor) {
		if now != nil {
			r.now = now
		}
	}
}
