//go:build !linux && !darwin

// File: poller/poller_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package poller

import (
	"errors"

	"github.com/momentics/hioload-evloop/api"
)

// NewPoller returns an error for unsupported platforms.
func NewPoller() (api.Poller, error) {
	return nil, errors.New("poller: this platform is not supported")
}
