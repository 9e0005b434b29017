// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package poller provides platform readiness pollers implementing the
// api.Poller contract: epoll on Linux and kqueue on Darwin, selected by
// build tags. Pollers do pure I/O multiplexing; all dispatch policy
// lives in the reactor package.
package poller
