// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor implements the single-threaded readiness event loop:
// poll for I/O readiness, drain the ready queue, repeat until no work
// remains. It owns the callback registry (one pending continuation per
// interest), the FIFO ready queue, and a binary timer heap.
//
// The reactor is an explicit value constructed by the entry point and
// threaded into every socket and task constructor; there is no ambient
// process-wide instance.
package reactor
