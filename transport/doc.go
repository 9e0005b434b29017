// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package transport implements the non-blocking stream socket on raw
// file descriptors. Every operation is attempted in non-blocking mode
// first; on would-block it registers a (descriptor, direction)
// interest with the reactor and resumes when readiness arrives.
// Completion outcomes are always delivered through the reactor's ready
// queue, never synchronously from the operation call.
package transport
