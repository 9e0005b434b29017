// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package coro is the coroutine driver: it lets a unit of sequential
// logic be written as a straight-line function that suspends at await
// points and is resumed with the operation's outcome.
//
// A task body runs on its own goroutine, but execution is strictly
// cooperative: an unbuffered-channel handoff guarantees that at any
// instant either the loop thread or exactly one task body is runnable,
// never both. The driver sees the body only through the resume
// protocol — each resume ends with the task suspended on its next
// awaited operation, done with a result, or failed.
package coro
