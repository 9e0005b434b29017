//go:build linux || darwin

// File: coro/await.go
// Author: momentics <momentics@gmail.com>
//
// Suspending forms of the socket operations: thin adapters from a
// callback-passing operation to an await point on the task.

package coro

import (
	"github.com/momentics/hioload-evloop/api"
	"github.com/momentics/hioload-evloop/transport"
)

// Connect suspends until the socket is established or the connect
// fails.
func Connect(t *Task, s *transport.Socket, addr string) error {
	_, err := t.Await(func(cont api.Continuation) error {
		return s.Connect(addr, cont)
	})
	return err
}

// Send suspends until the whole buffer is flushed, returning the
// byte count (always len(p) on success).
func Send(t *Task, s *transport.Socket, p []byte) (int, error) {
	v, err := t.Await(func(cont api.Continuation) error {
		return s.Send(p, cont)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Recv suspends until data arrives, returning a zero-length slice on
// orderly peer shutdown.
func Recv(t *Task, s *transport.Socket, max int) ([]byte, error) {
	v, err := t.Await(func(cont api.Continuation) error {
		return s.Recv(max, cont)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Accept suspends until the next inbound connection.
func Accept(t *Task, l *transport.Listener) (*transport.Socket, error) {
	v, err := t.Await(func(cont api.Continuation) error {
		return l.Accept(cont)
	})
	if err != nil {
		return nil, err
	}
	return v.(*transport.Socket), nil
}

