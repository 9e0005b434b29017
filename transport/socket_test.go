//go:build linux || darwin

package transport_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-evloop/api"
	"github.com/momentics/hioload-evloop/reactor"
	"github.com/momentics/hioload-evloop/transport"
)

// echoOnce wires an accept->recv->send->close chain on ln, serving a
// single connection.
func echoOnce(t *testing.T, ln *transport.Listener) {
	t.Helper()
	require.NoError(t, ln.Accept(func(o api.Outcome) {
		require.NoError(t, o.Err)
		conn := o.Value.(*transport.Socket)
		require.NoError(t, conn.Recv(1024, func(o api.Outcome) {
			require.NoError(t, o.Err)
			require.NoError(t, conn.Send(o.Value.([]byte), func(o api.Outcome) {
				require.NoError(t, o.Err)
				require.NoError(t, conn.Close())
				require.NoError(t, ln.Close())
			}))
		}))
	}))
}

func TestEchoRoundTripCallbackStyle(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	ln, err := transport.Listen(r, "127.0.0.1:0", 8)
	require.NoError(t, err)
	echoOnce(t, ln)

	sock, err := transport.New(r)
	require.NoError(t, err)

	var reply []byte
	closes := 0
	require.NoError(t, sock.Connect(ln.Addr(), func(o api.Outcome) {
		require.NoError(t, o.Err)
		require.NoError(t, sock.Send([]byte("foobar"), func(o api.Outcome) {
			require.NoError(t, o.Err)
			assert.Equal(t, 6, o.Value.(int))
			require.NoError(t, sock.Recv(1024, func(o api.Outcome) {
				require.NoError(t, o.Err)
				reply = o.Value.([]byte)
				require.NoError(t, sock.Close())
				closes++
			}))
		}))
	}))

	require.NoError(t, r.Run(nil))
	assert.Equal(t, []byte("foobar"), reply)
	assert.Equal(t, 1, closes, "socket closed exactly once")
}

func TestRecvReportsEndOfStream(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	ln, err := transport.Listen(r, "127.0.0.1:0", 8)
	require.NoError(t, err)

	// Server closes immediately after accepting.
	require.NoError(t, ln.Accept(func(o api.Outcome) {
		require.NoError(t, o.Err)
		require.NoError(t, o.Value.(*transport.Socket).Close())
		require.NoError(t, ln.Close())
	}))

	sock, err := transport.New(r)
	require.NoError(t, err)
	var eof []byte
	gotErr := error(nil)
	require.NoError(t, sock.Connect(ln.Addr(), func(o api.Outcome) {
		require.NoError(t, o.Err)
		require.NoError(t, sock.Recv(1024, func(o api.Outcome) {
			eof, _ = o.Value.([]byte)
			gotErr = o.Err
			require.NoError(t, sock.Close())
		}))
	}))

	require.NoError(t, r.Run(nil))
	assert.NoError(t, gotErr, "orderly shutdown is not a failure")
	assert.NotNil(t, eof)
	assert.Len(t, eof, 0)
}

func TestConnectRefusedDeliversConnectionFailure(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	// Grab a free port, then close the listener so the connect lands
	// on nothing.
	ln, err := transport.Listen(r, "127.0.0.1:0", 1)
	require.NoError(t, err)
	addr := ln.Addr()
	require.NoError(t, ln.Close())

	sock, err := transport.New(r)
	require.NoError(t, err)
	var failure error
	require.NoError(t, sock.Connect(addr, func(o api.Outcome) {
		failure = o.Err
	}))

	require.NoError(t, r.Run(nil))
	require.Error(t, failure)
	assert.Equal(t, api.ErrCodeConnectionFailure, api.CodeOf(failure))
}

func TestUseAfterCloseFailsSynchronously(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	sock, err := transport.New(r)
	require.NoError(t, err)
	require.NoError(t, sock.Close())

	noCall := func(api.Outcome) { t.Fatal("continuation must never run") }
	assert.ErrorIs(t, sock.Connect("127.0.0.1:1", noCall), api.ErrUseAfterClose)
	assert.ErrorIs(t, sock.Send([]byte("x"), noCall), api.ErrUseAfterClose)
	assert.ErrorIs(t, sock.Recv(1, noCall), api.ErrUseAfterClose)
	assert.ErrorIs(t, sock.Close(), api.ErrUseAfterClose)
	assert.Equal(t, uint64(0), r.Stats().Registered,
		"operations on a closed socket must not register interests")
}

func TestDuplicateOperationFailsSynchronously(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	ln, err := transport.Listen(r, "127.0.0.1:0", 8)
	require.NoError(t, err)

	require.NoError(t, ln.Accept(func(o api.Outcome) {
		require.NoError(t, o.Err)
		require.NoError(t, o.Value.(*transport.Socket).Close())
	}))

	sock, err := transport.New(r)
	require.NoError(t, err)
	require.NoError(t, sock.Connect(ln.Addr(), func(o api.Outcome) {
		require.NoError(t, o.Err)
		require.NoError(t, sock.Recv(16, func(api.Outcome) {}))
		assert.ErrorIs(t, sock.Recv(16, func(api.Outcome) {}), api.ErrDuplicateInterest)
		// Unwind everything so the loop can terminate.
		require.NoError(t, sock.Close())
		require.NoError(t, ln.Close())
	}))

	require.NoError(t, r.Run(nil))
}

func TestCloseFromSiblingContinuationDropsPendingRecv(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	ln, err := transport.Listen(r, "127.0.0.1:0", 8)
	require.NoError(t, err)

	// Accept both clients, push one byte to each so their pending
	// receives become readable together, then shut the server side down.
	var serverConns []*transport.Socket
	var acceptNext func()
	acceptNext = func() {
		require.NoError(t, ln.Accept(func(o api.Outcome) {
			require.NoError(t, o.Err)
			serverConns = append(serverConns, o.Value.(*transport.Socket))
			if len(serverConns) < 2 {
				acceptNext()
				return
			}
			for _, conn := range serverConns {
				conn := conn
				require.NoError(t, conn.Send([]byte("x"), func(o api.Outcome) {
					require.NoError(t, o.Err)
					require.NoError(t, conn.Close())
				}))
			}
			require.NoError(t, ln.Close())
		}))
	}
	acceptNext()

	clients := make([]*transport.Socket, 2)
	invocations := 0
	startRecvs := func() {
		for i := range clients {
			sock, sibling := clients[i], clients[1-i]
			require.NoError(t, sock.Recv(16, func(o api.Outcome) {
				invocations++
				require.NoError(t, o.Err)
				// Closing the sibling while its receive is in flight
				// must drop that continuation silently, even when its
				// readiness fired in this very poll cycle.
				require.NoError(t, sibling.Close())
				require.NoError(t, sock.Close())
			}))
		}
	}
	connected := 0
	addr := ln.Addr()
	for i := range clients {
		sock, err := transport.New(r)
		require.NoError(t, err)
		clients[i] = sock
		require.NoError(t, sock.Connect(addr, func(o api.Outcome) {
			require.NoError(t, o.Err)
			connected++
			if connected == 2 {
				startRecvs()
			}
		}))
	}

	require.NoError(t, r.Run(nil))
	assert.Equal(t, 1, invocations,
		"only the surviving socket's continuation may run")
}

func TestConnectOnConnectingSocketRejected(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	ln, err := transport.Listen(r, "127.0.0.1:0", 8)
	require.NoError(t, err)
	addr := ln.Addr()

	sock, err := transport.New(r)
	require.NoError(t, err)
	require.NoError(t, sock.Connect(addr, func(o api.Outcome) {
		require.NoError(t, o.Err)
		require.NoError(t, sock.Close())
		require.NoError(t, ln.Close())
	}))
	assert.ErrorIs(t, sock.Connect(addr, func(api.Outcome) {}), transport.ErrBadSocketState)

	require.NoError(t, r.Run(nil))
}

func TestResolveAddrRejectsGarbage(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	sock, err := transport.New(r)
	require.NoError(t, err)
	defer sock.Close()

	assert.Error(t, sock.Connect("not-an-address", func(api.Outcome) {}))
	assert.Error(t, sock.Connect("[::1]:80", func(api.Outcome) {}), "IPv6 is out of scope")
}
