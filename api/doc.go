// Package api
// Author: momentics <momentics@gmail.com>
//
// Shared contracts for the hioload-evloop reactor core.
// Defines the interest/continuation/outcome vocabulary used by the reactor,
// the platform poller contract, and the library error taxonomy.
// Implementation packages: poller, reactor, transport, coro.
package api
