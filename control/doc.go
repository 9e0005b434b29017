// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection for the reactor core.
// Provides a snapshot-style metrics registry and named probe hooks
// for state export, fed from the loop's own counters.
package control
