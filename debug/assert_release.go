//go:build !debug

// Package debug holds checks of driver invariants. They panic when built with
// the debug tag and compile to nothing otherwise.
package debug

// Enabled guards checks that are more than a single condition:
//
//	if debug.Enabled && !valid(x) {
//		panic(...)
//	}
const Enabled = false

// Assert panics with msg if cond is false.
func Assert(cond bool, msg string) {}
