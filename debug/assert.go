//go:build debug

package debug

const Enabled = true

func Assert(cond bool, msg string) {
	if !cond {
		panic("assertion failed: " + msg)
	}
}
