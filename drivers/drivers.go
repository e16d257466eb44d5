// Package drivers builds upon the mcu packages to provide common interfaces
// and higher-level features.
package drivers

import "io"

// SystemWriter is the signature of the writer behind print, println and
// panic messages.
type SystemWriter func(fd int, p []byte) int

// NewSystemWriter returns a SystemWriter for rtos.SetSystemWriter writing to w.
// Write errors are dropped, there's nobody to report them to.
func NewSystemWriter(w io.Writer) SystemWriter {
	return func(fd int, p []byte) int {
		n, _ := w.Write(p)
		return n
	}
}
