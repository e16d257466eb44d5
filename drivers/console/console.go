//go:build noos

// Package console makes a USART the standard input and output of the
// program.
package console

import (
	"embedded/rtos"
	"os"
	"syscall"

	"github.com/clktmr/usart/mcu/usart"

	"github.com/embeddedgo/fs/termfs"
)

// Setup mounts a terminal on the USART d at path and redirects os.Stdin,
// os.Stdout and os.Stderr to it.
func Setup(d *usart.Device, path string) error {
	port := usart.NewPort(d)
	fs := termfs.NewLight("usart", port, port)
	rtos.Mount(fs, path)

	in, err := os.OpenFile(path, syscall.O_RDONLY, 0)
	if err != nil {
		return err
	}
	out, err := os.OpenFile(path, syscall.O_WRONLY, 0)
	if err != nil {
		in.Close()
		return err
	}
	os.Stdin, os.Stdout, os.Stderr = in, out, out
	return nil
}
