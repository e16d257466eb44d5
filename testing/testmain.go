//go:build noos

// Package testing provides utilities for running tests on the board.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/clktmr/usart/drivers/console"
	"github.com/clktmr/usart/machine"
)

// TestMain should be used as TestMain for tests running on the board. Output
// goes to the console USART.
func TestMain(m *testing.M) {
	if err := console.Setup(machine.ConsoleDevice, "/dev/console"); err != nil {
		panic(err)
	}
	fmt.Printf("\nrunning tests on %s at %d baud\n\n", os.Args[0], machine.ConsoleBaud)

	// TODO find a way to pass these from the 'go test' command
	os.Args = append(os.Args, "-test.v")
	os.Args = append(os.Args, "-test.short")

	os.Exit(m.Run())
}
