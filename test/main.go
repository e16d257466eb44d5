//go:build noos

// Test runs the on-board tests. USART6 needs its TX pin PC6 wired to its RX
// pin PG9.
package main

import (
	"embedded/rtos"
	"os"
	"reflect"
	"runtime"
	"testing"

	"github.com/clktmr/usart/drivers"
	"github.com/clktmr/usart/drivers/console"
	"github.com/clktmr/usart/machine"

	"github.com/clktmr/usart/test/mcu/usart_test"
)

func init() {
	rtos.SetSystemWriter(drivers.NewSystemWriter(machine.DefaultWriter))
	if err := console.Setup(machine.ConsoleDevice, "/dev/console"); err != nil {
		panic(err)
	}
}

func main() {
	os.Args = append(os.Args, "-test.v")
	os.Args = append(os.Args, "-test.bench=.")
	testing.Main(
		matchAll,
		[]testing.InternalTest{
			newInternalTest(usart_test.TestPolledLoopback),
			newInternalTest(usart_test.TestDMALoopback),
			newInternalTest(usart_test.TestStreamInUse),
		},
		[]testing.InternalBenchmark{
			newInternalBenchmark(usart_test.BenchmarkWriteAll),
		}, nil,
	)
}

func matchAll(_ string, _ string) (bool, error) { return true, nil }

func newInternalTest(testFn func(*testing.T)) testing.InternalTest {
	return testing.InternalTest{
		runtime.FuncForPC(reflect.ValueOf(testFn).Pointer()).Name(),
		testFn,
	}
}

func newInternalBenchmark(testFn func(*testing.B)) testing.InternalBenchmark {
	return testing.InternalBenchmark{
		runtime.FuncForPC(reflect.ValueOf(testFn).Pointer()).Name(),
		testFn,
	}
}
