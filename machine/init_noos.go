//go:build noos

package machine

import (
	"embedded/rtos"
	_ "unsafe" // for linkname

	"github.com/clktmr/usart/drivers"
	"github.com/clktmr/usart/mcu/dma"
	"github.com/clktmr/usart/mcu/gpio"
	"github.com/clktmr/usart/mcu/rcc"
	"github.com/clktmr/usart/mcu/usart"
)

const (
	IrqDMA1Stream5 rtos.IRQ = 16 // console receive
	IrqDMA1Stream6 rtos.IRQ = 17 // console transmit
)

var (
	rxmem [64]byte
	txmem [256]byte
)

// The console and its DMA buffers. RxDone and TxDone are woken up by the
// stream interrupts once a transfer on the respective buffer was observed
// complete.
var (
	ConsoleDevice  *usart.Device
	ConsoleRxBuf   *dma.Buffer[dma.Rx]
	ConsoleTxBuf   *dma.Buffer[dma.Tx]
	RxDone, TxDone rtos.Note
)

func init() {
	var err error
	ConsoleDevice, err = Console.Init(Clocks.Baud(ConsoleBaud), dma.DMA1(), gpio.A(), gpio.D(), rcc.RCC(), Clocks)
	if err != nil {
		panic(err)
	}
	ConsoleRxBuf = ConsoleDevice.NewRxBuffer(rxmem[:])
	ConsoleTxBuf = ConsoleDevice.NewTxBuffer(txmem[:])

	rtos.SetSystemWriter(drivers.NewSystemWriter(DefaultWriter))

	for _, irq := range []rtos.IRQ{IrqDMA1Stream5, IrqDMA1Stream6} {
		if err := irq.Enable(rtos.IntPrioLow, 0); err != nil {
			panic(err)
		}
	}
}

//go:linkname dma1Stream5Handler IRQ16_Handler
//go:interrupthandler
func dma1Stream5Handler() {
	if done, _ := dma.Poll(ConsoleRxBuf); done {
		RxDone.Wakeup()
	}
}

//go:linkname dma1Stream6Handler IRQ17_Handler
//go:interrupthandler
func dma1Stream6Handler() {
	if done, _ := dma.Poll(ConsoleTxBuf); done {
		TxDone.Wakeup()
	}
}
