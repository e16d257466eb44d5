// Package machine wires the board: the clock tree the startup code sets up and
// the USART used as system console.
package machine

import (
	"github.com/clktmr/usart/mcu/rcc"
	"github.com/clktmr/usart/mcu/usart"
)

// Clocks as configured by the startup code: 168 MHz from the PLL, APB1 at
// HCLK/4 and APB2 at HCLK/2.
var Clocks = rcc.Clocks{
	SYSCLK: 168e6,
	HCLK:   168e6,
	PCLK1:  42e6,
	PCLK2:  84e6,
}

const ConsoleBaud = 115200

// Console is routed to the debug probe's virtual COM port.
var Console = usart.USART2
