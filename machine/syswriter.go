package machine

import "github.com/clktmr/usart/mcu/usart"

var consoleRegs = Console.Registers()

// DefaultWrite writes to the console USART by polling its registers. It works
// before the console is initialized by the runtime and from any context, but
// blocks the caller until every byte was handed to the hardware. Only intended
// as a fail safe writer for print and panic.
func DefaultWrite(fd int, p []byte) int {
	if consoleRegs.CR1.LoadBits(usart.UE|usart.TE) != usart.UE|usart.TE {
		return len(p)
	}
	for _, c := range p {
		for consoleRegs.SR.LoadBits(usart.TXE) == 0 {
			// wait
		}
		consoleRegs.DR.Store(uint32(c))
	}
	return len(p)
}

type defaultWriter int

const DefaultWriter defaultWriter = 0

func (v defaultWriter) Write(p []byte) (int, error) {
	return DefaultWrite(int(v), p), nil
}
