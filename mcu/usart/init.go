package usart

import (
	"github.com/clktmr/usart/mcu/dma"
	"github.com/clktmr/usart/mcu/gpio"
	"github.com/clktmr/usart/mcu/rcc"
)

// Divisor returns the BRR value for a bit length of baud ticks on a USART
// clocked by bus B. The peripheral can't sample bits shorter than 16 of its
// clock cycles.
func Divisor[B rcc.Bus](baud rcc.Ticks, clocks rcc.Clocks) (uint32, error) {
	prescale := rcc.Prescale[B](clocks)
	if prescale == 0 {
		return 0, ErrBaudRate
	}
	div := baud.Raw() / prescale
	if div < 16 || div > 0xffff {
		return 0, ErrBaudRate
	}
	return div, nil
}

// Init enables the clocks of the USART, its pins and optionally its DMA
// controller and configures it for 8N1 at the given bit length. tx and rx are
// the ports of the variant's pins, rc the clock controller.
//
// If dmac is not nil, both DMA streams of the variant are configured for
// ReadExact and WriteAll. Stream interrupts are enabled, the NVIC is left to
// the caller.
//
// Init validates its arguments before writing any register. The only errors
// are ErrBaudRate and ErrWrongController, a board can't continue after
// either.
func (v *Variant[TX, RX, B]) Init(baud rcc.Ticks, dmac *dma.Controller, tx TX, rx RX, rc *rcc.Registers, clocks rcc.Clocks) (*Device, error) {
	div, err := Divisor[B](baud, clocks)
	if err != nil {
		return nil, err
	}
	if dmac != nil && dmac != v.dmac {
		return nil, ErrWrongController
	}

	if dmac != nil {
		rc.Enable(v.dmaGate)
	}
	rc.Enable(v.gate, tx.Gate(), rx.Gate())

	for _, p := range [...]struct {
		regs *gpio.Registers
		pin  gpio.Pin
	}{{tx.Regs(), v.txPin}, {rx.Regs(), v.rxPin}} {
		p.regs.SetAltFunc(p.pin, v.af)
		p.regs.SetSpeed(p.pin, gpio.VeryHigh)
		p.regs.SetMode(p.pin, gpio.AltFunc)
	}

	if dmac != nil {
		dmac.Configure(v.rx.stream, streamConfig(v.rx, dma.PeriphToMem))
		dmac.Configure(v.tx.stream, streamConfig(v.tx, dma.MemToPeriph))
	}

	regs := v.regs
	regs.CR2.StoreBits(STOP, Stop1)
	regs.BRR.Store(div)
	regs.CR3.StoreBits(RTSE|CTSE|DMAR|DMAT, DMAR|DMAT)
	regs.CR1.StoreBits(UE|RE|TE|M|OVER8|PCE|PS|RXNEIE, UE|RE|TE)

	return &Device{regs: regs, cfg: &v.capability, dmac: dmac}, nil
}

func streamConfig(r dmaRequest, dir dma.Direction) dma.StreamConfig {
	return dma.StreamConfig{
		Channel:     r.channel,
		Priority:    dma.PriorityMedium,
		MemSize:     dma.Byte,
		PeriphSize:  dma.Byte,
		MemInc:      true,
		Dir:         dir,
		CompleteIRQ: true,
	}
}
