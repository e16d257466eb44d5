package usart

import (
	"unsafe"

	"github.com/clktmr/usart/mcu/cpu"
	"github.com/clktmr/usart/mcu/dma"
	"github.com/clktmr/usart/mcu/gpio"
	"github.com/clktmr/usart/mcu/rcc"
)

// Variant binds one USART instance to its fixed pin assignment, its clock
// gates, its DMA request mapping and the bus it's clocked by. TX and RX are
// the GPIO port types of the pins, B the peripheral bus. Handing Init a port
// other than the one the pins live on is a compile error.
type Variant[TX, RX gpio.Port, B rcc.Bus] struct {
	capability
}

type capability struct {
	regs  *Registers
	gate  rcc.Gate
	txPin gpio.Pin
	rxPin gpio.Pin
	af    gpio.AF

	dmac    *dma.Controller
	dmaGate rcc.Gate
	rx, tx  dmaRequest
}

type dmaRequest struct {
	stream  int
	channel dma.Channel
}

func periph(offset uintptr) *Registers {
	return (*Registers)(unsafe.Pointer(uintptr(cpu.Periph) + offset))
}

var (
	// USART1 on PA9 (TX) and PB7 (RX).
	USART1 = &Variant[*gpio.PortA, *gpio.PortB, rcc.APB2Bus]{capability{
		regs: periph(0x0001_1000), gate: rcc.USART1,
		txPin: 9, rxPin: 7, af: gpio.AF7,
		dmac: dma.DMA2(), dmaGate: rcc.DMA2,
		rx: dmaRequest{2, 4}, tx: dmaRequest{7, 4},
	}}

	// USART2 on PA2 (TX) and PD6 (RX).
	USART2 = &Variant[*gpio.PortA, *gpio.PortD, rcc.APB1Bus]{capability{
		regs: periph(0x0000_4400), gate: rcc.USART2,
		txPin: 2, rxPin: 6, af: gpio.AF7,
		dmac: dma.DMA1(), dmaGate: rcc.DMA1,
		rx: dmaRequest{5, 4}, tx: dmaRequest{6, 4},
	}}

	// USART6 on PC6 (TX) and PG9 (RX).
	USART6 = &Variant[*gpio.PortC, *gpio.PortG, rcc.APB2Bus]{capability{
		regs: periph(0x0001_1400), gate: rcc.USART6,
		txPin: 6, rxPin: 9, af: gpio.AF8,
		dmac: dma.DMA2(), dmaGate: rcc.DMA2,
		rx: dmaRequest{1, 5}, tx: dmaRequest{6, 5},
	}}
)

// Relocate returns a copy of v with its register block and DMA controller
// moved, e.g. to an emulated peripheral.
func (v *Variant[TX, RX, B]) Relocate(regs *Registers, dmac *dma.Controller) *Variant[TX, RX, B] {
	c := *v
	c.regs, c.dmac = regs, dmac
	return &c
}

// Registers returns the variant's register block.
func (v *Variant[TX, RX, B]) Registers() *Registers { return v.regs }

// DMA returns the controller serving the variant's requests and the receive
// and transmit stream numbers.
func (v *Variant[TX, RX, B]) DMA() (c *dma.Controller, rx, tx int) {
	return v.dmac, v.rx.stream, v.tx.stream
}
