// Package gpio configures the electrical behaviour and routing of pins.
//
// Each port has its own type, so code that requires a specific port can't be
// handed a different one.
package gpio

import (
	"unsafe"

	"github.com/clktmr/usart/debug"
	"github.com/clktmr/usart/mcu/cpu"
	"github.com/clktmr/usart/mcu/mmio"
	"github.com/clktmr/usart/mcu/rcc"
)

const (
	baseAddr uintptr = uintptr(cpu.Periph) + 0x0002_0000
	portSize uintptr = 0x400
)

type Registers struct {
	MODER   mmio.U32
	OTYPER  mmio.U32
	OSPEEDR mmio.U32
	PUPDR   mmio.U32
	IDR     mmio.U32
	ODR     mmio.U32
	BSRR    mmio.U32
	LCKR    mmio.U32
	AFR     [2]mmio.U32
}

// Pin is a pin number within a port.
type Pin uint8

type Mode uint32

const (
	Input Mode = iota
	Output
	AltFunc
	Analog
)

type Speed uint32

const (
	Low Speed = iota
	Medium
	High
	VeryHigh
)

// AF selects one of the 16 peripherals a pin can be routed to in AltFunc mode.
type AF uint32

const (
	AF7 AF = 7 // USART1..3
	AF8 AF = 8 // USART4..6
)

func (r *Registers) SetMode(pin Pin, m Mode) {
	debug.Assert(pin < 16, "gpio: invalid pin")
	r.MODER.StoreBits(3<<(2*pin), uint32(m)<<(2*pin))
}

func (r *Registers) Mode(pin Pin) Mode {
	return Mode(r.MODER.Load()>>(2*pin)) & 3
}

func (r *Registers) SetSpeed(pin Pin, s Speed) {
	debug.Assert(pin < 16, "gpio: invalid pin")
	r.OSPEEDR.StoreBits(3<<(2*pin), uint32(s)<<(2*pin))
}

func (r *Registers) Speed(pin Pin) Speed {
	return Speed(r.OSPEEDR.Load()>>(2*pin)) & 3
}

func (r *Registers) SetAltFunc(pin Pin, af AF) {
	debug.Assert(pin < 16, "gpio: invalid pin")
	shift := 4 * (pin % 8)
	r.AFR[pin/8].StoreBits(0xf<<shift, uint32(af)<<shift)
}

func (r *Registers) AltFunc(pin Pin) AF {
	return AF(r.AFR[pin/8].Load()>>(4*(pin%8))) & 0xf
}

// Port is implemented by pointers to the port types.
type Port interface {
	Regs() *Registers
	Gate() rcc.Gate
}

type (
	PortA struct{ r Registers }
	PortB struct{ r Registers }
	PortC struct{ r Registers }
	PortD struct{ r Registers }
	PortE struct{ r Registers }
	PortF struct{ r Registers }
	PortG struct{ r Registers }
	PortH struct{ r Registers }
	PortI struct{ r Registers }
)

func (p *PortA) Regs() *Registers { return &p.r }
func (p *PortB) Regs() *Registers { return &p.r }
func (p *PortC) Regs() *Registers { return &p.r }
func (p *PortD) Regs() *Registers { return &p.r }
func (p *PortE) Regs() *Registers { return &p.r }
func (p *PortF) Regs() *Registers { return &p.r }
func (p *PortG) Regs() *Registers { return &p.r }
func (p *PortH) Regs() *Registers { return &p.r }
func (p *PortI) Regs() *Registers { return &p.r }

func (*PortA) Gate() rcc.Gate { return rcc.GPIOA }
func (*PortB) Gate() rcc.Gate { return rcc.GPIOB }
func (*PortC) Gate() rcc.Gate { return rcc.GPIOC }
func (*PortD) Gate() rcc.Gate { return rcc.GPIOD }
func (*PortE) Gate() rcc.Gate { return rcc.GPIOE }
func (*PortF) Gate() rcc.Gate { return rcc.GPIOF }
func (*PortG) Gate() rcc.Gate { return rcc.GPIOG }
func (*PortH) Gate() rcc.Gate { return rcc.GPIOH }
func (*PortI) Gate() rcc.Gate { return rcc.GPIOI }

func port(n uintptr) unsafe.Pointer {
	return unsafe.Pointer(baseAddr + n*portSize)
}

// Memory mapped ports.
func A() *PortA { return (*PortA)(port(0)) }
func B() *PortB { return (*PortB)(port(1)) }
func C() *PortC { return (*PortC)(port(2)) }
func D() *PortD { return (*PortD)(port(3)) }
func E() *PortE { return (*PortE)(port(4)) }
func F() *PortF { return (*PortF)(port(5)) }
func G() *PortG { return (*PortG)(port(6)) }
func H() *PortH { return (*PortH)(port(7)) }
func I() *PortI { return (*PortI)(port(8)) }
