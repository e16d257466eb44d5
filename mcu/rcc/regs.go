// Package rcc drives the reset and clock control block. Peripherals must have
// their bus clock gate enabled before any of their registers are written.
package rcc

import (
	"unsafe"

	"github.com/clktmr/usart/mcu/cpu"
	"github.com/clktmr/usart/mcu/mmio"
)

const baseAddr uintptr = uintptr(cpu.Periph) + 0x0002_3800

// Registers is the RCC register block, up to the APB2 clock enable register.
type Registers struct {
	CR       mmio.U32
	PLLCFGR  mmio.U32
	CFGR     mmio.U32
	CIR      mmio.U32
	AHB1RSTR mmio.U32
	AHB2RSTR mmio.U32
	AHB3RSTR mmio.U32
	_        mmio.U32
	APB1RSTR mmio.U32
	APB2RSTR mmio.U32
	_        [2]mmio.U32
	AHB1ENR  mmio.U32
	AHB2ENR  mmio.U32
	AHB3ENR  mmio.U32
	_        mmio.U32
	APB1ENR  mmio.U32
	APB2ENR  mmio.U32
}

// RCC returns the memory mapped RCC register block.
func RCC() *Registers {
	return (*Registers)(unsafe.Pointer(baseAddr))
}

// Domain selects the clock enable register a gate lives in.
type Domain uint8

const (
	AHB1 Domain = iota
	APB1
	APB2
)

// Gate is a single peripheral clock enable bit.
type Gate struct {
	Domain Domain
	Bit    uint8
}

// Gates of the peripherals used by this module.
var (
	GPIOA = Gate{AHB1, 0}
	GPIOB = Gate{AHB1, 1}
	GPIOC = Gate{AHB1, 2}
	GPIOD = Gate{AHB1, 3}
	GPIOE = Gate{AHB1, 4}
	GPIOF = Gate{AHB1, 5}
	GPIOG = Gate{AHB1, 6}
	GPIOH = Gate{AHB1, 7}
	GPIOI = Gate{AHB1, 8}
	DMA1  = Gate{AHB1, 21}
	DMA2  = Gate{AHB1, 22}

	USART2 = Gate{APB1, 17}
	USART1 = Gate{APB2, 4}
	USART6 = Gate{APB2, 5}
)

func (r *Registers) enr(d Domain) *mmio.U32 {
	switch d {
	case AHB1:
		return &r.AHB1ENR
	case APB1:
		return &r.APB1ENR
	case APB2:
		return &r.APB2ENR
	}
	panic("rcc: invalid clock domain")
}

// Enable turns on the clocks of all gates, in order.
func (r *Registers) Enable(gates ...Gate) {
	for _, g := range gates {
		r.enr(g.Domain).SetBits(1 << g.Bit)
	}
}

// Disable turns off the clocks of all gates, in order.
func (r *Registers) Disable(gates ...Gate) {
	for _, g := range gates {
		r.enr(g.Domain).ClearBits(1 << g.Bit)
	}
}

func (r *Registers) Enabled(g Gate) bool {
	return r.enr(g.Domain).LoadBits(1<<g.Bit) != 0
}
