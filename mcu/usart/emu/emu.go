// Package emu emulates a USART with its DMA controller in ordinary memory, so
// the driver can run on the host.
//
// The emulated line is either looped back, so every transmitted byte is
// received again, or wired to an io.Writer with received bytes supplied by
// Feed. Bytes move instantly, DMA streams progress only when Step is called.
package emu

import (
	"io"
	"sync"

	"github.com/clktmr/usart/mcu/cpu"
	"github.com/clktmr/usart/mcu/dma"
	"github.com/clktmr/usart/mcu/mmio"
	"github.com/clktmr/usart/mcu/rcc"
	"github.com/clktmr/usart/mcu/usart"
)

// Machine holds the emulated register blocks. Pass USART and DMA to
// Variant.Relocate and RCC to Init.
type Machine struct {
	USART usart.Registers
	DMA   dma.Controller
	RCC   rcc.Registers

	mtx    sync.Mutex
	rx, tx int
	fifo   []byte
	last   byte
	out    io.Writer
	mem    [][]byte
	armed  [dma.Streams]int // transfer length seen when armed, 0 if idle
	traps  []uintptr
	closed bool
}

// New returns a looped back machine whose USART is served by the DMA streams
// rx and tx.
func New(rx, tx int) *Machine {
	m := &Machine{rx: rx, tx: tx}
	m.USART.SR.Store(usart.TXE | usart.TC)

	m.trap(m.USART.DR.Addr(), dataRegister{m})
	for i := range m.DMA.IFCR {
		m.trap(m.DMA.IFCR[i].Addr(), clearRegister{&m.DMA.ISR[i]})
	}
	return m
}

func (m *Machine) trap(addr uintptr, i mmio.Interceptor) {
	mmio.Intercept(addr, i)
	m.traps = append(m.traps, addr)
}

// Close removes the machine's register hooks.
func (m *Machine) Close() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.closed {
		return nil
	}
	for _, addr := range m.traps {
		mmio.Release(addr)
	}
	m.closed = true
	return nil
}

// SetOutput sends transmitted bytes to w instead of looping them back. A nil w
// restores the loopback.
func (m *Machine) SetOutput(w io.Writer) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.out = w
}

// Feed puts p on the receive line.
func (m *Machine) Feed(p []byte) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.receive(p...)
}

// Pending returns the number of received bytes not read yet.
func (m *Machine) Pending() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return len(m.fifo)
}

// InjectError raises the receive error flags in f. They are cleared by the
// next read of the data register.
func (m *Machine) InjectError(f usart.Status) {
	m.USART.SR.SetBits(f & (usart.ORE | usart.NF | usart.FE | usart.PE))
}

// Attach makes p reachable by the emulated DMA. Buffers passed to the driver
// must be attached before their transfer is stepped, otherwise it fails with
// a transfer error.
func (m *Machine) Attach(p []byte) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.mem = append(m.mem, p)
}

func (m *Machine) receive(p ...byte) {
	if len(p) == 0 {
		return
	}
	m.fifo = append(m.fifo, p...)
	m.USART.SR.SetBits(usart.RXNE)
}

func (m *Machine) transmit(p ...byte) {
	if m.out != nil {
		m.out.Write(p)
	} else {
		m.receive(p...)
	}
	m.USART.SR.SetBits(usart.TXE | usart.TC)
}

// pop emulates reading the data register.
func (m *Machine) pop() byte {
	if len(m.fifo) > 0 {
		m.last = m.fifo[0]
		m.fifo = m.fifo[1:]
	}
	clr := usart.ORE | usart.NF | usart.FE | usart.PE | usart.IDLE
	if len(m.fifo) == 0 {
		clr |= usart.RXNE
	}
	m.USART.SR.ClearBits(clr)
	return m.last
}

func (m *Machine) enabled() bool {
	return m.USART.CR1.LoadBits(usart.UE) != 0
}

type dataRegister struct{ m *Machine }

func (r dataRegister) Load(addr uintptr, v uint32) uint32 {
	r.m.mtx.Lock()
	defer r.m.mtx.Unlock()
	return uint32(r.m.pop())
}

func (r dataRegister) Store(addr uintptr, old, v uint32) uint32 {
	r.m.mtx.Lock()
	defer r.m.mtx.Unlock()
	if r.m.enabled() && r.m.USART.CR1.LoadBits(usart.TE) != 0 {
		r.m.transmit(byte(v))
	}
	return old
}

// clearRegister is a write 1 to clear register of the flags in isr.
type clearRegister struct{ isr *mmio.U32 }

func (r clearRegister) Load(addr uintptr, v uint32) uint32 { return 0 }

func (r clearRegister) Store(addr uintptr, old, v uint32) uint32 {
	r.isr.ClearBits(v)
	return 0
}

// memory returns the attached region starting at addr, if it's at least n
// bytes long.
func (m *Machine) memory(addr uint32, n int) []byte {
	for _, p := range m.mem {
		if uint32(cpu.AddrOf(p)) == addr && len(p) >= n {
			return p[:n]
		}
	}
	return nil
}
