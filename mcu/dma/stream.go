package dma

import (
	"github.com/clktmr/usart/debug"
	"github.com/clktmr/usart/mcu/cpu"
)

type Direction uint8

const (
	PeriphToMem Direction = iota
	MemToPeriph
	MemToMem
)

type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityVeryHigh
)

// Width is the size of a single data item.
type Width uint8

const (
	Byte Width = iota
	HalfWord
	Word
)

// Channel selects which peripheral request drives a stream.
type Channel uint8

// StreamConfig describes a stream's SxCR. All fields but Enable are fixed when
// the stream is configured; Enable is only set when a transfer is armed.
type StreamConfig struct {
	Channel     Channel
	Priority    Priority
	MemSize     Width
	PeriphSize  Width
	MemInc      bool
	PeriphInc   bool
	Circular    bool
	Dir         Direction
	CompleteIRQ bool
	Enable      bool
}

func bit(b bool, c Control) Control {
	if b {
		return c
	}
	return 0
}

// Control encodes cfg as SxCR value.
func (cfg StreamConfig) Control() Control {
	return Control(cfg.Channel)<<chselShift&CHSEL |
		Control(cfg.Priority)<<plShift&PL |
		Control(cfg.MemSize)<<msizeShift&MSIZE |
		Control(cfg.PeriphSize)<<psizeShift&PSIZE |
		bit(cfg.MemInc, MINC) |
		bit(cfg.PeriphInc, PINC) |
		bit(cfg.Circular, CIRC) |
		Control(cfg.Dir)<<dirShift&DIR |
		bit(cfg.CompleteIRQ, TCIE) |
		bit(cfg.Enable, EN)
}

// Config decodes a SxCR value.
func (c Control) Config() StreamConfig {
	return StreamConfig{
		Channel:     Channel(c & CHSEL >> chselShift),
		Priority:    Priority(c & PL >> plShift),
		MemSize:     Width(c & MSIZE >> msizeShift),
		PeriphSize:  Width(c & PSIZE >> psizeShift),
		MemInc:      c&MINC != 0,
		PeriphInc:   c&PINC != 0,
		Circular:    c&CIRC != 0,
		Dir:         Direction(c & DIR >> dirShift),
		CompleteIRQ: c&TCIE != 0,
		Enable:      c&EN != 0,
	}
}

// Configure programs stream n. The stream must be disabled.
func (c *Controller) Configure(n int, cfg StreamConfig) {
	debug.Assert(!cfg.Enable, "dma: configuring enabled stream")
	debug.Assert(!c.Enabled(n), "dma: reconfiguring armed stream")

	c.S[n].CR.Store(cfg.Control())
	c.ClearFlags(n, AllFlags)
}

// Enabled reports whether stream n has a transfer in flight.
func (c *Controller) Enabled(n int) bool {
	return c.S[n].CR.LoadBits(EN) != 0
}

// Remaining returns the number of items stream n has yet to transfer.
func (c *Controller) Remaining(n int) int {
	return int(c.S[n].NDTR.Load() & MaxTransfer)
}

// arm starts a transfer of count items between periph and mem on stream n.
func (c *Controller) arm(n int, periph, mem cpu.Addr, count int) {
	debug.Assert(count <= MaxTransfer, "dma: transfer count overflow")

	s := &c.S[n]
	c.ClearFlags(n, AllFlags)
	s.NDTR.Store(uint32(count))
	s.PAR.Store(uint32(periph))
	s.M0AR.Store(uint32(mem))
	s.CR.SetBits(EN)
}
