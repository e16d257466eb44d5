// Package usart drives the STM32F4 USART peripherals in asynchronous mode.
//
// A Device is obtained from one of the fixed variants (USART1, USART2,
// USART6). Bytes are moved either one at a time with the non-blocking Read
// and Write, or in blocks with ReadExact and WriteAll, which hand a dma.Buffer
// to the DMA engine and return immediately.
//
// Nothing in this package waits. Waiting for readiness or completion is up to
// the caller, either by polling or from an interrupt handler.
package usart

import (
	"errors"

	"github.com/clktmr/usart/mcu/dma"
)

var (
	ErrFraming = errors.New("usart: framing error")
	ErrNoise   = errors.New("usart: noise detected")
	ErrOverrun = errors.New("usart: overrun")

	ErrWouldBlock      = errors.New("usart: not ready")
	ErrBaudRate        = errors.New("usart: baud rate out of range")
	ErrWrongController = errors.New("usart: dma controller doesn't serve this usart")
	ErrNoDMA           = errors.New("usart: initialized without dma")

	ErrStreamInUse = dma.ErrStreamInUse
	ErrOversized   = dma.ErrOversized
	ErrWrongStream = dma.ErrWrongStream
)

// IsLineError reports whether err is one of the receive errors detected by the
// hardware. More of them may be added, so don't switch over them exhaustively.
func IsLineError(err error) bool {
	return errors.Is(err, ErrOverrun) || errors.Is(err, ErrNoise) || errors.Is(err, ErrFraming)
}

// lineError returns the error flagged in sr, in order of precedence.
func lineError(sr Status) error {
	switch {
	case sr&ORE != 0:
		return ErrOverrun
	case sr&NF != 0:
		return ErrNoise
	case sr&FE != 0:
		return ErrFraming
	}
	return nil
}

// Device is an initialized USART. It grants access to the hardware but
// doesn't own it, see Cell for sharing a Device between contexts.
type Device struct {
	regs *Registers
	cfg  *capability
	dmac *dma.Controller // nil if initialized without DMA
}

func (d *Device) Registers() *Registers { return d.regs }

// DMA returns the controller passed to Init, or nil.
func (d *Device) DMA() *dma.Controller { return d.dmac }
