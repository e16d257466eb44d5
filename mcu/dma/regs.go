// Package dma drives the two DMA controllers. Each controller has eight
// streams, every stream moving data between memory and one peripheral register
// without involvement of the CPU.
package dma

import (
	"unsafe"

	"github.com/clktmr/usart/mcu/cpu"
	"github.com/clktmr/usart/mcu/mmio"
)

const (
	dma1Addr uintptr = uintptr(cpu.Periph) + 0x0002_6000
	dma2Addr uintptr = uintptr(cpu.Periph) + 0x0002_6400
)

// Number of streams per controller.
const Streams = 8

// Largest number of items a single transfer can move.
const MaxTransfer = 0xffff

// Control is the stream configuration register SxCR.
type Control uint32

const (
	EN     Control = 1 << 0 // stream enable, cleared by hardware on completion
	DMEIE  Control = 1 << 1
	TEIE   Control = 1 << 2
	HTIE   Control = 1 << 3
	TCIE   Control = 1 << 4
	PFCTRL Control = 1 << 5
	DIR    Control = 3 << 6
	CIRC   Control = 1 << 8
	PINC   Control = 1 << 9
	MINC   Control = 1 << 10
	PSIZE  Control = 3 << 11
	MSIZE  Control = 3 << 13
	PINCOS Control = 1 << 15
	PL     Control = 3 << 16
	DBM    Control = 1 << 18
	CT     Control = 1 << 19
	PBURST Control = 3 << 21
	MBURST Control = 3 << 23
	CHSEL  Control = 7 << 25
)

const (
	dirShift   = 6
	psizeShift = 11
	msizeShift = 13
	plShift    = 16
	chselShift = 25
)

// Flags are the per-stream interrupt flags in LISR/HISR, shifted to bit 0.
type Flags uint32

const (
	FEIF  Flags = 1 << 0 // FIFO error
	DMEIF Flags = 1 << 2 // direct mode error
	TEIF  Flags = 1 << 3 // transfer error
	HTIF  Flags = 1 << 4 // half transfer
	TCIF  Flags = 1 << 5 // transfer complete

	AllFlags = FEIF | DMEIF | TEIF | HTIF | TCIF
)

// Bit offset of each stream's flags within LISR/HISR and LIFCR/HIFCR.
var flagShift = [4]uint{0, 6, 16, 22}

type StreamRegisters struct {
	CR   mmio.R32[Control]
	NDTR mmio.U32
	PAR  mmio.U32
	M0AR mmio.U32
	M1AR mmio.U32
	FCR  mmio.U32
}

// Controller is the register block of one DMA controller.
type Controller struct {
	ISR  [2]mmio.U32 // LISR, HISR
	IFCR [2]mmio.U32 // LIFCR, HIFCR, write 1 to clear
	S    [Streams]StreamRegisters
}

func DMA1() *Controller { return (*Controller)(unsafe.Pointer(dma1Addr)) }
func DMA2() *Controller { return (*Controller)(unsafe.Pointer(dma2Addr)) }

// Flags returns the interrupt flags of stream n.
func (c *Controller) Flags(n int) Flags {
	return Flags(c.ISR[n/4].Load()>>flagShift[n%4]) & AllFlags
}

// ClearFlags clears the interrupt flags f of stream n.
func (c *Controller) ClearFlags(n int, f Flags) {
	c.IFCR[n/4].Store(uint32(f&AllFlags) << flagShift[n%4])
}
