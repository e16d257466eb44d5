package dma

import (
	"errors"
	"sync/atomic"

	"github.com/clktmr/usart/debug"
	"github.com/clktmr/usart/mcu/cpu"
)

var (
	ErrLocked      = errors.New("dma: buffer locked")
	ErrNotComplete = errors.New("dma: transfer not observed complete")
	ErrNotArmed    = errors.New("dma: buffer not armed")
	ErrOversized   = errors.New("dma: buffer exceeds transfer count")
	ErrStreamInUse = errors.New("dma: stream in use")
	ErrWrongStream = errors.New("dma: buffer bound to another stream")
	ErrTransfer    = errors.New("dma: transfer error")
)

// State of a Buffer.
type State uint8

const (
	Idle                   State = iota // owned by the CPU, no accessor
	Filling                             // CPU has exclusive write access
	ArmedExclusive                      // DMA writes, no other accessor allowed
	ArmedShared                         // DMA reads, CPU may read too
	CompletePendingRelease              // DMA done, waiting for Release
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Filling:
		return "filling"
	case ArmedExclusive:
		return "armed exclusive"
	case ArmedShared:
		return "armed shared"
	case CompletePendingRelease:
		return "complete"
	}
	return "invalid"
}

// Role fixes the lock mode of a buffer at build time.
type Role interface {
	armed() State
}

// Rx buffers are receive targets. The DMA writes them, so they are locked
// exclusively while armed.
type Rx struct{}

// Tx buffers are transmit sources. The DMA only reads them, so they are
// locked shared while armed.
type Tx struct{}

func (Rx) armed() State { return ArmedExclusive }
func (Tx) armed() State { return ArmedShared }

// The state word holds the State in the low byte and the number of active
// readers above it.
const (
	stateMask  = 0xff
	readerUnit = 1 << 8
)

// Buffer is a fixed memory region bound to one DMA stream. Its storage is
// never reallocated, the buffer cycles between Idle and the armed states for
// every transfer.
type Buffer[R Role] struct {
	ctl    *Controller
	stream int
	data   []byte
	n      int
	state  atomic.Uint32
}

// NewBuffer binds storage to stream n of c. storage is usually a package-level
// array, the DMA must be able to reach it.
func NewBuffer[R Role](c *Controller, n int, storage []byte) *Buffer[R] {
	debug.Assert(n >= 0 && n < Streams, "dma: invalid stream")
	if debug.Enabled {
		debug.Assert(cpu.DMAReachable(cpu.AddrOf(storage), len(storage)), "dma: buffer not reachable")
	}
	return &Buffer[R]{ctl: c, stream: n, data: storage, n: len(storage)}
}

// Controller and Stream return the stream the buffer is bound to.
func (b *Buffer[R]) Controller() *Controller { return b.ctl }
func (b *Buffer[R]) Stream() int             { return b.stream }

// Len returns the number of bytes the next transfer moves.
func (b *Buffer[R]) Len() int { return b.n }

// Cap returns the size of the underlying storage.
func (b *Buffer[R]) Cap() int { return len(b.data) }

// Addr returns the bus address of the buffer.
func (b *Buffer[R]) Addr() cpu.Addr { return cpu.AddrOf(b.data) }

func (b *Buffer[R]) State() State {
	return State(b.state.Load() & stateMask)
}

// SetLen sets the length of the next transfer. The buffer must be Idle.
func (b *Buffer[R]) SetLen(n int) error {
	if n < 0 || n > len(b.data) {
		return ErrOversized
	}
	if !b.state.CompareAndSwap(uint32(Idle), uint32(Filling)) {
		return ErrLocked
	}
	b.n = n
	b.state.Store(uint32(Idle))
	return nil
}

// Fill calls fn with exclusive write access to the first Len() bytes. Fails
// with ErrLocked unless the buffer is Idle without readers.
func (b *Buffer[R]) Fill(fn func(p []byte)) error {
	if !b.state.CompareAndSwap(uint32(Idle), uint32(Filling)) {
		return ErrLocked
	}
	defer b.state.Store(uint32(Idle))
	fn(b.data[:b.n])
	return nil
}

// View calls fn with read access to the first Len() bytes. Multiple views may
// be active at once, and a view may overlap with a transmit transfer. Fails
// with ErrLocked while the buffer is being filled or written by the DMA.
func (b *Buffer[R]) View(fn func(p []byte)) error {
	for {
		old := b.state.Load()
		switch State(old & stateMask) {
		case Idle, ArmedShared, CompletePendingRelease:
		default:
			return ErrLocked
		}
		if b.state.CompareAndSwap(old, old+readerUnit) {
			break
		}
	}
	defer b.state.Add(^uint32(readerUnit - 1))
	fn(b.data[:b.n])
	return nil
}

// lock moves an Idle buffer to its armed state. Receive buffers must not have
// readers.
func (b *Buffer[R]) lock() error {
	var r R
	for {
		old := b.state.Load()
		if State(old&stateMask) != Idle {
			return ErrLocked
		}
		if r.armed() == ArmedExclusive && old != uint32(Idle) {
			return ErrLocked
		}
		if b.state.CompareAndSwap(old, old&^stateMask|uint32(r.armed())) {
			return nil
		}
	}
}

// unlock returns a buffer that was armed by lock but never handed to the
// hardware to Idle.
func (b *Buffer[R]) unlock() {
	var r R
	for {
		old := b.state.Load()
		if State(old&stateMask) != r.armed() {
			return
		}
		if b.state.CompareAndSwap(old, old&^stateMask|uint32(Idle)) {
			return
		}
	}
}

// complete records that the transfer was observed to have finished. It
// refuses while the bound stream is still enabled. Reports whether the buffer
// moved to CompletePendingRelease.
func (b *Buffer[R]) complete() bool {
	if b.ctl.Enabled(b.stream) {
		return false
	}
	var r R
	for {
		old := b.state.Load()
		if State(old&stateMask) != r.armed() {
			return false
		}
		if b.state.CompareAndSwap(old, old&^stateMask|uint32(CompletePendingRelease)) {
			return true
		}
	}
}

// Release returns a completed buffer to Idle, after which it can be filled
// and armed again.
func (b *Buffer[R]) Release() error {
	for {
		old := b.state.Load()
		if State(old&stateMask) != CompletePendingRelease {
			return ErrNotComplete
		}
		if b.state.CompareAndSwap(old, old&^stateMask|uint32(Idle)) {
			return nil
		}
	}
}
