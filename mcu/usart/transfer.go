package usart

import (
	"github.com/clktmr/usart/debug"
	"github.com/clktmr/usart/mcu/cpu"
	"github.com/clktmr/usart/mcu/dma"
)

// NewRxBuffer binds storage to the receive stream of d. The device must have
// been initialized with DMA.
func (d *Device) NewRxBuffer(storage []byte) *dma.Buffer[dma.Rx] {
	debug.Assert(d.dmac != nil, "usart: no dma")
	return dma.NewBuffer[dma.Rx](d.dmac, d.cfg.rx.stream, storage)
}

// NewTxBuffer binds storage to the transmit stream of d. The device must have
// been initialized with DMA.
func (d *Device) NewTxBuffer(storage []byte) *dma.Buffer[dma.Tx] {
	debug.Assert(d.dmac != nil, "usart: no dma")
	return dma.NewBuffer[dma.Tx](d.dmac, d.cfg.tx.stream, storage)
}

// ReadExact starts receiving buf.Len() bytes into buf and returns
// immediately. buf stays locked until the transfer was observed complete with
// dma.Poll or the stream's interrupt and then released.
//
// ReadExact fails with ErrStreamInUse while a previous transfer on the stream
// is still running, with ErrOversized if buf doesn't fit a single transfer and
// with dma.ErrLocked if buf is being accessed.
func (d *Device) ReadExact(dmac *dma.Controller, buf *dma.Buffer[dma.Rx]) error {
	if err := d.checkStream(dmac, buf.Controller(), buf.Stream(), d.cfg.rx.stream); err != nil {
		return err
	}
	return dma.Start(buf, d.dataAddr())
}

// WriteAll starts sending buf.Len() bytes from buf and returns immediately.
// buf may still be viewed while it's sent, but not filled. Errors are as for
// ReadExact.
func (d *Device) WriteAll(dmac *dma.Controller, buf *dma.Buffer[dma.Tx]) error {
	if err := d.checkStream(dmac, buf.Controller(), buf.Stream(), d.cfg.tx.stream); err != nil {
		return err
	}
	return dma.Start(buf, d.dataAddr())
}

func (d *Device) checkStream(dmac, bufc *dma.Controller, stream, want int) error {
	if d.dmac == nil {
		return ErrNoDMA
	}
	if dmac != d.dmac || bufc != d.dmac || stream != want {
		return ErrWrongStream
	}
	return nil
}

func (d *Device) dataAddr() cpu.Addr {
	return cpu.Addr(d.regs.DR.Addr())
}
