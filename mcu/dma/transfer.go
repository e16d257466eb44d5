package dma

import "github.com/clktmr/usart/mcu/cpu"

// Flags left behind by a transfer that nobody polled yet.
const doneFlags = TCIF | TEIF | DMEIF

// Start locks buf and arms its stream to move buf's Len() bytes to or from the
// peripheral register at periph. It returns immediately, the transfer proceeds
// in hardware. Use Poll, from a loop or the stream's completion interrupt, to
// observe the end of the transfer, then Release the buffer.
//
// The stream is in use until the previous transfer on it was polled, even if
// the hardware already finished it. There is no way to cancel a started
// transfer.
func Start[R Role](buf *Buffer[R], periph cpu.Addr) error {
	c, n := buf.ctl, buf.stream
	if c.Enabled(n) || c.Flags(n)&doneFlags != 0 {
		return ErrStreamInUse
	}
	if err := buf.lock(); err != nil {
		return err
	}
	// The length is stable only once the buffer is locked.
	if buf.n > MaxTransfer {
		buf.unlock()
		return ErrOversized
	}

	// The stream won't start without items to move.
	if buf.n == 0 {
		buf.complete()
		return nil
	}

	c.arm(n, periph, buf.Addr(), buf.n)
	return nil
}

// Poll reports whether the transfer started on buf has finished. Once the
// hardware disabled the stream, Poll clears the stream's flags and moves buf
// to CompletePendingRelease. A transfer error is reported with ErrTransfer,
// the buffer is considered complete nevertheless.
//
// Poll is safe to call from an interrupt handler.
func Poll[R Role](buf *Buffer[R]) (done bool, err error) {
	switch buf.State() {
	case CompletePendingRelease:
		return true, nil
	case ArmedExclusive, ArmedShared:
	default:
		return false, ErrNotArmed
	}

	c, n := buf.ctl, buf.stream
	if c.Enabled(n) {
		return false, nil
	}

	flags := c.Flags(n)
	if !buf.complete() {
		// Completed concurrently, e.g. by the interrupt handler.
		return buf.State() == CompletePendingRelease, nil
	}
	c.ClearFlags(n, flags)
	if flags&(TEIF|DMEIF) != 0 {
		return true, ErrTransfer
	}
	return true, nil
}
