package frame

import (
	"fmt"

	"github.com/clktmr/usart/mcu/dma"
	"github.com/clktmr/usart/mcu/usart"
)

// Sender transmits frames with DMA from a single buffer. Only one frame is in
// flight at a time.
type Sender struct {
	dev *usart.Device
	buf *dma.Buffer[dma.Tx]
}

// NewSender returns a sender using buf, which must be bound to the transmit
// stream of dev.
func NewSender(dev *usart.Device, buf *dma.Buffer[dma.Tx]) *Sender {
	return &Sender{dev: dev, buf: buf}
}

// Busy reports whether the previous frame is still being transmitted.
func (s *Sender) Busy() bool {
	done, err := dma.Poll(s.buf)
	return err == nil && !done
}

// Send encodes payload into the buffer and starts transmitting it. If the
// previous frame is still being sent it returns usart.ErrStreamInUse. A
// transfer error of the previous frame is returned instead of sending.
func (s *Sender) Send(payload []byte) error {
	done, err := dma.Poll(s.buf)
	switch {
	case err == dma.ErrNotArmed:
	case !done:
		return usart.ErrStreamInUse
	default:
		s.buf.Release()
		if err != nil {
			return fmt.Errorf("frame: previous frame: %w", err)
		}
	}

	if err := s.buf.SetLen(s.buf.Cap()); err != nil {
		return err
	}
	var n int
	var encErr error
	if err := s.buf.Fill(func(p []byte) {
		n, encErr = Encode(p, payload)
	}); err != nil {
		return err
	}
	if encErr != nil {
		return encErr
	}
	if err := s.buf.SetLen(n); err != nil {
		return err
	}
	return s.dev.WriteAll(s.dev.DMA(), s.buf)
}
