package frame

import (
	"github.com/sigurn/crc8"

	"github.com/clktmr/usart/mcu/usart"
)

// Decoder reassembles frames from single bytes.
type Decoder struct {
	buf []byte
	n   int
	esc bool
	err error
}

// NewDecoder returns a decoder for frames of up to len(buf)-1 payload bytes.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Feed consumes c. If c ends a frame, the frame's payload or the reason it was
// dropped is returned. The payload is only valid until the next call to Feed.
// Empty frames are skipped silently.
func (d *Decoder) Feed(c byte) ([]byte, error) {
	if c == End {
		return d.end()
	}
	if d.esc {
		d.esc = false
		switch c {
		case EscEnd:
			c = End
		case EscEsc:
			c = Esc
		default:
			d.fail(ErrEscape)
			return nil, nil
		}
	} else if c == Esc {
		d.esc = true
		return nil, nil
	}
	if d.n == len(d.buf) {
		d.fail(ErrTooLong)
		return nil, nil
	}
	d.buf[d.n] = c
	d.n++
	return nil, nil
}

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) end() ([]byte, error) {
	n, err := d.n, d.err
	d.Reset()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	payload := d.buf[:n-1]
	csum := crc8.Update(crc8.Init(maxim), payload, maxim)
	if crc8.Complete(csum, maxim) != d.buf[n-1] {
		return nil, ErrChecksum
	}
	return payload, nil
}

// Reset drops the partially received frame.
func (d *Decoder) Reset() {
	d.n, d.esc, d.err = 0, false, nil
}

// Receive feeds all bytes already received by dev to the decoder until a frame
// ends. It returns usart.ErrWouldBlock when no more bytes are available. Line
// errors are cleared and drop the current frame.
func (d *Decoder) Receive(dev *usart.Device) ([]byte, error) {
	for {
		c, err := dev.Read()
		switch {
		case err == usart.ErrWouldBlock:
			return nil, err
		case err != nil:
			dev.Discard()
			d.fail(err)
			continue
		}
		if p, err := d.Feed(c); p != nil || err != nil {
			return p, err
		}
	}
}
