package usart

import (
	"runtime"
	"sync"
)

// Port implements io.Reader and io.Writer on top of the polled byte I/O of a
// Device. It yields the processor while the hardware isn't ready and doesn't
// buffer anything.
type Port struct {
	d *Device
}

func NewPort(d *Device) *Port { return &Port{d} }

// Read waits for at least one byte, then returns what was received without
// waiting further. Receive errors are returned together with the bytes read
// before them and are cleared.
func (p *Port) Read(b []byte) (n int, err error) {
	for n < len(b) {
		c, err := p.d.Read()
		switch err {
		case nil:
			b[n] = c
			n++
		case ErrWouldBlock:
			if n > 0 {
				return n, nil
			}
			runtime.Gosched()
		default:
			p.d.Discard()
			return n, err
		}
	}
	return n, nil
}

// Write sends all of b. A pending receive error aborts the write and is
// cleared.
func (p *Port) Write(b []byte) (n int, err error) {
	for n < len(b) {
		switch err := p.d.Write(b[n]); err {
		case nil:
			n++
		case ErrWouldBlock:
			runtime.Gosched()
		default:
			p.d.Discard()
			return n, err
		}
	}
	return n, nil
}

// Cell hands out exclusive access to a Device. Interrupt handlers must not
// use it, they only touch DMA flags and buffer states which are safe to share.
type Cell struct {
	mtx sync.Mutex
	d   *Device
}

func NewCell(d *Device) *Cell { return &Cell{d: d} }

// With calls fn while holding the device.
func (c *Cell) With(fn func(d *Device) error) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return fn(c.d)
}
