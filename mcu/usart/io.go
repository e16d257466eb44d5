package usart

// Read returns the received byte. A pending receive error is reported instead,
// in the order overrun, noise, framing, and stays pending until Discard is
// called. If no byte was received yet Read returns ErrWouldBlock.
func (d *Device) Read() (byte, error) {
	sr := d.regs.SR.Load()
	if err := lineError(sr); err != nil {
		return 0, err
	}
	if sr&RXNE == 0 {
		return 0, ErrWouldBlock
	}
	return byte(d.regs.DR.Load()), nil
}

// Write puts b into the transmit data register. It fails with the same
// receive errors as Read, or ErrWouldBlock if the previous byte wasn't moved
// to the shift register yet.
func (d *Device) Write(b byte) error {
	sr := d.regs.SR.Load()
	if err := lineError(sr); err != nil {
		return err
	}
	if sr&TXE == 0 {
		return ErrWouldBlock
	}
	d.regs.DR.Store(uint32(b))
	return nil
}

// Discard drops the byte in the receive data register and clears pending
// receive errors. It returns the status flags seen before clearing.
func (d *Device) Discard() Status {
	sr := d.regs.SR.Load()
	d.regs.DR.Load()
	return sr
}

// Flush returns ErrWouldBlock until all written bytes were sent.
func (d *Device) Flush() error {
	if d.regs.SR.LoadBits(TC) == 0 {
		return ErrWouldBlock
	}
	return nil
}
