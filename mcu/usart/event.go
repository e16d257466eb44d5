package usart

// Event is a set of interrupt sources of the USART.
type Event CR1

const (
	RxReady          = Event(RXNEIE) // a received byte can be read
	TransferComplete = Event(TCIE)   // the last byte left the shift register
	TxReady          = Event(TXEIE)  // the data register can take the next byte

	allEvents = RxReady | TransferComplete | TxReady
)

// Listen enables the interrupts of e. Other sources are left alone.
func (d *Device) Listen(e Event) {
	d.regs.CR1.SetBits(CR1(e & allEvents))
}

// Unlisten disables the interrupts of e. Other sources are left alone.
func (d *Device) Unlisten(e Event) {
	d.regs.CR1.ClearBits(CR1(e & allEvents))
}

// Listening returns the subset of e that is enabled.
func (d *Device) Listening(e Event) Event {
	return Event(d.regs.CR1.LoadBits(CR1(e & allEvents)))
}
