package emu

import (
	"github.com/clktmr/usart/mcu/dma"
	"github.com/clktmr/usart/mcu/usart"
)

// Step advances the USART's DMA streams. The receive stream takes as many
// received bytes as it still expects, the transmit stream sends its whole
// buffer. A stream that ran out of work is disabled and flags completion.
// Reports whether any stream moved data.
func (m *Machine) Step() bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if !m.enabled() {
		return false
	}
	cr3 := m.USART.CR3.Load()
	progress := false
	if cr3&usart.DMAR != 0 && m.DMA.Enabled(m.rx) {
		progress = m.stepRx() || progress
	}
	if cr3&usart.DMAT != 0 && m.DMA.Enabled(m.tx) {
		progress = m.stepTx() || progress
	}
	return progress
}

// region returns the memory of the transfer armed on stream n and the offset
// of the next item.
func (m *Machine) region(n int) (p []byte, off int, ok bool) {
	s := &m.DMA.S[n]
	remaining := m.DMA.Remaining(n)
	if m.armed[n] == 0 {
		m.armed[n] = remaining
	}
	p = m.memory(s.M0AR.Load(), m.armed[n])
	if p == nil {
		m.finish(n, dma.TEIF)
		return nil, 0, false
	}
	return p, m.armed[n] - remaining, true
}

func (m *Machine) stepRx() bool {
	p, off, ok := m.region(m.rx)
	if !ok {
		return true
	}
	start := off
	for ; off < len(p) && len(m.fifo) > 0; off++ {
		p[off] = m.pop()
	}
	m.DMA.S[m.rx].NDTR.Store(uint32(len(p) - off))
	if off == len(p) {
		m.finish(m.rx, dma.TCIF)
	}
	return off > start
}

func (m *Machine) stepTx() bool {
	p, off, ok := m.region(m.tx)
	if !ok {
		return true
	}
	m.transmit(p[off:]...)
	m.DMA.S[m.tx].NDTR.Store(0)
	m.finish(m.tx, dma.TCIF)
	return true
}

func (m *Machine) finish(n int, f dma.Flags) {
	m.armed[n] = 0
	m.DMA.S[n].CR.ClearBits(dma.EN)
	m.DMA.ISR[n/4].SetBits(uint32(f) << shift(n))
}

func shift(n int) uint {
	return [4]uint{0, 6, 16, 22}[n%4]
}
