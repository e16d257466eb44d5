package rcc

import "time"

// Clocks records the frequencies in Hz the clock tree was configured for.
type Clocks struct {
	SYSCLK uint32
	HCLK   uint32 // AHB, core and DMA
	PCLK1  uint32 // APB1 peripherals
	PCLK2  uint32 // APB2 peripherals
}

// Ticks is a duration measured in HCLK cycles.
type Ticks uint32

// Duration converts d to HCLK ticks, rounding down.
func (c Clocks) Duration(d time.Duration) Ticks {
	if d <= 0 {
		return 0
	}
	return Ticks(uint64(d) * uint64(c.HCLK) / uint64(time.Second))
}

// Baud returns the length of a single bit at bps bits per second.
func (c Clocks) Baud(bps uint32) Ticks {
	if bps == 0 {
		return 0
	}
	return Ticks(c.HCLK / bps)
}

// Raw returns the tick count as a register value.
func (t Ticks) Raw() uint32 { return uint32(t) }

// Bus is a peripheral bus. Its type fixes at build time which clock a
// peripheral is driven by.
type Bus interface {
	Rate(c Clocks) uint32
}

// APB1Bus clocks the low speed peripherals.
type APB1Bus struct{}

func (APB1Bus) Rate(c Clocks) uint32 { return c.PCLK1 }

// APB2Bus clocks the high speed peripherals.
type APB2Bus struct{}

func (APB2Bus) Rate(c Clocks) uint32 { return c.PCLK2 }

// Prescale returns the integer ratio of HCLK to bus B's clock, or zero if the
// tree is not configured.
func Prescale[B Bus](c Clocks) uint32 {
	var b B
	rate := b.Rate(c)
	if rate == 0 {
		return 0
	}
	return c.HCLK / rate
}
