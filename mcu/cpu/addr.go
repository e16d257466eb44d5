// Package cpu describes the Cortex-M4 memory map as seen by bus masters other
// than the core, most importantly the DMA controllers.
package cpu

import "unsafe"

// The core's clock speed after the startup code configured the PLL.
const ClockSpeed = 168e6

// Memory regions
const (
	CCMRAM     Addr = 0x1000_0000 // core coupled, not reachable by DMA
	CCMRAMSize      = 64 << 10
	SRAM       Addr = 0x2000_0000
	Periph     Addr = 0x4000_0000
)

// Addr represents a 32-bit bus address.
type Addr uint32

// AddrOf returns the bus address of the first element of s.
func AddrOf(s []byte) Addr {
	return Addr(uintptr(unsafe.Pointer(unsafe.SliceData(s))))
}

// DMAReachable reports whether the n bytes starting at addr can be accessed by
// the DMA controllers.
func DMAReachable(addr Addr, n int) bool {
	end := uint64(addr) + uint64(n)
	return end <= uint64(CCMRAM) || uint64(addr) >= uint64(CCMRAM)+CCMRAMSize
}
