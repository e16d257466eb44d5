package mmio

import (
	"maps"
	"sync"
	"sync/atomic"
)

// Interceptor emulates the side effects of accessing a register that lives in
// ordinary memory.
type Interceptor interface {
	// Load is called with the value currently held in memory and returns
	// the value the reader observes.
	Load(addr uintptr, v uint32) uint32

	// Store is called with the value currently held in memory and the
	// value being written. It returns the value that will be held in
	// memory afterwards.
	Store(addr uintptr, old, v uint32) uint32
}

var (
	traps   atomic.Pointer[map[uintptr]Interceptor]
	trapMtx sync.Mutex
)

// Intercept routes all accesses to the register at addr through i.  Only use
// this with register blocks allocated in Go memory, e.g. by an emulator.
func Intercept(addr uintptr, i Interceptor) {
	trapMtx.Lock()
	defer trapMtx.Unlock()

	m := make(map[uintptr]Interceptor)
	if t := traps.Load(); t != nil {
		maps.Copy(m, *t)
	}
	m[addr] = i
	traps.Store(&m)
}

// Release removes the interceptor registered for addr, if any.
func Release(addr uintptr) {
	trapMtx.Lock()
	defer trapMtx.Unlock()

	t := traps.Load()
	if t == nil {
		return
	}
	if _, ok := (*t)[addr]; !ok {
		return
	}
	if len(*t) == 1 {
		traps.Store(nil)
		return
	}
	m := maps.Clone(*t)
	delete(m, addr)
	traps.Store(&m)
}
