// Package mmio provides 32-bit memory mapped register types.
//
// Register blocks are declared as structs of these types and overlaid on the
// peripheral's base address:
//
//	var regs = (*registers)(unsafe.Pointer(baseAddr))
//
// Every access is a single volatile load or store. A block may also be
// allocated in ordinary memory, in which case an Interceptor registered for a
// register's address can emulate the hardware side effects of accessing it.
package mmio

import (
	"sync/atomic"
	"unsafe"
)

// T32 is the set of types a R32 register can hold.
type T32 interface{ ~uint32 }

// U32 is a plain 32-bit register.
type U32 struct {
	r uint32
}

func (r *U32) Load() uint32 {
	return load(&r.r)
}

func (r *U32) Store(v uint32) {
	store(&r.r, v)
}

func (r *U32) LoadBits(mask uint32) uint32 {
	return r.Load() & mask
}

// StoreBits replaces the bits selected by mask with the corresponding bits of
// v. It's a read-modify-write and therefore not atomic with respect to the
// hardware.
func (r *U32) StoreBits(mask, v uint32) {
	r.Store(r.Load()&^mask | v&mask)
}

func (r *U32) SetBits(mask uint32) {
	r.Store(r.Load() | mask)
}

func (r *U32) ClearBits(mask uint32) {
	r.Store(r.Load() &^ mask)
}

func (r *U32) Addr() uintptr {
	return uintptr(unsafe.Pointer(&r.r))
}

// R32 is a 32-bit register holding bit-fields of type T.
type R32[T T32] struct {
	r uint32
}

func (r *R32[T]) Load() T {
	return T(load(&r.r))
}

func (r *R32[T]) Store(v T) {
	store(&r.r, uint32(v))
}

func (r *R32[T]) LoadBits(mask T) T {
	return r.Load() & mask
}

func (r *R32[T]) StoreBits(mask, v T) {
	r.Store(r.Load()&^mask | v&mask)
}

func (r *R32[T]) SetBits(mask T) {
	r.Store(r.Load() | mask)
}

func (r *R32[T]) ClearBits(mask T) {
	r.Store(r.Load() &^ mask)
}

func (r *R32[T]) Addr() uintptr {
	return uintptr(unsafe.Pointer(&r.r))
}

func load(p *uint32) uint32 {
	v := atomic.LoadUint32(p)
	if t := traps.Load(); t != nil {
		if i, ok := (*t)[uintptr(unsafe.Pointer(p))]; ok {
			v = i.Load(uintptr(unsafe.Pointer(p)), v)
		}
	}
	return v
}

func store(p *uint32, v uint32) {
	if t := traps.Load(); t != nil {
		if i, ok := (*t)[uintptr(unsafe.Pointer(p))]; ok {
			v = i.Store(uintptr(unsafe.Pointer(p)), atomic.LoadUint32(p), v)
		}
	}
	atomic.StoreUint32(p, v)
}
