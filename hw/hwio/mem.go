package hwio

import (
	"dspi/emu/log"
)

type MemFlags int

const (
	MemFlagReadWrite MemFlags = 0
	MemFlag8ReadOnly MemFlags = (1 << iota) // read-only accesses
	MemFlagNoROLog                          // skip logging attempts to write when configured to readonly
)

// Mem is a linear memory area addressed with 32-bit addresses.
//
// Data length must be a power of two: addresses are wrapped with
// len(Data)-1. VSize, if non-zero, is the visible size: wrapped offsets at or
// beyond it read zero and ignore writes.
type Mem struct {
	Name  string   // name of the memory area (for debugging)
	Data  []byte   // actual memory buffer
	VSize int      // visible size of the memory (can be smaller than physical size)
	Flags MemFlags // flags determining how the memory can be accessed
}

// NewMem allocates a zeroed memory area of size bytes (rounded up to the
// next power of two) with a visible size of size.
func NewMem(name string, size int) *Mem {
	phys := 1
	for phys < size {
		phys <<= 1
	}
	return &Mem{
		Name:  name,
		Data:  make([]byte, phys),
		VSize: size,
	}
}

func (m *Mem) mask() uint32 {
	if len(m.Data)&(len(m.Data)-1) != 0 {
		panic("memory buffer size is not pow2")
	}
	return uint32(len(m.Data) - 1)
}

func (m *Mem) vsize() int {
	if m.VSize == 0 {
		return len(m.Data)
	}
	return m.VSize
}

// Size returns the visible size.
func (m *Mem) Size() int { return m.vsize() }

func (m *Mem) Read8(addr uint32) uint8 {
	off := addr & m.mask()
	if int(off) >= m.vsize() {
		return 0
	}
	return m.Data[off]
}

func (m *Mem) Write8(addr uint32, val uint8) {
	off := addr & m.mask()
	if int(off) >= m.vsize() {
		return
	}

	switch m.Flags {
	case MemFlagReadWrite:
		m.Data[off] = val
	case MemFlag8ReadOnly:
		log.ModHwIo.ErrorZ("Write8 to readonly memory").
			String("name", m.Name).
			Hex8("val", val).
			Hex32("addr", addr).
			End()
	case MemFlagNoROLog:
		return
	}
}

// Pointer returns the memory slice starting at addr and running to the end
// of the visible area.
func (m *Mem) Pointer(addr uint32) []uint8 {
	off := int(addr & m.mask())
	end := m.vsize()
	if off >= end {
		return nil
	}
	return m.Data[off:end:end]
}
