package hwio

import (
	"fmt"

	"dspi/emu/log"
)

type RWFlags uint8

const (
	ReadWriteFlag RWFlags = 0
	ReadOnlyFlag  RWFlags = (1 << iota)
	WriteOnlyFlag

	// Reg32 only: the register also accepts a single 32-bit write at its
	// base offset. 32-bit reads stay unmapped.
	WideFlag
	// Reg32 only: the register has no 16-bit halves.
	NoSplitFlag
)

// Half-word masks passed to Reg32 write callbacks.
const (
	MaskHi   uint32 = 0xFFFF0000
	MaskLo   uint32 = 0x0000FFFF
	MaskFull uint32 = 0xFFFFFFFF
)

type Reg16 struct {
	Name   string
	Value  uint16
	RoMask uint16

	Flags   RWFlags
	ReadCb  func(val uint16, peek bool) uint16
	WriteCb func(old uint16, val uint16)
}

func (reg Reg16) String() string {
	s := fmt.Sprintf("%s{%04x", reg.Name, reg.Value)
	if reg.ReadCb != nil {
		s += ",r!"
	}
	if reg.WriteCb != nil {
		s += ",w!"
	}
	return s + "}"
}

func (reg *Reg16) write(val uint16) {
	old := reg.Value
	reg.Value = (reg.Value & reg.RoMask) | (val &^ reg.RoMask)
	if reg.WriteCb != nil {
		reg.WriteCb(old, reg.Value)
	}
}

func (reg *Reg16) Write16(addr uint32, val uint16) {
	if reg.Flags&ReadOnlyFlag != 0 {
		log.ModHwIo.ErrorZ("invalid Write16 to readonly reg").
			String("name", reg.Name).
			Hex32("addr", addr).
			Hex16("val", val).
			End()
		return
	}
	reg.write(val)
}

func (reg *Reg16) Read16(addr uint32, peek bool) uint16 {
	if reg.Flags&WriteOnlyFlag != 0 {
		if !peek {
			log.ModHwIo.ErrorZ("invalid Read16 from writeonly reg").
				String("name", reg.Name).
				Hex32("addr", addr).
				End()
		}
		return 0
	}
	if reg.ReadCb != nil {
		return reg.ReadCb(reg.Value, peek)
	}
	return reg.Value
}

// Reg32 is a 32-bit register. Unless NoSplitFlag is set, it's mapped as two
// 16-bit half registers (high half first) that each load their own 16 bits
// of Value.
type Reg32 struct {
	Name   string
	Value  uint32
	RoMask uint32

	Flags   RWFlags
	ReadCb  func(val uint32, peek bool) uint32
	WriteCb func(old, val, mask uint32) // mask holds the bits actually written
}

func (reg Reg32) String() string {
	s := fmt.Sprintf("%s{%08x", reg.Name, reg.Value)
	if reg.ReadCb != nil {
		s += ",r!"
	}
	if reg.WriteCb != nil {
		s += ",w!"
	}
	return s + "}"
}

func (reg *Reg32) write(val, mask uint32) {
	old := reg.Value
	wmask := mask &^ reg.RoMask
	reg.Value = (reg.Value &^ wmask) | (val & wmask)
	if reg.WriteCb != nil {
		reg.WriteCb(old, reg.Value, mask)
	}
}

func (reg *Reg32) Write32(addr uint32, val uint32) {
	if reg.Flags&ReadOnlyFlag != 0 {
		log.ModHwIo.ErrorZ("invalid Write32 to readonly reg").
			String("name", reg.Name).
			Hex32("addr", addr).
			Hex32("val", val).
			End()
		return
	}
	reg.write(val, MaskFull)
}

func (reg *Reg32) Read32(addr uint32, peek bool) uint32 {
	if reg.Flags&WriteOnlyFlag != 0 {
		if !peek {
			log.ModHwIo.ErrorZ("invalid Read32 from writeonly reg").
				String("name", reg.Name).
				Hex32("addr", addr).
				End()
		}
		return 0
	}
	if reg.ReadCb != nil {
		return reg.ReadCb(reg.Value, peek)
	}
	return reg.Value
}

// WriteHalf writes only the high or the low 16 bits of the register.
func (reg *Reg32) WriteHalf(addr uint32, hi bool, val uint16) {
	if reg.Flags&ReadOnlyFlag != 0 {
		log.ModHwIo.ErrorZ("invalid Write16 to readonly reg").
			String("name", reg.Name).
			Hex32("addr", addr).
			Hex16("val", val).
			End()
		return
	}
	if hi {
		reg.write(uint32(val)<<16, MaskHi)
	} else {
		reg.write(uint32(val), MaskLo)
	}
}

// reg32Half adapts one half of a Reg32 to the BankIO16 interface.
type reg32Half struct {
	reg *Reg32
	hi  bool
}

func (h reg32Half) Read16(addr uint32, peek bool) uint16 {
	v := h.reg.Read32(addr, peek)
	if h.hi {
		return Hi16(v)
	}
	return Lo16(v)
}

func (h reg32Half) Write16(addr uint32, val uint16) {
	h.reg.WriteHalf(addr, h.hi, val)
}
