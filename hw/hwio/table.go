package hwio

import (
	"fmt"

	"dspi/emu/log"
)

type BankIO16 interface {
	// Read16 reads a half-word from the given address. If peek is true, the
	// read shouldn't have any side effects (debugging/tracing).
	Read16(addr uint32, peek bool) uint16
	Write16(addr uint32, val uint16)
}

type BankIO32 interface {
	Read32(addr uint32, peek bool) uint32
	Write32(addr uint32, val uint32)
}

// Unmapped handles accesses that no mapped register claims.
type Unmapped interface {
	BankIO16
	BankIO32
}

// Table dispatches 16-bit and 32-bit accesses on the low 16 bits of the bus
// address. The two widths have independent maps: a register is only
// reachable with the width(s) it was mapped with.
type Table struct {
	Name     string
	Unmapped Unmapped

	table16 map[uint16]BankIO16
	table32 map[uint16]BankIO32
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	t.Reset()
	return t
}

func (t *Table) Reset() {
	t.table16 = make(map[uint16]BankIO16)
	t.table32 = make(map[uint16]BankIO32)
}

// Map a register bank (that is, a structure containing multiple Reg* fields).
// For this function to work, registers must have a struct tag "hwio",
// containing the following fields:
//
//	offset=0x12     Byte-offset within the register bank at which this
//	                register is mapped. There is no default value: if this
//	                option is missing, the register is assumed not to be
//	                part of the bank, and is ignored by this call.
//
//	bank=NN         Ordinal bank number (if not specified, default to zero).
//	                This option allows for a structure to expose multiple
//	                banks, as regs can be grouped by bank by specified the
//	                bank number.
func (t *Table) MapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Reg16:
			t.MapReg16(addr+reg.offset, r)
		case *Reg32:
			t.MapReg32(addr+reg.offset, r)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) UnmapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		off := addr + reg.offset
		switch r := reg.regPtr.(type) {
		case *Reg16:
			delete(t.table16, off)
		case *Reg32:
			delete(t.table16, off)
			delete(t.table16, off+2)
			delete(t.table32, off)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) map16(addr uint16, io BankIO16) {
	if _, ok := t.table16[addr]; ok {
		panic(fmt.Errorf("%s: 16-bit address %04x already mapped", t.Name, addr))
	}
	t.table16[addr] = io
}

func (t *Table) map32(addr uint16, io BankIO32) {
	if _, ok := t.table32[addr]; ok {
		panic(fmt.Errorf("%s: 32-bit address %04x already mapped", t.Name, addr))
	}
	t.table32[addr] = io
}

func (t *Table) MapReg16(addr uint16, reg *Reg16) {
	log.ModHwIo.DebugZ("mapping reg16").
		Hex16("addr", addr).
		String("name", reg.Name).
		String("bus", t.Name).
		End()

	t.map16(addr, reg)
}

// MapReg32 maps the 16-bit halves of reg at addr (high) and addr+2 (low),
// unless the register is NoSplitFlag. A NoSplitFlag register is mapped for
// 32-bit accesses at addr; a WideFlag register only for 32-bit writes.
func (t *Table) MapReg32(addr uint16, reg *Reg32) {
	log.ModHwIo.DebugZ("mapping reg32").
		Hex16("addr", addr).
		String("name", reg.Name).
		String("bus", t.Name).
		Bool("wide", reg.Flags&WideFlag != 0).
		End()

	if reg.Flags&NoSplitFlag == 0 {
		t.map16(addr, reg32Half{reg: reg, hi: true})
		t.map16(addr+2, reg32Half{reg: reg, hi: false})
	}
	switch {
	case reg.Flags&NoSplitFlag != 0:
		t.map32(addr, reg)
	case reg.Flags&WideFlag != 0:
		t.map32(addr, reg32Wide{t: t, reg: reg})
	}
}

// reg32Wide is the 32-bit mapping of a WideFlag register: writes load the
// whole register, reads are unmapped.
type reg32Wide struct {
	t   *Table
	reg *Reg32
}

func (w reg32Wide) Read32(addr uint32, peek bool) uint32 { return w.t.unmapped().Read32(addr, peek) }
func (w reg32Wide) Write32(addr uint32, val uint32)      { w.reg.Write32(addr, val) }

func (t *Table) Read16(addr uint32, peek bool) uint16 {
	io := t.table16[uint16(addr)]
	if io == nil {
		return t.unmapped().Read16(addr, peek)
	}
	return io.Read16(addr, peek)
}

// Peek16 is a convenience function.
func (t *Table) Peek16(addr uint32) uint16 {
	return t.Read16(addr, true)
}

func (t *Table) Write16(addr uint32, val uint16) {
	io := t.table16[uint16(addr)]
	if io == nil {
		t.unmapped().Write16(addr, val)
		return
	}
	io.Write16(addr, val)
}

func (t *Table) Read32(addr uint32, peek bool) uint32 {
	io := t.table32[uint16(addr)]
	if io == nil {
		return t.unmapped().Read32(addr, peek)
	}
	return io.Read32(addr, peek)
}

func (t *Table) Write32(addr uint32, val uint32) {
	io := t.table32[uint16(addr)]
	if io == nil {
		t.unmapped().Write32(addr, val)
		return
	}
	io.Write32(addr, val)
}

func (t *Table) unmapped() Unmapped {
	if t.Unmapped != nil {
		return t.Unmapped
	}
	return logUnmapped{t.Name}
}

// logUnmapped is the default unmapped handler: it logs and reads zero.
type logUnmapped struct{ bus string }

func (u logUnmapped) Read16(addr uint32, peek bool) uint16 {
	if !peek {
		log.ModHwIo.ErrorZ("unmapped Read16").String("bus", u.bus).Hex32("addr", addr).End()
	}
	return 0
}

func (u logUnmapped) Write16(addr uint32, val uint16) {
	log.ModHwIo.ErrorZ("unmapped Write16").String("bus", u.bus).Hex32("addr", addr).Hex16("val", val).End()
}

func (u logUnmapped) Read32(addr uint32, peek bool) uint32 {
	if !peek {
		log.ModHwIo.ErrorZ("unmapped Read32").String("bus", u.bus).Hex32("addr", addr).End()
	}
	return 0
}

func (u logUnmapped) Write32(addr uint32, val uint32) {
	log.ModHwIo.ErrorZ("unmapped Write32").String("bus", u.bus).Hex32("addr", addr).Hex32("val", val).End()
}
