package hwio_test

import (
	"testing"

	"dspi/hw/hwio"
)

// Unmapped
type openbus struct {
	count int
}

func (ob *openbus) Read16(addr uint32, peek bool) uint16 {
	if !peek {
		ob.count++
	}
	return 0xD3D3
}
func (ob *openbus) Write16(addr uint32, val uint16) { ob.count++ }
func (ob *openbus) Read32(addr uint32, peek bool) uint32 {
	if !peek {
		ob.count++
	}
	return 0xD4D4D4D4
}
func (ob *openbus) Write32(addr uint32, val uint32) { ob.count++ }

type testTable struct {
	t   testing.TB
	Bus *hwio.Table
	ob  *openbus

	// $5000
	Reg0 hwio.Reg16 `hwio:"offset=0x00,reset=0x7777"`
	// $5002
	Reg1 hwio.Reg16 `hwio:"offset=0x02,rwmask=0xF0F0,rcb,reset=0x9999"`
	// $5010-$5012
	Pair hwio.Reg32 `hwio:"offset=0x10"`
	// $5020-$5022, also written as 32-bit at $5020
	Wide hwio.Reg32 `hwio:"offset=0x20,wide"`
	// $5030, 32-bit only
	Word hwio.Reg32 `hwio:"offset=0x30,nosplit,readonly,reset=0xCAFEBABE"`
	// $6000 (bank 1)
	Other hwio.Reg16 `hwio:"bank=1,offset=0x0,reset=0x0042"`

	reads int
}

func newTestTable(tb testing.TB) *testTable {
	tbl := &testTable{t: tb, ob: &openbus{}}
	hwio.MustInitRegs(tbl)

	tbl.Bus = hwio.NewTable("bus")
	tbl.Bus.MapBank(0x5000, tbl, 0)
	tbl.Bus.MapBank(0x6000, tbl, 1)
	tbl.Bus.Unmapped = tbl.ob
	return tbl
}

// $5002
func (tbl *testTable) ReadREG1(val uint16, peek bool) uint16 {
	if !peek {
		tbl.reads++
	}
	return val + 1
}

func (tbl *testTable) wantRead16(addr uint32, want uint16) {
	tbl.t.Helper()

	if got := tbl.Bus.Read16(addr, false); got != want {
		tbl.t.Errorf("Read16(%08X) = %04X, want %04X", addr, got, want)
	}
}

func (tbl *testTable) wantRead32(addr uint32, want uint32) {
	tbl.t.Helper()

	if got := tbl.Bus.Read32(addr, false); got != want {
		tbl.t.Errorf("Read32(%08X) = %08X, want %08X", addr, got, want)
	}
}

func TestTableRegs16(t *testing.T) {
	tbl := newTestTable(t)

	tbl.wantRead16(0xCC005000, 0x7777)
	tbl.Bus.Write16(0xCC005000, 0x1234)
	tbl.wantRead16(0xCC005000, 0x1234)

	tbl.wantRead16(0xCC005002, 0x999A)
	tbl.Bus.Write16(0xCC005002, 0xFFFF)
	tbl.wantRead16(0xCC005002, 0xF9FA)

	if got := tbl.Bus.Peek16(0xCC005002); got != 0xF9FA {
		t.Errorf("Peek16 = %04X", got)
	}
	if tbl.reads != 2 {
		t.Errorf("read callback called %d times, want 2", tbl.reads)
	}

	tbl.wantRead16(0xCC006000, 0x0042)
}

func TestTableReg32Halves(t *testing.T) {
	tbl := newTestTable(t)

	tbl.Bus.Write16(0xCC005010, 0xAAAA)
	tbl.Bus.Write16(0xCC005012, 0xBBBB)
	tbl.wantRead16(0xCC005010, 0xAAAA)
	tbl.wantRead16(0xCC005012, 0xBBBB)

	// Writing one half keeps the other.
	tbl.Bus.Write16(0xCC005010, 0x1111)
	if tbl.Pair.Value != 0x1111BBBB {
		t.Errorf("Pair = %08X, want 1111BBBB", tbl.Pair.Value)
	}

	// Not wide: 32-bit access is unmapped.
	tbl.Bus.Write32(0xCC005010, 0)
	if tbl.Pair.Value != 0x1111BBBB || tbl.ob.count != 1 {
		t.Errorf("32-bit write on split-only reg: value %08X, unmapped %d", tbl.Pair.Value, tbl.ob.count)
	}
}

func TestTableReg32Wide(t *testing.T) {
	tbl := newTestTable(t)

	tbl.Bus.Write32(0xCC005020, 0x12345678)
	tbl.wantRead16(0xCC005020, 0x1234)
	tbl.wantRead16(0xCC005022, 0x5678)

	// 32-bit reads are unmapped, as is any 32-bit access on the low half.
	tbl.wantRead32(0xCC005020, 0xD4D4D4D4)
	tbl.wantRead32(0xCC005022, 0xD4D4D4D4)
	if tbl.ob.count != 2 {
		t.Errorf("unmapped count = %d, want 2", tbl.ob.count)
	}
	if got := tbl.Bus.Read32(0xCC005020, true); got != 0xD4D4D4D4 || tbl.ob.count != 2 {
		t.Errorf("Peek32 = %08X, unmapped count %d", got, tbl.ob.count)
	}

	tbl.wantRead32(0xCC005030, 0xCAFEBABE)
	tbl.wantRead16(0xCC005030, 0xD3D3)
	tbl.Bus.Write32(0xCC005030, 0)
	tbl.wantRead32(0xCC005030, 0xCAFEBABE)
}

func TestTableUnmapped(t *testing.T) {
	tbl := newTestTable(t)

	tbl.wantRead16(0xCC005004, 0xD3D3)
	tbl.Bus.Write16(0xCC005004, 0x1)
	if got := tbl.Bus.Peek16(0xCC005004); got != 0xD3D3 {
		t.Errorf("Peek16 = %04X", got)
	}
	if tbl.ob.count != 2 {
		t.Errorf("unmapped count = %d, want 2", tbl.ob.count)
	}

	// Default handler reads zero.
	bare := hwio.NewTable("bare")
	if got := bare.Read16(0x1234, false); got != 0 {
		t.Errorf("bare Read16 = %04X, want 0", got)
	}
}

func TestUnmapBank(t *testing.T) {
	tbl := newTestTable(t)

	tbl.Bus.UnmapBank(0x5000, tbl, 0)
	tbl.wantRead16(0xCC005000, 0xD3D3)
	tbl.wantRead16(0xCC005022, 0xD3D3)
	tbl.wantRead32(0xCC005020, 0xD4D4D4D4)
	tbl.wantRead16(0xCC006000, 0x0042)
}

func TestMapTwicePanics(t *testing.T) {
	tbl := newTestTable(t)
	defer func() {
		if recover() == nil {
			t.Error("mapping the same bank twice should panic")
		}
	}()
	tbl.Bus.MapBank(0x5000, tbl, 0)
}
