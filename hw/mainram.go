package hw

import (
	"dspi/hw/hwdefs"
	"dspi/hw/hwio"
)

// MainRAM is the 24 MiB main memory. Addresses are physical, mirrors (like
// 0x80000000 cached or 0xC0000000 uncached) are folded by the address mask.
type MainRAM struct {
	hwio.Mem
}

func NewMainRAM() *MainRAM {
	ram := &MainRAM{Mem: *hwio.NewMem("main ram", hwdefs.MainRAMSize)}
	ram.Flags = hwio.MemFlagReadWrite
	return ram
}

// Fill sets n bytes at addr to val.
func (ram *MainRAM) Fill(addr uint32, n int, val uint8) {
	for i := range n {
		ram.Write8(addr+uint32(i), val)
	}
}

// Load copies buf at addr.
func (ram *MainRAM) Load(addr uint32, buf []byte) {
	for i, b := range buf {
		ram.Write8(addr+uint32(i), b)
	}
}
