package hw

import (
	"fmt"

	"dspi/emu/log"
	"dspi/hw/hwdefs"
)

// aramSentinel is read by ARAM->RAM DMA beyond the end of ARAM.
const aramSentinel = 0x05

// ARAM is the auxiliary memory. On Wii it doesn't exist as such and
// accesses go to the start of main memory.
type ARAM struct {
	Wii  bool
	data []byte
}

// NewARAM allocates the 16 MiB GameCube ARAM, or in Wii mode aliases the
// first 24 MiB of main memory.
func NewARAM(wii bool, ram MainMemory) (*ARAM, error) {
	a := &ARAM{Wii: wii}
	if !wii {
		a.data = make([]byte, hwdefs.ARAMSize)
		return a, nil
	}

	buf := ram.Pointer(0)
	if len(buf) <= hwdefs.WiiMask {
		return nil, fmt.Errorf("cannot alias ARAM on main memory: %d bytes available, need %d", len(buf), hwdefs.WiiMask+1)
	}
	a.data = buf[:hwdefs.WiiMask+1]
	return a, nil
}

// Size returns the size of the backing store. DMA only reaches the first
// hwdefs.ARAMSize bytes, in both modes.
func (a *ARAM) Size() int { return len(a.data) }

func (a *ARAM) Read8(addr uint32) uint8 {
	if a.Wii {
		if addr > hwdefs.WiiMask {
			addr &= hwdefs.WiiMask
		}
		return a.data[addr]
	}
	return a.data[addr&hwdefs.ARAMMask]
}

func (a *ARAM) Write8(addr uint32, val uint8) {
	if a.Wii {
		a.data[addr&hwdefs.WiiMask] = val
		return
	}
	a.data[addr&hwdefs.ARAMMask] = val
}

func (a *ARAM) dmaRead(addr uint32) uint8 {
	if addr < hwdefs.ARAMSize {
		return a.data[addr]
	}
	return aramSentinel
}

// dmaWrite reports whether the byte has been written.
func (a *ARAM) dmaWrite(addr uint32, val uint8) bool {
	if addr < hwdefs.ARAMSize {
		a.data[addr] = val
		return true
	}
	return false
}

// Shutdown releases the GameCube ARAM. The Wii alias is left untouched.
func (a *ARAM) Shutdown() {
	if !a.Wii {
		log.ModARAM.InfoZ("releasing ARAM").Int("size", len(a.data)).End()
	}
	a.data = nil
}
