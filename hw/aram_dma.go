package hw

import (
	"dspi/emu/log"
	"dspi/hw/hwdefs"
	"dspi/hw/hwio"
)

// ARDMA copies bytes between main memory and ARAM. A transfer starts once
// both halves of the count register have been written.
type ARDMA struct {
	dsp *DSP

	// CntValid tracks which halves of CNT have been written since the last
	// transfer (high, low).
	CntValid [2]bool

	MMADDR hwio.Reg32 `hwio:"offset=0x20,wide"`
	ARADDR hwio.Reg32 `hwio:"offset=0x24,wide"`
	CNT    hwio.Reg32 `hwio:"offset=0x28,wide,wcb"` // bit 31: direction (1 = ARAM to RAM), bits 0-30: count
}

const (
	cntDirBit = 31
	cntMask   = 0x7FFFFFFF
)

func (a *ARDMA) WriteCNT(_, _, mask uint32) {
	if mask&hwio.MaskHi != 0 {
		a.CntValid[0] = true
	}
	if mask&hwio.MaskLo != 0 {
		a.CntValid[1] = true
	}
	a.Execute()
}

// Execute runs the programmed transfer if both count halves are latched.
// The transfer completes at once: the count goes back to zero (the direction
// is kept) and an ARAM interrupt is raised.
func (a *ARDMA) Execute() {
	if !a.CntValid[0] || !a.CntValid[1] {
		return
	}
	a.CntValid = [2]bool{}

	aram := a.dsp.ARAM
	ram := a.dsp.ram
	mmaddr := a.MMADDR.Value
	araddr := a.ARADDR.Value
	count := a.CNT.Value & cntMask
	toRAM := hwio.GetBit32(a.CNT.Value, cntDirBit)

	log.ModARAM.InfoZ("ARAM DMA").
		Bool("to_ram", toRAM).
		Hex32("mmaddr", mmaddr).
		Hex32("araddr", araddr).
		Uint32("count", count).
		End()

	if toRAM {
		for i := range count {
			ram.Write8(mmaddr+i, aram.dmaRead(araddr+i))
		}
	} else {
		var dropped uint32
		for i := range count {
			if !aram.dmaWrite(araddr+i, ram.Read8(mmaddr+i)) {
				dropped++
			}
		}
		if dropped != 0 {
			log.ModARAM.WarnZ("ARAM DMA writes beyond ARAM dropped").
				Uint32("dropped", dropped).
				End()
		}
	}

	a.CNT.Value &^= cntMask
	a.dsp.GenerateInterrupt(hwdefs.IntARAM, true)
}
