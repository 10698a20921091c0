package hw

import (
	"dspi/emu/log"
	"dspi/hw/hwdefs"
	"dspi/hw/hwio"
)

// Bits of the DSP control/status register (CSR).
const (
	csrReset     = 0  // DSP reset (coprocessor)
	csrAssertInt = 1  // assert DSP interrupt (coprocessor)
	csrHalt      = 2  // DSP halted (coprocessor)
	csrAID       = 3  // audio DMA interrupt flag
	csrAIDMask   = 4  //
	csrARAM      = 5  // ARAM DMA interrupt flag
	csrARAMMask  = 6  //
	csrDSP       = 7  // DSP interrupt flag
	csrDSPMask   = 8  //
	csrDMAState  = 9  // ARAM DMA in progress
	csrUnk3      = 10 // (coprocessor)
	csrInit      = 11 // DSP initializing (coprocessor)

	csrPadMask uint16 = 0xF000
)

// DSPControlMask are the CSR bits owned by the coprocessor.
const DSPControlMask uint16 = 1<<csrReset | 1<<csrAssertInt | 1<<csrHalt | 1<<csrUnk3 | 1<<csrInit

const (
	csrIntFlags uint16 = 1<<csrAID | 1<<csrARAM | 1<<csrDSP
	csrIntMasks uint16 = 1<<csrAIDMask | 1<<csrARAMMask | 1<<csrDSPMask
)

// intFlagBit returns the CSR flag bit of an interrupt source.
func intFlagBit(src hwdefs.IntSource) (uint, bool) {
	switch src {
	case hwdefs.IntDSP:
		return csrDSP, true
	case hwdefs.IntARAM:
		return csrARAM, true
	case hwdefs.IntAID:
		return csrAID, true
	}
	return 0, false
}

// ReadCSR merges the core bits with the coprocessor view of the bits it owns.
func (d *DSP) ReadCSR(val uint16, _ bool) uint16 {
	return (val &^ DSPControlMask) | (d.coproc.ReadControlRegister() & DSPControlMask)
}

// WriteCSR forwards the write to the coprocessor, stores the control and mask
// bits, and acknowledges the interrupt flags written as 1.
func (d *DSP) WriteCSR(old, val uint16) {
	tmp := (val &^ DSPControlMask) | (d.coproc.WriteControlRegister(val) & DSPControlMask)

	// Interrupt flags are write-1-to-clear, the DMA state bit is always
	// cleared, everything else is stored as written.
	ctrl := tmp &^ (csrIntFlags | 1<<csrDMAState)
	ctrl |= old & csrIntFlags &^ tmp
	d.CSR.Value = ctrl

	if ctrl&csrPadMask != 0 {
		d.assert("DSPControl gets an unknown value", DSPBase+0x0A, uint32(val))
	}

	log.ModDSP.DebugZ("write control").
		Hex16("val", val).
		Hex16("old", old).
		Hex16("new", ctrl).
		End()

	d.UpdateInterrupts()
}

// ReadControl returns the CSR as read by the CPU.
func (d *DSP) ReadControl() uint16 { return d.Read16(DSPBase + 0x0A) }

// WriteControl writes the CSR as the CPU would.
func (d *DSP) WriteControl(val uint16) { d.Write16(DSPBase+0x0A, val) }

// UpdateInterrupts recomputes the DSP interrupt line and forwards it to the
// interrupt controller. The line is forwarded even if it didn't change.
func (d *DSP) UpdateInterrupts() {
	ctrl := d.CSR.Value
	d.line = ctrl&csrIntFlags&(ctrl&csrIntMasks>>1) != 0
	d.irq.SetInterrupt(hwdefs.PIDSP, d.line)
}

// InterruptLine reports the aggregated DSP interrupt line.
func (d *DSP) InterruptLine() bool { return d.line }

// GenerateInterrupt sets or clears the flag of src and updates the line.
func (d *DSP) GenerateInterrupt(src hwdefs.IntSource, set bool) {
	log.ModDSP.DebugZ("generate interrupt").
		Stringer("src", src).
		Bool("set", set).
		End()

	bit, ok := intFlagBit(src)
	if !ok {
		d.assert("invalid DSP interrupt source", DSPBase+0x0A, uint32(src))
		return
	}
	hwio.SetBitTo16(&d.CSR.Value, bit, set)
	d.UpdateInterrupts()
}
