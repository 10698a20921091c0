package hw

import (
	"errors"
	"fmt"

	"dspi/emu/log"
	"dspi/hw/hwdefs"
	"dspi/hw/hwio"
	"dspi/hw/sched"
)

// Coprocessor is the DSP itself, as seen from the CPU side: its mailboxes and
// the bits of the control register it owns (see DSPControlMask).
type Coprocessor interface {
	ReadMailboxHigh(cpuMailbox bool) uint16
	ReadMailboxLow(cpuMailbox bool) uint16
	WriteMailboxHigh(cpuMailbox bool, val uint16)
	WriteMailboxLow(cpuMailbox bool, val uint16)

	ReadControlRegister() uint16
	// WriteControlRegister receives the value written by the CPU and returns
	// the coprocessor view of the control register after the write.
	WriteControlRegister(val uint16) uint16
}

// AudioSink renders audio DMA blocks. block is only valid during the call.
type AudioSink interface {
	SendAIBuffer(addr uint32, block []byte, sampleRate uint32)
}

// MainMemory gives access to main RAM.
type MainMemory interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, val uint8)
	// Pointer returns the memory starting at physical address addr.
	Pointer(addr uint32) []byte
}

// InterruptSink is the processor interface interrupt line aggregator.
type InterruptSink interface {
	SetInterrupt(cause hwdefs.PICause, set bool)
}

// SampleRater reports the sample rate of the DSP audio stream.
type SampleRater interface {
	DSPSampleRate() uint32
}

// FixedSampleRate is a SampleRater returning a constant rate.
type FixedSampleRate uint32

func (r FixedSampleRate) DSPSampleRate() uint32 { return uint32(r) }

// Scheduler is the subset of the timing facility used by the DSP.
type Scheduler interface {
	Now() int64
	RegisterEvent(name string, cb sched.Callback) sched.EventType
	RegisterPeriodic(name string, period int64, fn func()) sched.EventType
	ScheduleEvent(cyclesIntoFuture int64, et sched.EventType, userdata uint64)
	ScheduleEventThreadsafe(cyclesIntoFuture int64, et sched.EventType, userdata uint64)
}

// DSPDeps are the collaborators of the DSP interface.
type DSPDeps struct {
	Coproc Coprocessor
	RAM    MainMemory
	IRQ    InterruptSink
	Audio  AudioSink
	Sched  Scheduler
	Rates  SampleRater // optional, defaults to 32 kHz
}

// DSPConfig holds the DSP interface settings.
type DSPConfig struct {
	Wii      bool  // ARAM is mapped onto main memory
	CPUClock int64 // scheduler cycles per second, 0 means hwdefs.DefaultCPUClock
}

// DSPBase is the physical address of the DSP interface registers.
const DSPBase = 0xCC005000

// DSP is the DSP interface: control register, interrupts, audio DMA, ARAM
// DMA and the ARAM itself. Except GenerateInterruptFromPlugin, all methods
// must be called from the goroutine running the scheduler.
type DSP struct {
	Bus   *hwio.Table
	ARAM  *ARAM
	Audio AudioDMA
	ARDMA ARDMA

	// Asserts counts the programming errors detected (unmapped accesses,
	// writes to read-only registers, reserved control bits).
	Asserts    int
	LastAssert string

	coproc Coprocessor
	ram    MainMemory
	irq    InterruptSink
	sink   AudioSink
	rates  SampleRater
	sched  Scheduler

	line   bool // aggregated interrupt line
	tracer *tracer

	etGenerateInt sched.EventType
	etAudioDMA    sched.EventType

	CMBH    hwio.Reg16 `hwio:"offset=0x00,rcb,wcb"`             // CPU->DSP mailbox
	CMBL    hwio.Reg16 `hwio:"offset=0x02,rcb,wcb"`             //
	DMBH    hwio.Reg16 `hwio:"offset=0x04,rcb,wcb"`             // DSP->CPU mailbox
	DMBL    hwio.Reg16 `hwio:"offset=0x06,rcb,wcb"`             //
	CSR     hwio.Reg16 `hwio:"offset=0x0A,rcb,wcb,reset=0x0004"` // control/status (halted)
	INTCTRL hwio.Reg32 `hwio:"offset=0x10,nosplit,rcb,wcb"`
	ARMODE  hwio.Reg16 `hwio:"offset=0x12,reset=0x43"`
	ARREADY hwio.Reg16 `hwio:"offset=0x16,wcb,reset=0x01"`
	ARUNK   hwio.Reg16 `hwio:"offset=0x1A,rwmask=0"`
}

// NewDSP creates the DSP interface, allocates (or aliases) ARAM, maps the
// registers and registers the DSP events on the scheduler.
func NewDSP(cfg DSPConfig, deps DSPDeps) (*DSP, error) {
	switch {
	case deps.Coproc == nil:
		return nil, errors.New("dsp: missing coprocessor")
	case deps.RAM == nil:
		return nil, errors.New("dsp: missing main memory")
	case deps.IRQ == nil:
		return nil, errors.New("dsp: missing interrupt sink")
	case deps.Audio == nil:
		return nil, errors.New("dsp: missing audio sink")
	case deps.Sched == nil:
		return nil, errors.New("dsp: missing scheduler")
	}

	aram, err := NewARAM(cfg.Wii, deps.RAM)
	if err != nil {
		return nil, fmt.Errorf("dsp: %w", err)
	}

	d := &DSP{
		ARAM:   aram,
		coproc: deps.Coproc,
		ram:    deps.RAM,
		irq:    deps.IRQ,
		sink:   deps.Audio,
		rates:  deps.Rates,
		sched:  deps.Sched,
	}
	if d.rates == nil {
		d.rates = FixedSampleRate(hwdefs.DefaultSampleRate)
	}
	d.Audio.dsp = d
	d.ARDMA.dsp = d

	hwio.MustInitRegs(d)
	hwio.MustInitRegs(&d.Audio)
	hwio.MustInitRegs(&d.ARDMA)

	d.Bus = hwio.NewTable("dsp")
	d.Bus.Unmapped = dspUnmapped{d}
	d.Bus.MapBank(0x5000, d, 0)
	d.Bus.MapBank(0x5000, &d.Audio, 0)
	d.Bus.MapBank(0x5000, &d.ARDMA, 0)

	clock := cfg.CPUClock
	if clock == 0 {
		clock = hwdefs.DefaultCPUClock
	}
	d.etGenerateInt = d.sched.RegisterEvent("DSPint", d.generateInterruptEvent)
	d.etAudioDMA = d.sched.RegisterPeriodic("AudioDMA", clock/hwdefs.AudioDMARate, d.Audio.Tick)

	log.ModDSP.InfoZ("dsp interface initialized").
		Bool("wii", cfg.Wii).
		Int("aram", aram.Size()).
		End()
	return d, nil
}

// Shutdown releases ARAM.
func (d *DSP) Shutdown() {
	d.ARAM.Shutdown()
}

// assert reports a programming error of the emulated software. Execution
// continues.
func (d *DSP) assert(msg string, addr uint32, val uint32) {
	d.Asserts++
	d.LastAssert = msg
	log.ModDSP.ErrorZ(msg).Hex32("addr", addr).Hex32("val", val).End()
}

func (d *DSP) Read16(addr uint32) uint16 {
	val := d.Bus.Read16(addr, false)
	log.ModDSP.DebugZ("r16").Hex32("addr", addr).Hex16("val", val).End()
	d.trace(false, false, addr, uint32(val))
	return val
}

// Peek16 reads a register without side effects.
func (d *DSP) Peek16(addr uint32) uint16 {
	return d.Bus.Read16(addr, true)
}

func (d *DSP) Write16(addr uint32, val uint16) {
	log.ModDSP.DebugZ("w16").Hex32("addr", addr).Hex16("val", val).End()
	d.trace(true, false, addr, uint32(val))
	d.Bus.Write16(addr, val)
}

func (d *DSP) Read32(addr uint32) uint32 {
	val := d.Bus.Read32(addr, false)
	log.ModDSP.DebugZ("r32").Hex32("addr", addr).Hex32("val", val).End()
	d.trace(false, true, addr, val)
	return val
}

func (d *DSP) Write32(addr uint32, val uint32) {
	log.ModDSP.DebugZ("w32").Hex32("addr", addr).Hex32("val", val).End()
	d.trace(true, true, addr, val)
	d.Bus.Write32(addr, val)
}

// ReadByte reads ARAM, for the other components of the system.
func (d *DSP) ReadByte(addr uint32) uint8 { return d.ARAM.Read8(addr) }

// WriteByte writes ARAM, for the other components of the system.
func (d *DSP) WriteByte(addr uint32, val uint8) { d.ARAM.Write8(addr, val) }

type dspUnmapped struct{ d *DSP }

func (u dspUnmapped) Read16(addr uint32, peek bool) uint16 {
	if !peek {
		u.d.assert("unmapped Read16", addr, 0)
	}
	return 0
}

func (u dspUnmapped) Write16(addr uint32, val uint16) {
	u.d.assert("unmapped Write16", addr, uint32(val))
}

func (u dspUnmapped) Read32(addr uint32, peek bool) uint32 {
	if !peek {
		u.d.assert("unmapped Read32", addr, 0)
	}
	return 0
}

func (u dspUnmapped) Write32(addr uint32, val uint32) {
	u.d.assert("unmapped Write32", addr, val)
}

// Mailboxes. The last value read or written is kept in the register so that
// peeking has no side effect on the coprocessor.

func (d *DSP) ReadCMBH(val uint16, peek bool) uint16 {
	if peek {
		return val
	}
	d.CMBH.Value = d.coproc.ReadMailboxHigh(true)
	return d.CMBH.Value
}

func (d *DSP) WriteCMBH(_, val uint16) { d.coproc.WriteMailboxHigh(true, val) }

func (d *DSP) ReadCMBL(val uint16, peek bool) uint16 {
	if peek {
		return val
	}
	d.CMBL.Value = d.coproc.ReadMailboxLow(true)
	return d.CMBL.Value
}

func (d *DSP) WriteCMBL(_, val uint16) { d.coproc.WriteMailboxLow(true, val) }

func (d *DSP) ReadDMBH(val uint16, peek bool) uint16 {
	if peek {
		return val
	}
	d.DMBH.Value = d.coproc.ReadMailboxHigh(false)
	return d.DMBH.Value
}

func (d *DSP) WriteDMBH(old, val uint16) {
	d.DMBH.Value = old
	d.assert("W16: DSP_MAIL_FROM_DSP_HI", DSPBase+0x04, uint32(val))
}

func (d *DSP) ReadDMBL(val uint16, peek bool) uint16 {
	if peek {
		return val
	}
	d.DMBL.Value = d.coproc.ReadMailboxLow(false)
	return d.DMBL.Value
}

func (d *DSP) WriteDMBL(old, val uint16) {
	d.DMBL.Value = old
	d.assert("W16: DSP_MAIL_FROM_DSP_LO", DSPBase+0x06, uint32(val))
}

// INTCTRL reads the aggregated DSP interrupt line in bit 0.
func (d *DSP) ReadINTCTRL(_ uint32, _ bool) uint32 {
	if d.line {
		return 1
	}
	return 0
}

func (d *DSP) WriteINTCTRL(old, val, _ uint32) {
	d.INTCTRL.Value = old
	d.assert("W32: DSP_INTERRUPT_CONTROL is read-only", DSPBase+0x10, val)
}

// ARREADY: whatever is written, the ready flag reads back as 1.
func (d *DSP) WriteARREADY(_, _ uint16) {
	d.ARREADY.Value = 0x01
}
