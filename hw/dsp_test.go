package hw

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dspi/hw/hwdefs"
	"dspi/hw/sched"
)

type fakeCoproc struct {
	ctrl      uint16
	mbox      [2]uint32 // CPU->DSP, DSP->CPU
	mailReads int
}

func (c *fakeCoproc) idx(cpuMailbox bool) int {
	if cpuMailbox {
		return 0
	}
	return 1
}

func (c *fakeCoproc) ReadMailboxHigh(cpuMailbox bool) uint16 {
	c.mailReads++
	return uint16(c.mbox[c.idx(cpuMailbox)] >> 16)
}

func (c *fakeCoproc) ReadMailboxLow(cpuMailbox bool) uint16 {
	c.mailReads++
	return uint16(c.mbox[c.idx(cpuMailbox)])
}

func (c *fakeCoproc) WriteMailboxHigh(cpuMailbox bool, val uint16) {
	i := c.idx(cpuMailbox)
	c.mbox[i] = uint32(val)<<16 | c.mbox[i]&0xFFFF
}

func (c *fakeCoproc) WriteMailboxLow(cpuMailbox bool, val uint16) {
	i := c.idx(cpuMailbox)
	c.mbox[i] = c.mbox[i]&0xFFFF0000 | uint32(val)
}

func (c *fakeCoproc) ReadControlRegister() uint16 { return c.ctrl }

func (c *fakeCoproc) WriteControlRegister(val uint16) uint16 {
	c.ctrl = val & DSPControlMask &^ (1<<csrReset | 1<<csrAssertInt)
	return c.ctrl
}

type irqRecorder struct {
	lines []bool
}

func (r *irqRecorder) SetInterrupt(cause hwdefs.PICause, set bool) {
	if cause == hwdefs.PIDSP {
		r.lines = append(r.lines, set)
	}
}

func (r *irqRecorder) last() bool {
	return len(r.lines) > 0 && r.lines[len(r.lines)-1]
}

type aiBlock struct {
	Addr uint32
	Data []byte
	Rate uint32
}

type sinkRecorder struct {
	blocks []aiBlock
}

func (s *sinkRecorder) SendAIBuffer(addr uint32, block []byte, sampleRate uint32) {
	s.blocks = append(s.blocks, aiBlock{addr, bytes.Clone(block), sampleRate})
}

type testEnv struct {
	dsp    *DSP
	sched  *sched.Scheduler
	ram    *MainRAM
	coproc *fakeCoproc
	irq    *irqRecorder
	sink   *sinkRecorder
}

const testCPUClock = 4000 * 100 // 100 cycles per audio DMA tick

func newTestEnv(t *testing.T, wii bool) *testEnv {
	t.Helper()

	env := &testEnv{
		sched:  sched.New(),
		ram:    NewMainRAM(),
		coproc: &fakeCoproc{ctrl: 1 << csrHalt},
		irq:    &irqRecorder{},
		sink:   &sinkRecorder{},
	}
	dsp, err := NewDSP(DSPConfig{Wii: wii, CPUClock: testCPUClock}, DSPDeps{
		Coproc: env.coproc,
		RAM:    env.ram,
		IRQ:    env.irq,
		Audio:  env.sink,
		Sched:  env.sched,
	})
	if err != nil {
		t.Fatalf("NewDSP: %v", err)
	}
	t.Cleanup(dsp.Shutdown)
	env.dsp = dsp
	return env
}

func wantRead16(t *testing.T, d *DSP, addr uint32, want uint16) {
	t.Helper()
	if got := d.Read16(addr); got != want {
		t.Errorf("Read16(%08x) = %04x, want %04x", addr, got, want)
	}
}

func wantAsserts(t *testing.T, d *DSP, want int) {
	t.Helper()
	if d.Asserts != want {
		t.Errorf("got %d asserts (last: %q), want %d", d.Asserts, d.LastAssert, want)
	}
}

func TestNewDSPMissingDeps(t *testing.T) {
	_, err := NewDSP(DSPConfig{}, DSPDeps{RAM: NewMainRAM()})
	if err == nil {
		t.Fatalf("NewDSP without coprocessor: want error")
	}
}

func TestDSPResetValues(t *testing.T) {
	env := newTestEnv(t, false)
	d := env.dsp

	wantRead16(t, d, 0xCC00500A, 0x0004)
	wantRead16(t, d, 0xCC005012, 0x0043)
	wantRead16(t, d, 0xCC005016, 0x0001)
	wantRead16(t, d, 0xCC00501A, 0x0000)
	if got := d.Read32(0xCC005010); got != 0 {
		t.Errorf("Read32(interrupt control) = %08x, want 0", got)
	}

	d.Write16(0xCC005012, 0x0042)
	wantRead16(t, d, 0xCC005012, 0x0042)

	d.Write16(0xCC005016, 0x0000)
	wantRead16(t, d, 0xCC005016, 0x0001)

	d.Write16(0xCC00501A, 0xFFFF)
	wantRead16(t, d, 0xCC00501A, 0x0000)

	wantAsserts(t, d, 0)
}

func TestDSPMailboxes(t *testing.T) {
	env := newTestEnv(t, false)
	d := env.dsp

	d.Write16(0xCC005000, 0x8123)
	d.Write16(0xCC005002, 0x4567)
	if env.coproc.mbox[0] != 0x81234567 {
		t.Errorf("CPU mailbox = %08x, want 81234567", env.coproc.mbox[0])
	}

	env.coproc.mbox[1] = 0xDCD10001
	wantRead16(t, d, 0xCC005004, 0xDCD1)
	wantRead16(t, d, 0xCC005006, 0x0001)

	// Peeking doesn't reach the coprocessor.
	reads := env.coproc.mailReads
	if got := d.Peek16(0xCC005006); got != 0x0001 {
		t.Errorf("Peek16(DMBL) = %04x, want 0001", got)
	}
	if env.coproc.mailReads != reads {
		t.Errorf("Peek16 read the coprocessor mailbox")
	}

	// The DSP mailbox can't be written by the CPU.
	d.Write16(0xCC005004, 0x1111)
	d.Write16(0xCC005006, 0x2222)
	wantAsserts(t, d, 2)
	if env.coproc.mbox[1] != 0xDCD10001 {
		t.Errorf("DSP mailbox = %08x, want dcd10001", env.coproc.mbox[1])
	}
}

func TestDSPUnmapped(t *testing.T) {
	env := newTestEnv(t, false)
	d := env.dsp

	tests := []struct {
		name string
		fn   func()
	}{
		{"read16", func() { wantRead16(t, d, 0xCC005008, 0) }},
		{"write16", func() { d.Write16(0xCC00503E, 1) }},
		{"read32", func() { d.Read32(0xCC005030) }},
		{"write32", func() { d.Write32(0xCC005036, 1) }},
		{"write32 interrupt control", func() { d.Write32(0xCC005010, 1) }},
		{"write16 blocks left", func() { d.Write16(0xCC00503A, 1) }},
		{"read16 interrupt control", func() { d.Read16(0xCC005010) }},
	}
	for i, tt := range tests {
		tt.fn()
		if d.Asserts != i+1 {
			t.Errorf("%s: got %d asserts, want %d", tt.name, d.Asserts, i+1)
		}
	}

	// Peeking is silent.
	d.Peek16(0xCC005008)
	wantAsserts(t, d, len(tests))
}

func TestControlReservedBits(t *testing.T) {
	env := newTestEnv(t, false)
	d := env.dsp

	asserts := 0
	for _, pad := range []uint16{0x1000, 0x2000, 0x4000, 0x8000, 0xF000, 0x0000, 0xA000} {
		d.WriteControl(pad | 1<<csrAIDMask)
		if pad != 0 {
			asserts++
		}
		wantAsserts(t, d, asserts)

		got := d.ReadControl()
		if got&csrPadMask != pad {
			t.Errorf("reserved bits = %04x, want %04x", got&csrPadMask, pad)
		}
		if got&(1<<csrAIDMask) == 0 {
			t.Errorf("AID mask lost after writing %04x", pad)
		}
	}
}

func TestControlCoprocessorBits(t *testing.T) {
	env := newTestEnv(t, false)
	d := env.dsp

	// Halt is owned by the coprocessor: the core copy doesn't matter.
	d.WriteControl(1 << csrInit)
	if got := d.ReadControl(); got != 1<<csrInit {
		t.Errorf("ReadControl() = %04x, want %04x", got, 1<<csrInit)
	}
	env.coproc.ctrl = 1 << csrHalt
	if got := d.ReadControl(); got != 1<<csrHalt {
		t.Errorf("ReadControl() = %04x, want %04x", got, 1<<csrHalt)
	}

	// DMA state always reads back cleared after a write.
	d.WriteControl(1 << csrDMAState)
	if got := d.ReadControl(); got&(1<<csrDMAState) != 0 {
		t.Errorf("ReadControl() = %04x, DMA state still set", got)
	}
}

var intSources = []struct {
	src  hwdefs.IntSource
	flag uint16
	mask uint16
}{
	{hwdefs.IntAID, 1 << csrAID, 1 << csrAIDMask},
	{hwdefs.IntARAM, 1 << csrARAM, 1 << csrARAMMask},
	{hwdefs.IntDSP, 1 << csrDSP, 1 << csrDSPMask},
}

func TestControlWrite1ToClear(t *testing.T) {
	for _, is := range intSources {
		t.Run(is.src.String(), func(t *testing.T) {
			env := newTestEnv(t, false)
			d := env.dsp

			d.GenerateInterrupt(is.src, true)
			if d.ReadControl()&is.flag == 0 {
				t.Fatalf("flag not raised")
			}

			// Writing 0 keeps the flag.
			d.WriteControl(0)
			if d.ReadControl()&is.flag == 0 {
				t.Fatalf("flag cleared by writing 0")
			}

			// Other flags don't interfere.
			d.WriteControl(csrIntFlags &^ is.flag)
			if d.ReadControl()&is.flag == 0 {
				t.Fatalf("flag cleared by writing the other flags")
			}

			d.WriteControl(is.flag)
			if d.ReadControl()&is.flag != 0 {
				t.Fatalf("flag not cleared by writing 1")
			}

			// Writing 1 never sets it.
			d.WriteControl(is.flag)
			if d.ReadControl()&is.flag != 0 {
				t.Fatalf("flag set by writing 1")
			}
		})
	}
}

func TestControlInterruptLine(t *testing.T) {
	env := newTestEnv(t, false)
	d := env.dsp

	// 3 bits of raised flags, 3 bits of masks written, 3 bits of flags
	// acknowledged by the same write.
	for state := range 1 << 9 {
		d.WriteControl(csrIntFlags)

		var wval uint16
		want := false
		for i, is := range intSources {
			raised := state>>i&1 != 0
			masked := state>>(3+i)&1 != 0
			acked := state>>(6+i)&1 != 0

			if raised {
				d.GenerateInterrupt(is.src, true)
			}
			if masked {
				wval |= is.mask
			}
			if acked {
				wval |= is.flag
			}
			if raised && !acked && masked {
				want = true
			}
		}

		d.WriteControl(wval)
		if got := d.InterruptLine(); got != want {
			t.Errorf("state %09b: line = %t, want %t", state, got, want)
		}
		if got := env.irq.last(); got != want {
			t.Errorf("state %09b: PI line = %t, want %t", state, got, want)
		}
		if got := d.Read32(0xCC005010)&1 != 0; got != want {
			t.Errorf("state %09b: interrupt control = %t, want %t", state, got, want)
		}
	}
	wantAsserts(t, d, 0)
}

func fillPattern(ram *MainRAM, addr uint32, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i*7 + 3)
	}
	ram.Load(addr, buf)
	return buf
}

// countAID acknowledges the AID interrupt and reports whether it was raised.
func countAID(d *DSP) int {
	if d.ReadControl()&(1<<csrAID) == 0 {
		return 0
	}
	d.WriteControl(1<<csrAID | d.ReadControl()&csrIntMasks)
	return 1
}

func TestAudioDMADrain(t *testing.T) {
	const nblocks = 5

	env := newTestEnv(t, false)
	d := env.dsp
	data := fillPattern(env.ram, 0x1000, nblocks*32)

	d.Write16(0xCC005030, 0x8000)
	d.Write16(0xCC005032, 0x1000)
	d.Write16(0xCC005036, 0x8000|nblocks)

	nint := countAID(d)
	if nint != 1 {
		t.Fatalf("no AID interrupt when starting DMA")
	}
	wantRead16(t, d, 0xCC00503A, nblocks)

	for i := range nblocks {
		wantRead16(t, d, 0xCC00503A, uint16(nblocks-i))
		d.Audio.Tick()
		if n := countAID(d); n != 0 && i != nblocks-1 {
			t.Errorf("unexpected AID interrupt at tick %d", i)
		} else {
			nint += n
		}
	}
	if nint != 2 {
		t.Errorf("got %d AID interrupts, want 2", nint)
	}

	var want []aiBlock
	for i := range nblocks {
		want = append(want, aiBlock{
			Addr: 0x80001000 + uint32(i)*32,
			Data: data[i*32 : (i+1)*32],
			Rate: hwdefs.DefaultSampleRate,
		})
	}
	if diff := cmp.Diff(want, env.sink.blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}

	if d.Audio.ReadAddress != 0x80001000 {
		t.Errorf("read address = %08x, want 80001000", d.Audio.ReadAddress)
	}
	if d.Audio.BlocksLeft != nblocks {
		t.Errorf("blocks left = %d, want %d", d.Audio.BlocksLeft, nblocks)
	}
}

func TestAudioDMAScheduled(t *testing.T) {
	env := newTestEnv(t, false)
	d := env.dsp

	d.Write16(0xCC005030, 0x0000)
	d.Write16(0xCC005032, 0x2000)
	d.Write16(0xCC005036, 0x8000|16)

	env.sched.Advance(testCPUClock / 4000 * 10)
	if len(env.sink.blocks) != 10 {
		t.Fatalf("got %d blocks after 10 periods, want 10", len(env.sink.blocks))
	}
	if last := env.sink.blocks[9].Addr; last != 0x2000+9*32 {
		t.Errorf("last block address = %08x, want %08x", last, 0x2000+9*32)
	}
}

func TestAudioDMADisabled(t *testing.T) {
	env := newTestEnv(t, false)
	d := env.dsp

	d.Write16(0xCC005030, 0x0000)
	d.Write16(0xCC005032, 0x1000)
	d.Write16(0xCC005036, 8)

	for range 16 {
		d.Audio.Tick()
	}
	if len(env.sink.blocks) != 0 {
		t.Errorf("got %d blocks with DMA disabled, want 0", len(env.sink.blocks))
	}
	if countAID(d) != 0 {
		t.Errorf("AID interrupt with DMA disabled")
	}

	// Enabling again while enabled doesn't relatch.
	d.Write16(0xCC005036, 0x8000|8)
	countAID(d)
	d.Audio.Tick()
	d.Write16(0xCC005036, 0x8000|8)
	if countAID(d) != 0 {
		t.Errorf("AID interrupt when rewriting control while enabled")
	}
	if d.Audio.BlocksLeft != 7 {
		t.Errorf("blocks left = %d, want 7", d.Audio.BlocksLeft)
	}
}

func TestAudioDMASingleBlock(t *testing.T) {
	env := newTestEnv(t, false)
	d := env.dsp

	wantRead16(t, d, 0xCC00503A, 0)

	d.Write16(0xCC005032, 0x1000)
	d.Write16(0xCC005036, 0x8000|1)
	wantRead16(t, d, 0xCC00503A, 1)

	d.Audio.Tick()
	if len(env.sink.blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(env.sink.blocks))
	}
	// The transfer restarted.
	wantRead16(t, d, 0xCC00503A, 1)
}

func programARDMA(d *DSP, mmaddr, araddr uint32) {
	d.Write16(0xCC005020, uint16(mmaddr>>16))
	d.Write16(0xCC005022, uint16(mmaddr))
	d.Write16(0xCC005024, uint16(araddr>>16))
	d.Write16(0xCC005026, uint16(araddr))
}

func TestARAMDMALatch(t *testing.T) {
	tests := []struct {
		name  string
		write func(t *testing.T, d *DSP, cnt uint32)
	}{
		{"hi then lo", func(t *testing.T, d *DSP, cnt uint32) {
			d.Write16(0xCC005028, uint16(cnt>>16))
			if d.ReadControl()&(1<<csrARAM) != 0 || d.ARDMA.CntValid != [2]bool{true, false} {
				t.Errorf("transfer started after writing the high half")
			}
			d.Write16(0xCC00502A, uint16(cnt))
		}},
		{"lo then hi", func(t *testing.T, d *DSP, cnt uint32) {
			d.Write16(0xCC00502A, uint16(cnt))
			if d.ReadControl()&(1<<csrARAM) != 0 {
				t.Errorf("transfer started after writing the low half")
			}
			d.Write16(0xCC005028, uint16(cnt>>16))
		}},
		{"32-bit", func(t *testing.T, d *DSP, cnt uint32) {
			d.Write32(0xCC005028, cnt)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false)
			d := env.dsp
			data := fillPattern(env.ram, 0x3000, 0x40)

			programARDMA(d, 0x3000, 0x10000)
			tt.write(t, d, 0x40)

			if d.ReadControl()&(1<<csrARAM) == 0 {
				t.Fatalf("no ARAM interrupt")
			}
			wantRead16(t, d, 0xCC005028, 0)
			wantRead16(t, d, 0xCC00502A, 0)
			if d.ARDMA.CntValid != [2]bool{} {
				t.Errorf("count latches = %v, want both false", d.ARDMA.CntValid)
			}
			got := make([]byte, 0x40)
			for i := range got {
				got[i] = d.ReadByte(0x10000 + uint32(i))
			}
			if diff := cmp.Diff(data, got); diff != "" {
				t.Errorf("ARAM mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestARAMDMADirection(t *testing.T) {
	env := newTestEnv(t, false)
	d := env.dsp

	// ARAM -> RAM
	for i, b := range []byte{0xA1, 0xB2, 0xC3, 0xD4} {
		d.WriteByte(0x2000+uint32(i), b)
	}
	programARDMA(d, 0x1000, 0x2000)
	d.Write32(0xCC005028, 0x80000004)

	got := []byte{env.ram.Read8(0x1000), env.ram.Read8(0x1001), env.ram.Read8(0x1002), env.ram.Read8(0x1003)}
	if diff := cmp.Diff([]byte{0xA1, 0xB2, 0xC3, 0xD4}, got); diff != "" {
		t.Errorf("RAM mismatch (-want +got):\n%s", diff)
	}
	if cnt := d.ARDMA.CNT.Value; cnt&cntMask != 0 {
		t.Errorf("count = %08x, want 0", cnt)
	}

	// RAM -> ARAM
	env.ram.Load(0x1000, []byte{1, 2, 3, 4})
	d.Write32(0xCC005028, 0x00000004)
	got = []byte{d.ReadByte(0x2000), d.ReadByte(0x2001), d.ReadByte(0x2002), d.ReadByte(0x2003)}
	if diff := cmp.Diff([]byte{1, 2, 3, 4}, got); diff != "" {
		t.Errorf("ARAM mismatch (-want +got):\n%s", diff)
	}

	// Addresses aren't advanced by a transfer.
	if d.ARDMA.MMADDR.Value != 0x1000 || d.ARDMA.ARADDR.Value != 0x2000 {
		t.Errorf("addresses = %08x/%08x, want 00001000/00002000", d.ARDMA.MMADDR.Value, d.ARDMA.ARADDR.Value)
	}
}

func TestARAMDMAOutOfRange(t *testing.T) {
	env := newTestEnv(t, false)
	d := env.dsp

	d.WriteByte(hwdefs.ARAMSize-2, 0x11)
	d.WriteByte(hwdefs.ARAMSize-1, 0x22)

	programARDMA(d, 0x1000, hwdefs.ARAMSize-2)
	d.Write32(0xCC005028, 0x80000004)

	got := []byte{env.ram.Read8(0x1000), env.ram.Read8(0x1001), env.ram.Read8(0x1002), env.ram.Read8(0x1003)}
	if diff := cmp.Diff([]byte{0x11, 0x22, aramSentinel, aramSentinel}, got); diff != "" {
		t.Errorf("RAM mismatch (-want +got):\n%s", diff)
	}

	// Writes past the end are dropped.
	env.ram.Load(0x1000, []byte{0x33, 0x44, 0x55, 0x66})
	d.Write32(0xCC005028, 0x00000004)
	if b := d.ReadByte(hwdefs.ARAMSize - 1); b != 0x44 {
		t.Errorf("last ARAM byte = %02x, want 44", b)
	}
	if b := d.ReadByte(0); b != 0 {
		t.Errorf("ARAM byte 0 = %02x, want 0 (write wrapped)", b)
	}
	wantAsserts(t, d, 0)
}

func TestARAMWii(t *testing.T) {
	env := newTestEnv(t, true)
	d := env.dsp

	if d.ARAM.Size() != hwdefs.WiiMask+1 {
		t.Errorf("ARAM size = %x, want %x", d.ARAM.Size(), hwdefs.WiiMask+1)
	}

	d.WriteByte(0x10, 0xAB)
	if b := env.ram.Read8(0x10); b != 0xAB {
		t.Errorf("RAM[0x10] = %02x, want ab", b)
	}
	env.ram.Write8(0x20, 0xCD)
	if b := d.ReadByte(0x20); b != 0xCD {
		t.Errorf("ARAM[0x20] = %02x, want cd", b)
	}
	// Addresses beyond the mask are masked.
	if b := d.ReadByte(0x02000020); b != 0xCD {
		t.Errorf("ARAM[mirror of 0x20] = %02x, want cd", b)
	}
}

func TestARAMDMAWiiRange(t *testing.T) {
	env := newTestEnv(t, true)
	d := env.dsp

	// Main memory past 16 MiB is out of DMA range even though ARAM
	// aliases it.
	env.ram.Write8(hwdefs.ARAMSize, 0xAB)
	env.ram.Write8(hwdefs.ARAMSize-1, 0xCD)

	programARDMA(d, 0x1000, hwdefs.ARAMSize-1)
	d.Write32(0xCC005028, 0x80000002)
	got := []byte{env.ram.Read8(0x1000), env.ram.Read8(0x1001)}
	if diff := cmp.Diff([]byte{0xCD, aramSentinel}, got); diff != "" {
		t.Errorf("RAM mismatch (-want +got):\n%s", diff)
	}

	env.ram.Load(0x1000, []byte{0x11, 0x22})
	d.Write32(0xCC005028, 0x00000002)
	if b := env.ram.Read8(hwdefs.ARAMSize - 1); b != 0x11 {
		t.Errorf("RAM[%x] = %02x, want 11", hwdefs.ARAMSize-1, b)
	}
	if b := env.ram.Read8(hwdefs.ARAMSize); b != 0xAB {
		t.Errorf("RAM[%x] = %02x, want ab (write dropped)", hwdefs.ARAMSize, b)
	}
}

func TestARAMMasking(t *testing.T) {
	env := newTestEnv(t, false)
	d := env.dsp

	d.WriteByte(hwdefs.ARAMSize+5, 0x99)
	if b := d.ReadByte(5); b != 0x99 {
		t.Errorf("ARAM[5] = %02x, want 99", b)
	}
}

func TestARAMDMAWideAddress(t *testing.T) {
	env := newTestEnv(t, false)
	d := env.dsp

	d.Write32(0xCC005020, 0x01234560)
	wantRead16(t, d, 0xCC005020, 0x0123)
	wantRead16(t, d, 0xCC005022, 0x4560)

	wantAsserts(t, d, 0)

	// 32-bit reads of the DMA registers are not decoded.
	for _, addr := range []uint32{0xCC005020, 0xCC005024, 0xCC005028} {
		if got := d.Read32(addr); got != 0 {
			t.Errorf("Read32(%08x) = %08x, want 0", addr, got)
		}
	}
	wantAsserts(t, d, 3)
	if d.ARDMA.MMADDR.Value != 0x01234560 {
		t.Errorf("MMADDR = %08x, want 01234560", d.ARDMA.MMADDR.Value)
	}
}
