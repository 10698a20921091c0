package hw

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"dspi/hw/snapshot"
)

func TestDSPState(t *testing.T) {
	env := newTestEnv(t, false)
	d := env.dsp

	d.WriteControl(1<<csrAIDMask | 1<<csrARAMMask)
	d.Write16(0xCC005030, 0x8000)
	d.Write16(0xCC005032, 0x4000)
	d.Write16(0xCC005036, 0x8000|4)
	programARDMA(d, 0x1000, 0x2000)
	d.Write16(0xCC005028, 0x8000)
	env.sched.Advance(testCPUClock / 4000)

	want := snapshot.DSP{
		Version: snapshot.Version,
		Clock:   testCPUClock / 4000,
		Control: 1<<csrAIDMask | 1<<csrARAMMask | 1<<csrAID,
		IntLine: true,
		ARMode:  0x43,
		Audio: snapshot.AudioDMA{
			Start:       0x80004000,
			Control:     0x8004,
			ReadAddress: 0x80004020,
			BlocksLeft:  3,
		},
		ARDMA: snapshot.ARDMA{
			MMAddr:   0x1000,
			ARAddr:   0x2000,
			Cnt:      0x80000000,
			CntValid: [2]bool{true, false},
		},
	}
	if diff := cmp.Diff(want, d.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}
