package hw

import "dspi/hw/snapshot"

// State returns a snapshot of the DSP interface. It has no side effects on
// the device nor on the coprocessor.
func (d *DSP) State() snapshot.DSP {
	return snapshot.DSP{
		Version: snapshot.Version,
		Clock:   d.sched.Now(),
		Wii:     d.ARAM.Wii,
		Control: d.Peek16(DSPBase + 0x0A),
		IntLine: d.line,
		ARMode:  d.ARMODE.Value,
		Asserts: d.Asserts,
		Audio: snapshot.AudioDMA{
			Start:       d.Audio.START.Value,
			Control:     d.Audio.CONTROL.Value,
			ReadAddress: d.Audio.ReadAddress,
			BlocksLeft:  d.Audio.BlocksLeft,
		},
		ARDMA: snapshot.ARDMA{
			MMAddr:   d.ARDMA.MMADDR.Value,
			ARAddr:   d.ARDMA.ARADDR.Value,
			Cnt:      d.ARDMA.CNT.Value,
			CntValid: d.ARDMA.CntValid,
		},
	}
}
