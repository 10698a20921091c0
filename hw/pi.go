package hw

import (
	"dspi/emu/log"
	"dspi/hw/hwdefs"
)

// PI is the processor interface interrupt controller: it latches the
// interrupt lines of the devices and reports whether the CPU has a pending,
// unmasked, interrupt.
type PI struct {
	Cause hwdefs.PICause
	Mask  hwdefs.PICause

	// OnChange, if set, is called when the pending state of the CPU
	// interrupt changes.
	OnChange func(pending bool)
}

func NewPI() *PI {
	return &PI{}
}

// SetInterrupt sets or clears the line of the given cause.
func (pi *PI) SetInterrupt(cause hwdefs.PICause, set bool) {
	was := pi.Pending()
	if set {
		pi.Cause |= cause
	} else {
		pi.Cause &^= cause
	}

	log.ModPI.DebugZ("set interrupt").
		Stringer("cause", cause).
		Bool("set", set).
		Hex32("causes", uint32(pi.Cause)).
		End()

	if now := pi.Pending(); now != was && pi.OnChange != nil {
		pi.OnChange(now)
	}
}

// Pending reports whether an unmasked interrupt is asserted.
func (pi *PI) Pending() bool {
	return pi.Cause&pi.Mask != 0
}

// Asserted reports whether the line of cause is asserted, masked or not.
func (pi *PI) Asserted(cause hwdefs.PICause) bool {
	return pi.Cause&cause != 0
}
