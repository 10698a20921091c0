package hw

import "dspi/hw/hwdefs"

// GenerateInterruptFromPlugin requests an interrupt from any goroutine (the
// coprocessor thread typically). The request is applied on the scheduler
// goroutine, at the next scheduler advance.
func (d *DSP) GenerateInterruptFromPlugin(src hwdefs.IntSource, set bool) {
	userdata := uint64(src)
	if set {
		userdata |= 1 << 16
	}
	d.sched.ScheduleEventThreadsafe(0, d.etGenerateInt, userdata)
}

func (d *DSP) generateInterruptEvent(userdata uint64, _ int64) {
	d.GenerateInterrupt(hwdefs.IntSource(userdata&0xFFFF), userdata>>16&1 != 0)
}
