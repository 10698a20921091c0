package snapshot

// Version of the snapshot layout.
const Version = 1

// DSP is a plain view of the DSP interface state. It's meant for inspection
// (dumps, tests), not for restoring a running system.
type DSP struct {
	Version int
	Clock   int64
	Wii     bool

	Control uint16 // CSR, as read by the CPU
	IntLine bool
	ARMode  uint16
	Asserts int

	Audio AudioDMA
	ARDMA ARDMA
}

type AudioDMA struct {
	Start       uint32
	Control     uint16
	ReadAddress uint32
	BlocksLeft  uint16
}

type ARDMA struct {
	MMAddr   uint32
	ARAddr   uint32
	Cnt      uint32
	CntValid [2]bool
}
