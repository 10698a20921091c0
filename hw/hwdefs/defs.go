package hwdefs

//go:generate go tool stringer -type=IntSource,PICause -output=defs_string.go

// IntSource identifies one of the three interrupt flag/mask pairs of the DSP
// control register.
type IntSource uint8

const (
	IntDSP IntSource = iota
	IntARAM
	IntAID
)

// PICause is a bit in the processor interface interrupt cause register.
type PICause uint32

const (
	PIError       PICause = 0x00000001
	PIRSW         PICause = 0x00000002
	PIDI          PICause = 0x00000004
	PISI          PICause = 0x00000008
	PIEXI         PICause = 0x00000010
	PIAI          PICause = 0x00000020
	PIDSP         PICause = 0x00000040
	PIMEM         PICause = 0x00000080
	PIVI          PICause = 0x00000100
	PIPEToken     PICause = 0x00000200
	PIPEFinish    PICause = 0x00000400
	PICP          PICause = 0x00000800
	PIDebug       PICause = 0x00001000
	PIHSP         PICause = 0x00002000
	PIWiiIPC      PICause = 0x00004000
	PIResetSwitch PICause = 0x00010000
)

// Memory sizes.
const (
	MainRAMSize = 0x01800000 // 24 MiB
	MainRAMMask = 0x01FFFFFF

	ARAMSize = 0x01000000 // 16 MiB
	ARAMMask = 0x00FFFFFF
	WiiMask  = 0x017FFFFF
)

// DSP timing.
const (
	DefaultCPUClock   = 486000000 // Gekko core clock (Hz)
	AudioDMARate      = 4000      // 32 bytes at 4 kHz = 4 bytes at 32 kHz
	AudioDMABlockSize = 32
	DefaultSampleRate = 32000
)

