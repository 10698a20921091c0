package hwio

// 16-bit operations
func GetBit16(v uint16, n uint) bool {
	return v>>n&1 != 0
}

func SetBit16(v *uint16, n uint) {
	*v |= (1 << n)
}

func ClearBit16(v *uint16, n uint) {
	*v &= ^(1 << n)
}

// SetBitTo16 sets or clears bit n depending on b.
func SetBitTo16(v *uint16, n uint, b bool) {
	if b {
		SetBit16(v, n)
	} else {
		ClearBit16(v, n)
	}
}

// 32-bit operations
func GetBit32(v uint32, n uint) bool {
	return v>>n&1 != 0
}

// Hi16 and Lo16 split a 32-bit value into its halves.
func Hi16(v uint32) uint16 { return uint16(v >> 16) }
func Lo16(v uint32) uint16 { return uint16(v) }

// SetHi16 replaces the high half of v, keeping the low half.
func SetHi16(v *uint32, hi uint16) {
	*v = (*v & 0x0000FFFF) | uint32(hi)<<16
}

// SetLo16 replaces the low half of v, keeping the high half.
func SetLo16(v *uint32, lo uint16) {
	*v = (*v & 0xFFFF0000) | uint32(lo)
}
