package hw

import (
	"fmt"
	"io"
)

// busAccess stores one register access for the bus trace.
type busAccess struct {
	Write bool
	Wide  bool // 32-bit access
	Addr  uint32
	Val   uint32
	Clock int64
}

type tracer struct {
	w io.Writer
}

func hexEncode(dst []byte, v byte) {
	const hextable = "0123456789ABCDEF"
	dst[0] = hextable[v>>4]
	dst[1] = hextable[v&0x0f]
}

func hexEncode32(dst []byte, v uint32) {
	hexEncode(dst[0:], byte(v>>24))
	hexEncode(dst[2:], byte(v>>16))
	hexEncode(dst[4:], byte(v>>8))
	hexEncode(dst[6:], byte(v))
}

// write the trace line for a register access.
func (t *tracer) write(acc busAccess) {
	const totalLen = 64
	buf := make([]byte, 22, totalLen)

	buf[0] = 'R'
	if acc.Write {
		buf[0] = 'W'
	}
	buf[1], buf[2] = '1', '6'
	if acc.Wide {
		buf[1], buf[2] = '3', '2'
	}
	buf[3] = ' '

	hexEncode32(buf[4:], acc.Addr)
	buf[12] = ' '

	if acc.Wide {
		hexEncode32(buf[13:], acc.Val)
	} else {
		hexEncode(buf[13:], byte(acc.Val>>8))
		hexEncode(buf[15:], byte(acc.Val))
		for off := 17; off < 21; off++ {
			buf[off] = ' '
		}
	}
	buf[21] = ' '

	buf = fmt.Appendf(buf, "%-18s %d\n", formatAddr(acc.Addr), acc.Clock)
	t.w.Write(buf)
}

var addressLabels = map[uint16]string{
	0x5000: "CpuMbHi_5000",
	0x5002: "CpuMbLo_5002",
	0x5004: "DspMbHi_5004",
	0x5006: "DspMbLo_5006",
	0x500A: "DspControl_500A",
	0x5010: "IntCtrl_5010",
	0x5012: "ArMode_5012",
	0x5016: "ArReady_5016",
	0x501A: "ArUnk_501A",
	0x5020: "ArDmaMmAddr_5020",
	0x5022: "ArDmaMmAddrLo_5022",
	0x5024: "ArDmaArAddr_5024",
	0x5026: "ArDmaArAddrLo_5026",
	0x5028: "ArDmaCnt_5028",
	0x502A: "ArDmaCntLo_502A",
	0x5030: "AudioDmaStart_5030",
	0x5032: "AudioDmaStartLo_5032",
	0x5036: "AudioDmaCtrl_5036",
	0x503A: "AudioDmaLeft_503A",
}

func formatAddr(addr uint32) string {
	if label, ok := addressLabels[uint16(addr)]; ok {
		return label
	}
	return fmt.Sprintf("$%04X", uint16(addr))
}

// SetTrace enables the bus trace: every CPU-side register access is
// written to w. A nil writer disables it.
func (d *DSP) SetTrace(w io.Writer) {
	if w == nil {
		d.tracer = nil
		return
	}
	d.tracer = &tracer{w: w}
}

func (d *DSP) trace(write, wide bool, addr, val uint32) {
	if d.tracer == nil {
		return
	}
	d.tracer.write(busAccess{
		Write: write,
		Wide:  wide,
		Addr:  addr,
		Val:   val,
		Clock: d.sched.Now(),
	})
}
