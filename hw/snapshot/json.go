package snapshot

import (
	"fmt"

	"github.com/go-faster/jx"
)

func (s *DSP) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("version")
	e.Int(s.Version)
	e.FieldStart("clock")
	e.Int64(s.Clock)
	e.FieldStart("wii")
	e.Bool(s.Wii)
	e.FieldStart("control")
	e.UInt16(s.Control)
	e.FieldStart("int_line")
	e.Bool(s.IntLine)
	e.FieldStart("ar_mode")
	e.UInt16(s.ARMode)
	e.FieldStart("asserts")
	e.Int(s.Asserts)
	e.FieldStart("audio")
	s.Audio.Encode(e)
	e.FieldStart("ardma")
	s.ARDMA.Encode(e)
	e.ObjEnd()
}

func (s *DSP) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "version":
			s.Version, err = d.Int()
		case "clock":
			s.Clock, err = d.Int64()
		case "wii":
			s.Wii, err = d.Bool()
		case "control":
			s.Control, err = d.UInt16()
		case "int_line":
			s.IntLine, err = d.Bool()
		case "ar_mode":
			s.ARMode, err = d.UInt16()
		case "asserts":
			s.Asserts, err = d.Int()
		case "audio":
			err = s.Audio.Decode(d)
		case "ardma":
			err = s.ARDMA.Decode(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	})
}

func (s *DSP) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	s.Encode(&e)
	return e.Bytes(), nil
}

func (s *DSP) UnmarshalJSON(data []byte) error {
	return s.Decode(jx.DecodeBytes(data))
}

func (a *AudioDMA) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("start")
	e.UInt32(a.Start)
	e.FieldStart("control")
	e.UInt16(a.Control)
	e.FieldStart("read_address")
	e.UInt32(a.ReadAddress)
	e.FieldStart("blocks_left")
	e.UInt16(a.BlocksLeft)
	e.ObjEnd()
}

func (a *AudioDMA) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "start":
			a.Start, err = d.UInt32()
		case "control":
			a.Control, err = d.UInt16()
		case "read_address":
			a.ReadAddress, err = d.UInt32()
		case "blocks_left":
			a.BlocksLeft, err = d.UInt16()
		default:
			err = d.Skip()
		}
		return err
	})
}

func (a *ARDMA) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("mm_addr")
	e.UInt32(a.MMAddr)
	e.FieldStart("ar_addr")
	e.UInt32(a.ARAddr)
	e.FieldStart("cnt")
	e.UInt32(a.Cnt)
	e.FieldStart("cnt_valid")
	e.ArrStart()
	e.Bool(a.CntValid[0])
	e.Bool(a.CntValid[1])
	e.ArrEnd()
	e.ObjEnd()
}

func (a *ARDMA) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "mm_addr":
			a.MMAddr, err = d.UInt32()
		case "ar_addr":
			a.ARAddr, err = d.UInt32()
		case "cnt":
			a.Cnt, err = d.UInt32()
		case "cnt_valid":
			i := 0
			err = d.Arr(func(d *jx.Decoder) error {
				if i >= len(a.CntValid) {
					return fmt.Errorf("too many elements")
				}
				v, err := d.Bool()
				a.CntValid[i] = v
				i++
				return err
			})
		default:
			err = d.Skip()
		}
		return err
	})
}
