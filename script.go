package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-faster/jx"
)

// A script is a JSON array of register accesses and timeline operations,
// for example:
//
//	[
//	  {"op": "tone", "addr": "0x1000", "len": 4096, "freq": 440},
//	  {"op": "w16", "addr": "0xCC005030", "val": "0x8000"},
//	  {"op": "w16", "addr": "0xCC005032", "val": "0x1000"},
//	  {"op": "w16", "addr": "0xCC005036", "val": "0x8080"},
//	  {"op": "advance", "ms": 100}
//	]
//
// Numbers are either JSON numbers or strings in Go syntax ("0x1F", "0b101").
type scriptOp struct {
	Op     string
	Addr   uint32
	Val    uint32
	Len    uint32
	Freq   uint32
	Cycles int64
	MS     int64
	Expect *uint32

	Timeout time.Duration
}

type opSpec struct {
	addr bool   // addr is required
	val  bool   // val is required
	bits int    // max width of val
	len  bool   // len is required
	desc string // for errors
}

var opSpecs = map[string]opSpec{
	"w16":       {addr: true, val: true, bits: 16, desc: "16-bit register write"},
	"w32":       {addr: true, val: true, bits: 32, desc: "32-bit register write"},
	"r16":       {addr: true, bits: 16, desc: "16-bit register read"},
	"r32":       {addr: true, bits: 32, desc: "32-bit register read"},
	"poke8":     {addr: true, val: true, bits: 8, desc: "main memory write"},
	"fill":      {addr: true, val: true, bits: 8, len: true, desc: "main memory fill"},
	"tone":      {addr: true, len: true, desc: "square wave generation"},
	"advance":   {desc: "timeline advance"},
	"wait_mail": {desc: "wait for a DSP mail"},
}

const defaultMailTimeout = time.Second

func parseScript(data []byte) ([]scriptOp, error) {
	var ops []scriptOp
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		op, err := parseOp(d)
		if err != nil {
			return fmt.Errorf("op #%d: %w", len(ops), err)
		}
		ops = append(ops, op)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return ops, nil
}

func parseOp(d *jx.Decoder) (scriptOp, error) {
	op := scriptOp{Timeout: defaultMailTimeout}
	seen := make(map[string]bool)

	err := d.Obj(func(d *jx.Decoder, key string) error {
		seen[key] = true

		var (
			v   uint64
			err error
		)
		switch key {
		case "op":
			op.Op, err = d.Str()
		case "addr":
			v, err = decodeUint(d, 32)
			op.Addr = uint32(v)
		case "val":
			v, err = decodeUint(d, 32)
			op.Val = uint32(v)
		case "expect":
			v, err = decodeUint(d, 32)
			expect := uint32(v)
			op.Expect = &expect
		case "len":
			v, err = decodeUint(d, 32)
			op.Len = uint32(v)
		case "freq":
			v, err = decodeUint(d, 32)
			op.Freq = uint32(v)
		case "cycles":
			v, err = decodeUint(d, 63)
			op.Cycles = int64(v)
		case "ms":
			v, err = decodeUint(d, 63)
			op.MS = int64(v)
		case "timeout_ms":
			v, err = decodeUint(d, 32)
			op.Timeout = time.Duration(v) * time.Millisecond
		default:
			return fmt.Errorf("unknown field %q", key)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return op, err
	}

	spec, ok := opSpecs[op.Op]
	switch {
	case !ok:
		return op, fmt.Errorf("unknown op %q", op.Op)
	case spec.addr && !seen["addr"]:
		return op, fmt.Errorf("%s: missing addr", spec.desc)
	case spec.val && !seen["val"]:
		return op, fmt.Errorf("%s: missing val", spec.desc)
	case spec.len && !seen["len"]:
		return op, fmt.Errorf("%s: missing len", spec.desc)
	case spec.bits != 0 && spec.bits < 32 && op.Val>>spec.bits != 0:
		return op, fmt.Errorf("%s: val %#x overflows %d bits", spec.desc, op.Val, spec.bits)
	case spec.bits != 0 && spec.bits < 32 && op.Expect != nil && *op.Expect>>spec.bits != 0:
		return op, fmt.Errorf("%s: expect %#x overflows %d bits", spec.desc, *op.Expect, spec.bits)
	case op.Op == "advance" && seen["cycles"] == seen["ms"]:
		return op, errors.New("timeline advance: need exactly one of cycles and ms")
	case op.Op == "tone" && op.Freq == 0:
		return op, errors.New("square wave generation: missing freq")
	}
	return op, nil
}

// decodeUint decodes an unsigned integer of at most bits bits, either from a
// JSON number or from a string.
func decodeUint(d *jx.Decoder, bits int) (uint64, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		return strconv.ParseUint(s, 0, bits)
	case jx.Number:
		v, err := d.UInt64()
		if err != nil {
			return 0, err
		}
		if bits < 64 && v>>bits != 0 {
			return 0, fmt.Errorf("%d overflows %d bits", v, bits)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("want number or string, got %s", d.Next())
	}
}
