package hwio

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// MustInitRegs is like InitRegs but panics on error.
func MustInitRegs(data any) {
	if err := InitRegs(data); err != nil {
		panic(err)
	}
}

// InitRegs initializes all the registers of the structure pointed by data,
// using the options found in their "hwio" struct tags:
//
//	reset=0x12      value of the register after reset
//	rwmask=0x1F     bits that can be written (others are read-only)
//	readonly        writes are rejected (and logged)
//	writeonly       reads return zero (and are logged)
//	rcb[=Method]    read callback, defaults to ReadNAME (NAME is the
//	                uppercased field name)
//	wcb[=Method]    write callback, defaults to WriteNAME
//	wide            Reg32 only: accessible as a single 32-bit word
//	nosplit         Reg32 only: no 16-bit halves (implies 32-bit access)
//
// Read callbacks have the signature func(val uint16, peek bool) uint16 (or
// the 32-bit equivalent), write callbacks func(old, val uint16) for Reg16
// and func(old, val, mask uint32) for Reg32.
func InitRegs(data any) error {
	val := reflect.ValueOf(data)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("InitRegs: want pointer to struct, got %T", data)
	}
	sval := val.Elem()
	styp := sval.Type()

	for i := range styp.NumField() {
		field := styp.Field(i)
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts, err := parseTag(tag)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", styp.Name(), field.Name, err)
		}

		fptr := sval.Field(i).Addr().Interface()
		switch reg := fptr.(type) {
		case *Reg16:
			err = initReg16(reg, field.Name, opts, val)
		case *Reg32:
			err = initReg32(reg, field.Name, opts, val)
		default:
			err = fmt.Errorf("invalid reg type: %T", fptr)
		}
		if err != nil {
			return fmt.Errorf("%s.%s: %w", styp.Name(), field.Name, err)
		}
	}
	return nil
}

type tagOpts map[string]string

func parseTag(tag string) (tagOpts, error) {
	opts := make(tagOpts)
	for _, opt := range strings.Split(tag, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		k, v, _ := strings.Cut(opt, "=")
		switch k {
		case "offset", "bank", "reset", "rwmask", "readonly", "writeonly", "rcb", "wcb", "wide", "nosplit":
		default:
			return nil, fmt.Errorf("unknown hwio option %q", k)
		}
		opts[k] = v
	}
	return opts, nil
}

func (o tagOpts) has(k string) bool {
	_, ok := o[k]
	return ok
}

func (o tagOpts) uint(k string, bits int) (uint64, bool, error) {
	s, ok := o[k]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, true, fmt.Errorf("option %s: %w", k, err)
	}
	return v, true, nil
}

func (o tagOpts) flags() RWFlags {
	var f RWFlags
	if o.has("readonly") {
		f |= ReadOnlyFlag
	}
	if o.has("writeonly") {
		f |= WriteOnlyFlag
	}
	if o.has("wide") {
		f |= WideFlag
	}
	if o.has("nosplit") {
		f |= NoSplitFlag
	}
	return f
}

// method returns the method implementing callback option k (rcb or wcb),
// either named explicitly or derived from prefix and the field name.
func (o tagOpts) method(obj reflect.Value, k, prefix, name string) (reflect.Value, error) {
	s, ok := o[k]
	if !ok {
		return reflect.Value{}, nil
	}
	if s == "" {
		s = prefix + strings.ToUpper(name)
	}
	m := obj.MethodByName(s)
	if !m.IsValid() {
		return reflect.Value{}, fmt.Errorf("missing method %s", s)
	}
	return m, nil
}

var errCbSignature = errors.New("invalid callback signature")

func initReg16(reg *Reg16, name string, opts tagOpts, obj reflect.Value) error {
	reg.Name = name
	reg.Flags = opts.flags()
	if reg.Flags&(WideFlag|NoSplitFlag) != 0 {
		return errors.New("wide/nosplit only apply to Reg32")
	}

	reset, _, err := opts.uint("reset", 16)
	if err != nil {
		return err
	}
	reg.Value = uint16(reset)

	rwmask, ok, err := opts.uint("rwmask", 16)
	if err != nil {
		return err
	}
	if ok {
		reg.RoMask = ^uint16(rwmask)
	}

	rcb, err := opts.method(obj, "rcb", "Read", name)
	if err != nil {
		return err
	}
	if rcb.IsValid() {
		fn, ok := rcb.Interface().(func(uint16, bool) uint16)
		if !ok {
			return fmt.Errorf("%w: rcb %s", errCbSignature, rcb.Type())
		}
		reg.ReadCb = fn
	}

	wcb, err := opts.method(obj, "wcb", "Write", name)
	if err != nil {
		return err
	}
	if wcb.IsValid() {
		fn, ok := wcb.Interface().(func(uint16, uint16))
		if !ok {
			return fmt.Errorf("%w: wcb %s", errCbSignature, wcb.Type())
		}
		reg.WriteCb = fn
	}
	return nil
}

func initReg32(reg *Reg32, name string, opts tagOpts, obj reflect.Value) error {
	reg.Name = name
	reg.Flags = opts.flags()

	reset, _, err := opts.uint("reset", 32)
	if err != nil {
		return err
	}
	reg.Value = uint32(reset)

	rwmask, ok, err := opts.uint("rwmask", 32)
	if err != nil {
		return err
	}
	if ok {
		reg.RoMask = ^uint32(rwmask)
	}

	rcb, err := opts.method(obj, "rcb", "Read", name)
	if err != nil {
		return err
	}
	if rcb.IsValid() {
		fn, ok := rcb.Interface().(func(uint32, bool) uint32)
		if !ok {
			return fmt.Errorf("%w: rcb %s", errCbSignature, rcb.Type())
		}
		reg.ReadCb = fn
	}

	wcb, err := opts.method(obj, "wcb", "Write", name)
	if err != nil {
		return err
	}
	if wcb.IsValid() {
		fn, ok := wcb.Interface().(func(uint32, uint32, uint32))
		if !ok {
			return fmt.Errorf("%w: wcb %s", errCbSignature, wcb.Type())
		}
		reg.WriteCb = fn
	}
	return nil
}

type bankReg struct {
	offset uint16
	regPtr any
}

// bankGetRegs returns the registers of the given bank number, along with
// their offsets.
func bankGetRegs(bank any, bankNum int) ([]bankReg, error) {
	val := reflect.ValueOf(bank)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("bank must be pointer to struct, got %T", bank)
	}
	sval := val.Elem()
	styp := sval.Type()

	var regs []bankReg
	for i := range styp.NumField() {
		field := styp.Field(i)
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts, err := parseTag(tag)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", styp.Name(), field.Name, err)
		}
		off, ok, err := opts.uint("offset", 16)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", styp.Name(), field.Name, err)
		}
		if !ok {
			continue
		}
		num, _, err := opts.uint("bank", 8)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", styp.Name(), field.Name, err)
		}
		if int(num) != bankNum {
			continue
		}
		regs = append(regs, bankReg{
			offset: uint16(off),
			regPtr: sval.Field(i).Addr().Interface(),
		})
	}
	return regs, nil
}
