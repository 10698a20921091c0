package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"

	"dspi/emu"
	"dspi/emu/log"
	"dspi/emu/wavout"
	"dspi/hw"
	"dspi/hw/coproc"
	"dspi/hw/hwdefs"
	"dspi/hw/sched"
)

// system is a minimal console: main memory, the processor interface, the
// DSP interface and its coprocessor, and the audio outputs.
type system struct {
	cfg emu.Config

	sched  *sched.Scheduler
	ram    *hw.MainRAM
	pi     *hw.PI
	coproc *coproc.Stub
	mixer  *hw.AudioMixer
	dsp    *hw.DSP

	out io.Writer // script read results
}

func newSystem(cfg emu.Config, out io.Writer, outputs ...hw.AudioOutput) (*system, error) {
	s := &system{
		cfg:    cfg,
		sched:  sched.New(),
		ram:    hw.NewMainRAM(),
		pi:     hw.NewPI(),
		coproc: coproc.NewStub(),
		mixer:  hw.NewAudioMixer(cfg.Audio.OutputRate, outputs...),
		out:    out,
	}
	s.pi.Mask = hwdefs.PIDSP
	s.pi.OnChange = func(pending bool) {
		log.ModEmu.DebugZ("CPU interrupt").Bool("pending", pending).End()
	}

	dsp, err := hw.NewDSP(
		hw.DSPConfig{
			Wii:      cfg.DSP.Wii,
			CPUClock: cfg.Timing.CPUClock,
		},
		hw.DSPDeps{
			Coproc: s.coproc,
			RAM:    s.ram,
			IRQ:    s.pi,
			Audio:  s.mixer,
			Sched:  s.sched,
			Rates:  hw.FixedSampleRate(cfg.DSP.SampleRate),
		})
	if err != nil {
		return nil, err
	}
	s.dsp = dsp
	s.coproc.Attach(dsp)
	return s, nil
}

func (s *system) msToCycles(ms int64) int64 {
	return ms * s.cfg.Timing.CPUClock / 1000
}

// run runs the script, then advances the timeline by extra milliseconds. The
// coprocessor runs on its own goroutine in the meantime.
func (s *system) run(ctx context.Context, ops []scriptOp, extra time.Duration, realtime bool) error {
	log.AddContext(s.sched)
	defer log.RemoveContext(s.sched)

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.coproc.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		for i, op := range ops {
			if err := s.exec(ctx, op); err != nil {
				return fmt.Errorf("op #%d (%s): %w", i, op.Op, err)
			}
		}
		return s.advance(ctx, extra.Milliseconds(), realtime)
	})
	return g.Wait()
}

// advance runs the timeline by ms milliseconds, 1ms at a time. In realtime
// mode, it waits so that emulated time follows wall time.
func (s *system) advance(ctx context.Context, ms int64, realtime bool) error {
	start := time.Now()
	for i := range ms {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.sched.Advance(s.msToCycles(1))
		if realtime {
			time.Sleep(time.Until(start.Add(time.Duration(i+1) * time.Millisecond)))
		}
	}
	return nil
}

var errMismatch = errors.New("read value mismatch")

func (s *system) exec(ctx context.Context, op scriptOp) error {
	switch op.Op {
	case "w16":
		s.dsp.Write16(op.Addr, uint16(op.Val))
	case "w32":
		s.dsp.Write32(op.Addr, op.Val)
	case "r16":
		return s.report(op, uint32(s.dsp.Read16(op.Addr)), 4)
	case "r32":
		return s.report(op, s.dsp.Read32(op.Addr), 8)
	case "poke8":
		s.ram.Write8(op.Addr, uint8(op.Val))
	case "fill":
		s.ram.Fill(op.Addr, int(op.Len), uint8(op.Val))
	case "tone":
		writeTone(s.ram, op.Addr, op.Len, op.Freq, s.cfg.DSP.SampleRate)
	case "advance":
		if op.MS != 0 {
			return s.advance(ctx, op.MS, false)
		}
		s.sched.Advance(op.Cycles)
	case "wait_mail":
		return s.waitMail(ctx, op.Timeout)
	default:
		return fmt.Errorf("unknown op")
	}
	return nil
}

func (s *system) report(op scriptOp, val uint32, digits int) error {
	fmt.Fprintf(s.out, "%s %08x = %0*x\n", op.Op, op.Addr, digits, val)
	if op.Expect != nil && *op.Expect != val {
		return fmt.Errorf("%w: got %0*x, want %0*x", errMismatch, digits, val, digits, *op.Expect)
	}
	return nil
}

// waitMail waits for the coprocessor to post a mail, running the timeline so
// that the interrupts it raises get delivered.
func (s *system) waitMail(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		posted := s.coproc.ReadMailboxHigh(false)&0x8000 != 0
		s.sched.Advance(s.msToCycles(1) / 10)
		if posted {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no mail from DSP after %v", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Microsecond):
		}
	}
}

// writeTone writes n bytes of a stereo square wave at freq Hz into main
// memory, in the DSP sample format (big-endian signed 16-bit).
func writeTone(ram *hw.MainRAM, addr, n, freq, sampleRate uint32) {
	const amplitude = 0x2000

	period := float64(sampleRate) / float64(freq)
	for i := range n / 4 {
		sample := int16(amplitude)
		if math.Mod(float64(i), period) >= period/2 {
			sample = -amplitude
		}
		off := addr + i*4
		for ch := range uint32(2) {
			ram.Write8(off+ch*2, uint8(uint16(sample)>>8))
			ram.Write8(off+ch*2+1, uint8(sample))
		}
	}
}

func loadScript(path string) ([]scriptOp, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseScript(buf)
}

func loadConfig(path string, wii bool) emu.Config {
	cfg, err := emu.LoadConfig(path)
	checkf(err, "failed to load configuration")
	if wii {
		cfg.DSP.Wii = true
	}
	return cfg
}

func runMain(args Run) {
	cfg := loadConfig(args.Config, args.Wii)
	if args.WAV != "" {
		cfg.Audio.WAV = args.WAV
	}
	if args.Play {
		cfg.Audio.Play = true
	}

	ops, err := loadScript(args.Script)
	checkf(err, "failed to load script")

	var outputs []hw.AudioOutput
	if cfg.Audio.WAV != "" {
		w, err := wavout.Create(cfg.Audio.WAV, int(cfg.Audio.OutputRate))
		checkf(err, "failed to create wav output")
		defer func() {
			checkf(w.Close(), "failed to write wav output")
		}()
		outputs = append(outputs, w)
	}
	if cfg.Audio.Play {
		o, err := openSDLOutput(int(cfg.Audio.OutputRate))
		checkf(err, "failed to open audio device")
		defer o.Close()
		outputs = append(outputs, o)
	}

	sys, err := newSystem(cfg, os.Stdout, outputs...)
	checkf(err, "failed to create system")
	defer sys.dsp.Shutdown()

	if args.Trace != nil {
		defer args.Trace.Close()
		sys.dsp.SetTrace(args.Trace)
	}

	err = sys.run(context.Background(), ops, time.Duration(args.MS)*time.Millisecond, cfg.Audio.Play)
	checkf(err, "script failed")

	log.ModEmu.InfoZ("done").
		Int64("cycles", sys.sched.Now()).
		Uint64("frames", sys.mixer.Frames()).
		Int("asserts", sys.dsp.Asserts).
		End()
}

func dumpMain(args Dump) {
	cfg := loadConfig(args.Config, args.Wii)
	ops, err := loadScript(args.Script)
	checkf(err, "failed to load script")

	sys, err := newSystem(cfg, os.Stderr)
	checkf(err, "failed to create system")
	defer sys.dsp.Shutdown()

	err = sys.run(context.Background(), ops, 0, false)
	checkf(err, "script failed")

	var e jx.Encoder
	e.SetIdent(2)
	state := sys.dsp.State()
	state.Encode(&e)
	fmt.Println(string(e.Bytes()))
}

// configMain prints the effective configuration to w, and saves it if asked.
// A configuration file that doesn't exist yet starts from the defaults.
func configMain(args Config, w io.Writer) {
	cfg := emu.DefaultConfig()
	if _, err := os.Stat(args.Config); args.Config == "" || err == nil {
		cfg = loadConfig(args.Config, false)
	}
	if args.Wii {
		cfg.DSP.Wii = true
	}
	if args.Save {
		checkf(emu.SaveConfig(args.Config, cfg), "failed to save configuration")
	}

	buf, err := toml.Marshal(cfg)
	checkf(err, "failed to encode configuration")
	w.Write(buf)
}
