package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"dspi/emu/log"
)

type mode byte

const (
	runMode     mode = iota // Run a register script
	dumpMode                // Run a register script and dump the DSP state
	configMode              // Show or save the configuration
	versionMode             // Show dspi version
)

type (
	CLI struct {
		Run     Run     `cmd:"" help:"Run a register script, then let the system run."`
		Dump    Dump    `cmd:"" help:"Run a register script and print the DSP interface state as JSON."`
		Config  Config  `cmd:"" help:"Print the effective configuration, optionally saving it."`
		Version Version `cmd:"" help:"Show dspi version."`

		Log logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		mode mode
	}

	Run struct {
		Script string `arg:"" name:"/path/to/script.json" help:"${script_help}" type:"existingfile"`

		Config string   `name:"config" help:"${config_help}" type:"existingfile"`
		Wii    bool     `name:"wii" help:"Wii mode: ARAM is mapped onto main memory."`
		MS     int64    `name:"ms" help:"Milliseconds to run after the script." default:"0"`
		WAV    string   `name:"wav" help:"Write audio output to a WAV file." type:"path"`
		Play   bool     `name:"play" help:"Play audio output (runs in real time)."`
		Trace  *outfile `name:"trace" help:"Write register access trace." placeholder:"FILE|stdout|stderr"`
	}

	Dump struct {
		Script string `arg:"" name:"/path/to/script.json" help:"${script_help}" type:"existingfile"`

		Config string `name:"config" help:"${config_help}" type:"existingfile"`
		Wii    bool   `name:"wii" help:"Wii mode: ARAM is mapped onto main memory."`
	}

	Config struct {
		Config string `name:"config" help:"${config_help}" type:"path"`
		Wii    bool   `name:"wii" help:"Wii mode: ARAM is mapped onto main memory."`
		Save   bool   `name:"save" help:"Write the configuration file."`
	}

	Version struct{}
)

var vars = kong.Vars{
	"script_help": "JSON script of register accesses.",
	"config_help": "Configuration file (defaults to config.toml in the dspi config directory).",
	"log_help":    "Enable logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("dspi"),
		kong.Description("DSP interface emulator core."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch ctx.Command() {
	case "dump </path/to/script.json>":
		cfg.mode = dumpMode
	case "config":
		cfg.mode = configMode
	case "version":
		cfg.mode = versionMode
	default:
		cfg.mode = runMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if strings.HasPrefix(ctx.Command(), "run") || strings.HasPrefix(ctx.Command(), "dump") {
		loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
		var strs []string
		for _, m := range log.ModuleNames() {
			strs = append(strs, "    - "+m)
		}

		fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	}

	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// Decode decodes FILE|stdout|stderr into an io.WriteCloser
// that writes to that file.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	f.name = tok.Value.(string)
	f.close = func() error { return nil }

	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
		f.close = fd.Close
	}
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
