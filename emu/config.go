package emu

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"

	"dspi/hw/hwdefs"
)

type Config struct {
	DSP    DSPConfig    `toml:"dsp"`
	Timing TimingConfig `toml:"timing"`
	Audio  AudioConfig  `toml:"audio"`
}

type DSPConfig struct {
	Wii        bool   `toml:"wii"`
	SampleRate uint32 `toml:"sample_rate"`
}

type TimingConfig struct {
	CPUClock int64 `toml:"cpu_clock"`
}

type AudioConfig struct {
	OutputRate uint32 `toml:"output_rate"`
	WAV        string `toml:"wav"`
	Play       bool   `toml:"play"`
}

func DefaultConfig() Config {
	return Config{
		DSP: DSPConfig{
			SampleRate: hwdefs.DefaultSampleRate,
		},
		Timing: TimingConfig{
			CPUClock: hwdefs.DefaultCPUClock,
		},
		Audio: AudioConfig{
			OutputRate: 48000,
		},
	}
}

// ConfigDir is the dspi directory in the user configuration directory.
var ConfigDir = sync.OnceValue(func() string {
	return configdir.LocalConfig("dspi")
})

const cfgFilename = "config.toml"

// LoadConfig loads the configuration at path, on top of the default one. If
// path is empty, the configuration is loaded from the dspi config directory,
// if there's one.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = filepath.Join(ConfigDir(), cfgFilename)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undec := md.Undecoded(); len(undec) != 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	switch {
	case cfg.DSP.SampleRate == 0:
		return errors.New("dsp.sample_rate must be positive")
	case cfg.Audio.OutputRate == 0:
		return errors.New("audio.output_rate must be positive")
	case cfg.Timing.CPUClock < hwdefs.AudioDMARate:
		return fmt.Errorf("timing.cpu_clock must be at least %d", hwdefs.AudioDMARate)
	}
	return nil
}

// SaveConfig writes cfg at path, or in the dspi config directory if path is
// empty. Missing directories are created.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = filepath.Join(ConfigDir(), cfgFilename)
	}
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := configdir.MakePath(filepath.Dir(path)); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return os.WriteFile(path, buf, 0644)
}
