package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap/zapcore"

	"audiolab/internal/spectrum"
	"audiolab/internal/synth"
)

// Config holds the command line and environment settings of the program.
type Config struct {
	SampleRate int
	RecBlock   int
	PlayBlock  int
	Squelch    float64
	FPS        int

	Input    string // input device (index or name prefix)
	Output   string // output device (index or name prefix)
	WavFile  string // analyse a WAV file instead of a device
	Loopback bool   // feed the generator straight into the analyzer
	Wave     string // initial generator waveform
	GenOn    bool   // start with the generator on
	NoUI     bool
	List     bool

	Listen   string // optional HTTP listener, e.g. ":8080"
	LogLevel string
	LogFile  string
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		SampleRate: 44100,
		RecBlock:   4096,
		PlayBlock:  2048,
		Squelch:    500,
		FPS:        30,
		Wave:       "sine",
		LogLevel:   "info",
	}
}

// RegisterFlags binds c to fs. Current values of c are the flag defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.SampleRate, "rate", c.SampleRate, "sample rate (in Hz)")
	fs.IntVar(&c.RecBlock, "block", c.RecBlock, "analysis block size (power of two)")
	fs.IntVar(&c.PlayBlock, "playblock", c.PlayBlock, "output block size (in samples)")
	fs.Float64Var(&c.Squelch, "squelch", c.Squelch, "squelch threshold (RMS, 16-bit units)")
	fs.IntVar(&c.FPS, "fps", c.FPS, "analysis/refresh rate (cycles per second)")
	fs.StringVar(&c.Input, "device", c.Input, "input audio device (index or name prefix)")
	fs.StringVar(&c.Output, "play", c.Output, "output audio device for the tone generator")
	fs.StringVar(&c.WavFile, "wav", c.WavFile, "analyse a WAV file instead of a live input")
	fs.BoolVar(&c.Loopback, "loopback", c.Loopback, "analyse the tone generator output (no audio devices)")
	fs.StringVar(&c.Wave, "wave", c.Wave, "generator waveform (sine, square, sawtooth, triangle)")
	fs.BoolVar(&c.GenOn, "gen", c.GenOn, "start with the tone generator on")
	fs.BoolVar(&c.NoUI, "noui", c.NoUI, "no user interface, print the readout to stdout")
	fs.BoolVar(&c.List, "list", c.List, "list audio devices")
	fs.StringVar(&c.Listen, "listen", c.Listen, "HTTP address for metrics, snapshots and commands (empty: off)")
	fs.StringVar(&c.LogLevel, "loglevel", c.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&c.LogFile, "log", c.LogFile, "log file (default: stderr, discarded while the UI is up)")
}

// ApplyEnv overrides settings from AUDIOLAB_* variables. Names in set (as
// returned by flag.Visit) were given on the command line and win.
func (c *Config) ApplyEnv(set map[string]bool) error {
	str := func(flagName, key string, dst *string) {
		if v := os.Getenv(key); v != "" && !set[flagName] {
			*dst = v
		}
	}
	num := func(flagName, key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" || set[flagName] {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("device", "AUDIOLAB_DEVICE", &c.Input)
	str("play", "AUDIOLAB_PLAY", &c.Output)
	str("listen", "AUDIOLAB_LISTEN", &c.Listen)
	str("loglevel", "AUDIOLAB_LOG_LEVEL", &c.LogLevel)
	str("log", "AUDIOLAB_LOG_FILE", &c.LogFile)
	str("wave", "AUDIOLAB_WAVE", &c.Wave)

	if err := num("rate", "AUDIOLAB_RATE", &c.SampleRate); err != nil {
		return err
	}
	if err := num("fps", "AUDIOLAB_FPS", &c.FPS); err != nil {
		return err
	}

	if v := os.Getenv("AUDIOLAB_SQUELCH"); v != "" && !set["squelch"] {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("AUDIOLAB_SQUELCH: %w", err)
		}
		c.Squelch = f
	}

	return nil
}

// Validate checks that the settings can drive the engine.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", c.SampleRate)
	}
	if !spectrum.IsPowerOfTwo(c.RecBlock) {
		return fmt.Errorf("block size %d is not a power of two", c.RecBlock)
	}
	if c.PlayBlock <= 0 {
		return fmt.Errorf("invalid output block size %d", c.PlayBlock)
	}
	if c.FPS <= 0 || c.FPS > 1000 {
		return fmt.Errorf("invalid fps %d", c.FPS)
	}
	if c.Squelch < 0 {
		return fmt.Errorf("invalid squelch %v", c.Squelch)
	}
	if c.WavFile != "" && c.Loopback {
		return fmt.Errorf("-wav and -loopback are exclusive")
	}
	if _, err := synth.ParseWaveform(c.Wave); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}
