package config

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*Config, map[string]bool) {
	t.Helper()

	c := Default()
	fs := flag.NewFlagSet("audiolab", flag.ContinueOnError)
	c.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return c, set
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 44100, c.SampleRate)
	assert.Equal(t, 4096, c.RecBlock)
	assert.Equal(t, 2048, c.PlayBlock)
	assert.Equal(t, 500.0, c.Squelch)
}

func TestFlags(t *testing.T) {
	c, set := parse(t, "-block", "2048", "-squelch", "120", "-loopback", "-listen", ":9000", "-wave", "Square", "-gen")

	assert.Equal(t, 2048, c.RecBlock)
	assert.Equal(t, 120.0, c.Squelch)
	assert.True(t, c.Loopback)
	assert.Equal(t, ":9000", c.Listen)
	assert.True(t, c.GenOn)
	require.NoError(t, c.Validate())
	assert.True(t, set["block"])
	assert.False(t, set["rate"])
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("AUDIOLAB_LISTEN", ":7000")
	t.Setenv("AUDIOLAB_SQUELCH", "42.5")
	t.Setenv("AUDIOLAB_FPS", "60")
	t.Setenv("AUDIOLAB_DEVICE", "USB")

	c, set := parse(t, "-fps", "10")
	require.NoError(t, c.ApplyEnv(set))

	assert.Equal(t, ":7000", c.Listen)
	assert.Equal(t, 42.5, c.Squelch)
	assert.Equal(t, 10, c.FPS, "command line wins over environment")
	assert.Equal(t, "USB", c.Input)
}

func TestApplyEnvBadNumber(t *testing.T) {
	t.Setenv("AUDIOLAB_RATE", "fast")

	c, set := parse(t)
	assert.Error(t, c.ApplyEnv(set))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"rate", func(c *Config) { c.SampleRate = 0 }},
		{"block not power of two", func(c *Config) { c.RecBlock = 4000 }},
		{"play block", func(c *Config) { c.PlayBlock = 0 }},
		{"fps", func(c *Config) { c.FPS = 0 }},
		{"squelch", func(c *Config) { c.Squelch = -1 }},
		{"wav and loopback", func(c *Config) { c.WavFile = "a.wav"; c.Loopback = true }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"waveform", func(c *Config) { c.Wave = "noise" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			assert.Error(t, c.Validate())
		})
	}
}
