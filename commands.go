package main

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"audiolab/internal/analyzer"
	"audiolab/internal/metrics"
	"audiolab/internal/synth"
)

const (
	squelchStep   = 50
	gainStep      = 0.05
	scopeGainStep = 0.2
)

var ErrUnknownCommand = errors.New("unknown command")

// Controls applies the named user commands to the analyzer and the tone
// generator. The keyboard, the mouse and the HTTP surface all go through Do.
type Controls struct {
	log      *zap.Logger
	engine   *analyzer.Engine
	gen      *synth.Generator
	playback *Playback // nil without an output device
}

func NewControls(engine *analyzer.Engine, gen *synth.Generator, playback *Playback, logger *zap.Logger) *Controls {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controls{
		log:      logger.Named("controls"),
		engine:   engine,
		gen:      gen,
		playback: playback,
	}
}

type command func(c *Controls) string

var commands = map[string]command{
	"pause": func(c *Controls) string {
		return onOff("analyzer paused", c.engine.TogglePause())
	},
	"sweep_pause": func(c *Controls) string {
		return onOff("sweep paused", c.gen.TogglePaused())
	},
	"reset_peaks": func(c *Controls) string {
		c.engine.ResetPeaks()
		return "peaks reset"
	},
	"trigger": func(c *Controls) string {
		return onOff("trigger lock", c.engine.ToggleTriggerLock())
	},
	"timebase": func(c *Controls) string {
		return onOff("auto timebase", c.engine.ToggleAutoTimebase())
	},
	"scope_gain_up": func(c *Controls) string {
		return fmt.Sprintf("scope gain %.2fx", c.engine.AdjustScopeGain(scopeGainStep))
	},
	"scope_gain_down": func(c *Controls) string {
		return fmt.Sprintf("scope gain %.2fx", c.engine.AdjustScopeGain(-scopeGainStep))
	},
	"squelch_up": func(c *Controls) string {
		return fmt.Sprintf("squelch %.0f", c.engine.AdjustSquelch(squelchStep))
	},
	"squelch_down": func(c *Controls) string {
		return fmt.Sprintf("squelch %.0f", c.engine.AdjustSquelch(-squelchStep))
	},
	"gain_up": func(c *Controls) string {
		return fmt.Sprintf("spectrum gain %.2fx", c.engine.AdjustVisualGain(gainStep))
	},
	"gain_down": func(c *Controls) string {
		return fmt.Sprintf("spectrum gain %.2fx", c.engine.AdjustVisualGain(-gainStep))
	},
	"wave_sine":     setWaveform(synth.Sine),
	"wave_square":   setWaveform(synth.Square),
	"wave_sawtooth": setWaveform(synth.Sawtooth),
	"wave_triangle": setWaveform(synth.Triangle),
	"generator": func(c *Controls) string {
		on := c.gen.Toggle()
		if c.playback != nil {
			if err := c.playback.Sync(); err != nil {
				c.log.Warn("playback", zap.Error(err))
			}
		}
		return onOff("generator", on)
	},
}

func setWaveform(w synth.Waveform) command {
	return func(c *Controls) string {
		c.gen.SetWaveform(w)
		return "waveform " + w.String()
	}
}

func onOff(what string, on bool) string {
	if on {
		return what + " ON"
	}
	return what + " OFF"
}

// CommandNames returns the known command names in sorted order.
func CommandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Do runs the named command and returns a short description of the new
// state. origin labels the metric ("key", "mouse", "http", "ws").
func (c *Controls) Do(name, origin string) (string, error) {
	cmd, ok := commands[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	status := cmd(c)

	metrics.CommandsTotal.WithLabelValues(name, origin).Inc()
	c.log.Debug("command", zap.String("name", name), zap.String("origin", origin), zap.String("status", status))
	return status, nil
}
