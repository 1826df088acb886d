// Package synth implements the swept test-tone generator that drives the
// audio output.
package synth

import (
	"fmt"
	"math"
	"strings"
)

// Waveform selects the oscillator shape.
type Waveform int

const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

var waveformNames = [...]string{"SINE", "SQUARE", "SAWTOOTH", "TRIANGLE"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
	return waveformNames[w]
}

// ParseWaveform accepts the names returned by String, in any case.
func ParseWaveform(s string) (Waveform, error) {
	for i, n := range waveformNames {
		if strings.EqualFold(s, n) {
			return Waveform(i), nil
		}
	}
	return Sine, fmt.Errorf("unknown waveform %q", s)
}

// Shape evaluates waveform w at phase (radians). The result is in [-1, 1].
func Shape(w Waveform, phase float64) float64 {
	switch w {
	case Square:
		if math.Sin(phase) >= 0 {
			return 1
		}
		return -1
	case Sawtooth:
		return math.Mod(phase, 2*math.Pi)/math.Pi - 1
	case Triangle:
		return 2*math.Abs(frac(phase/(2*math.Pi))*2-1) - 1
	default:
		return math.Sin(phase)
	}
}

// frac is the C fmod(x, 1): keeps the sign of x.
func frac(x float64) float64 {
	return math.Mod(x, 1)
}
