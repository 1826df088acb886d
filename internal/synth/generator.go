package synth

import (
	"encoding/binary"
	"math"
	"sync"

	"audiolab/internal/metrics"
)

const (
	SweepLow      = 20.0   // Hz
	SweepHigh     = 5000.0 // Hz
	SweepDuration = 20.0   // seconds per direction
	Amplitude     = 12000
)

// State is a copy of the generator state for presentation.
type State struct {
	On           bool
	Paused       bool
	Waveform     Waveform
	SweepElapsed float64 // seconds into the current sweep direction
	SweepUp      bool
	Phase        float64
	Frequency    float64
}

// Generator is a phase-accumulator oscillator whose frequency sweeps
// linearly between SweepLow and SweepHigh, reversing at each end.
//
// The output callback and the presentation commands may run on different
// goroutines: every access goes through mu.
type Generator struct {
	mu sync.Mutex

	sampleRate float64
	halfPeriod int64 // sweep length in samples
	sweepPos   int64

	on       bool
	paused   bool
	waveform Waveform
	sweepUp  bool
	phase    float64
	freq     float64
}

// NewGenerator returns a generator that is off, sine, sweeping up from
// SweepLow.
func NewGenerator(sampleRate float64) *Generator {
	half := int64(math.Round(SweepDuration * sampleRate))
	if half < 1 {
		half = 1
	}

	return &Generator{
		sampleRate: sampleRate,
		halfPeriod: half,
		sweepUp:    true,
		freq:       SweepLow,
	}
}

// SampleRate returns the output rate the generator was built for.
func (g *Generator) SampleRate() float64 {
	return g.sampleRate
}

// Fill synthesizes len(out) samples. While the generator is off it writes
// silence and its state does not move.
func (g *Generator) Fill(out []int16) int {
	g.mu.Lock()

	if !g.on {
		g.mu.Unlock()
		clear(out)
		return len(out)
	}

	const turn = 2 * math.Pi

	for i := range out {
		if !g.paused {
			g.advanceSweep()
		}

		out[i] = int16(math.Round(Amplitude * Shape(g.waveform, g.phase)))

		// the step exceeds a turn when freq is above the sample rate
		g.phase = math.Mod(g.phase+turn*g.freq/g.sampleRate, turn)
	}

	freq := g.freq
	g.mu.Unlock()

	metrics.EgressBlocksTotal.Inc()
	metrics.GeneratorFrequency.Set(freq)

	return len(out)
}

// advanceSweep moves the sweep clock one sample forward. Called with mu held.
func (g *Generator) advanceSweep() {
	g.sweepPos++
	if g.sweepPos >= g.halfPeriod {
		g.sweepPos = 0
		g.sweepUp = !g.sweepUp
	}

	progress := float64(g.sweepPos) / float64(g.halfPeriod)
	if g.sweepUp {
		g.freq = SweepLow + (SweepHigh-SweepLow)*progress
	} else {
		g.freq = SweepHigh - (SweepHigh-SweepLow)*progress
	}
}

// Read fills p with little-endian signed 16-bit samples. A trailing odd
// byte is left untouched.
func (g *Generator) Read(p []byte) (int, error) {
	var chunk [256]int16

	n := 0
	for len(p)-n >= 2 {
		count := (len(p) - n) / 2
		if count > len(chunk) {
			count = len(chunk)
		}

		g.Fill(chunk[:count])
		for _, s := range chunk[:count] {
			binary.LittleEndian.PutUint16(p[n:], uint16(s))
			n += 2
		}
	}

	return n, nil
}

// SetOn switches the generator on or off. Switching off freezes the sweep
// where it is.
func (g *Generator) SetOn(on bool) {
	g.mu.Lock()
	g.on = on
	g.mu.Unlock()
}

// Toggle flips the on state and returns the new value.
func (g *Generator) Toggle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.on = !g.on
	return g.on
}

// TogglePaused holds or releases the sweep. The tone keeps sounding at the
// held frequency, so the phase keeps advancing while paused.
func (g *Generator) TogglePaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = !g.paused
	return g.paused
}

func (g *Generator) SetWaveform(w Waveform) {
	if w < Sine || w > Triangle {
		return
	}
	g.mu.Lock()
	g.waveform = w
	g.mu.Unlock()
}

// State returns a copy of the current state.
func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	return State{
		On:           g.on,
		Paused:       g.paused,
		Waveform:     g.waveform,
		SweepElapsed: float64(g.sweepPos) / g.sampleRate,
		SweepUp:      g.sweepUp,
		Phase:        g.phase,
		Frequency:    g.freq,
	}
}
