package analyzer

import "math"

const (
	timebaseMin    = 100
	timebaseAlpha  = 0.05
	timebasePeriod = 4 // periods of the dominant tone kept on screen
)

// Timebase sizes the displayed waveform window from the dominant frequency.
type Timebase struct {
	sampleRate float64
	block      int
	display    float64
}

// NewTimebase starts with half a block on screen.
func NewTimebase(sampleRate float64, block int) *Timebase {
	return &Timebase{
		sampleRate: sampleRate,
		block:      block,
		display:    float64(block / 2),
	}
}

// Target returns the sample count that shows about four periods of freq,
// clamped to [100, block]. Zero frequency or a squelched cycle asks for
// half a block.
func (tb *Timebase) Target(freq float64, squelched bool) int {
	if squelched || freq <= 0 {
		return tb.block / 2
	}

	target := int(timebasePeriod * tb.sampleRate / freq)
	if target < timebaseMin {
		target = timebaseMin
	}
	if target > tb.block {
		target = tb.block
	}
	return target
}

// Update low-pass filters the display count toward the target, or pins it
// to half a block when auto timebase is off.
func (tb *Timebase) Update(freq float64, squelched, enabled bool) {
	if !enabled {
		tb.display = float64(tb.block / 2)
		return
	}

	target := float64(tb.Target(freq, squelched))
	tb.display = (1-timebaseAlpha)*tb.display + timebaseAlpha*target
}

// Display returns the number of samples to draw.
func (tb *Timebase) Display() int {
	return int(math.Round(tb.display))
}
