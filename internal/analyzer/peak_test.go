package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeakHoldReset(t *testing.T) {
	p := NewPeakHold(8)
	for _, v := range p.Values() {
		assert.Equal(t, PeakFloor, v)
	}

	p.Observe([]float64{0, 50, 60, 70, 80, 90, 100, 110})
	p.Reset()
	for _, v := range p.Values() {
		assert.Equal(t, PeakFloor, v)
	}
}

func TestPeakHoldObserveKeepsMaximum(t *testing.T) {
	p := NewPeakHold(4)

	p.Observe([]float64{99, 40, 10, 30})
	assert.Equal(t, []float64{PeakFloor, 40, 10, 30}, p.Values(), "bin 0 is never raised")

	p.Observe([]float64{99, 20, 15, 30})
	assert.Equal(t, []float64{PeakFloor, 40, 15, 30}, p.Values())
}

func TestPeakHoldDecay(t *testing.T) {
	p := NewPeakHold(3)
	p.Observe([]float64{0, 80, 60})

	const k = 250
	for i := 0; i < k; i++ {
		p.Decay()
	}

	f := math.Pow(PeakDecay, k)
	assert.InDelta(t, PeakFloor*f, p.Values()[0], 1e-6)
	assert.InDelta(t, 80*f, p.Values()[1], 1e-9)
	assert.InDelta(t, 60*f, p.Values()[2], 1e-9)
}

func TestDominant(t *testing.T) {
	bins := make([]complex128, 16)
	bins[0] = complex(1e9, 0) // DC ignored
	bins[3] = complex(30, 40)
	bins[5] = complex(0, 50)
	bins[9] = complex(1e6, 0) // upper half ignored

	db := make([]float64, 8)
	bin, maxDB := Dominant(bins, db)

	assert.Equal(t, 3, bin, "first maximum wins")
	assert.InDelta(t, 20*math.Log10(50+1e-9), maxDB, 1e-9)
	assert.InDelta(t, maxDB, db[5], 1e-9)
	assert.Equal(t, 0.0, db[0])
}

func TestDominantSilence(t *testing.T) {
	bins := make([]complex128, 8)
	db := make([]float64, 4)

	bin, maxDB := Dominant(bins, db)

	assert.Equal(t, 1, bin)
	assert.InDelta(t, -180, maxDB, 1e-9)
	for i := 1; i < 4; i++ {
		require.False(t, math.IsInf(db[i], 0))
	}
}

func TestMarkerTrack(t *testing.T) {
	var m Marker
	m.Track(0.5, 100, 1234)

	assert.InDelta(t, 0.15, m.Position, 1e-12)
	assert.InDelta(t, 30, m.DB, 1e-12)
	assert.Equal(t, 1234.0, m.Frequency, "frequency is not smoothed")

	m.Track(0.5, 100, 880)
	assert.InDelta(t, 0.7*0.15+0.15, m.Position, 1e-12)
	assert.InDelta(t, 0.7*30+30, m.DB, 1e-12)
	assert.Equal(t, 880.0, m.Frequency)
}

func TestMarkerFade(t *testing.T) {
	m := Marker{DB: 40, Frequency: 440}

	m.Fade()
	assert.InDelta(t, 39.6, m.DB, 1e-12)
	assert.Equal(t, 440.0, m.Frequency)

	for m.Frequency != 0 {
		m.Fade()
	}
	assert.Equal(t, MarkerFloor, m.DB)

	m.Fade()
	assert.Equal(t, MarkerFloor, m.DB)
	assert.Equal(t, 0.0, m.Frequency)
}
