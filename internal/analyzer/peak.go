package analyzer

import (
	"math"
	"math/cmplx"
)

const (
	PeakFloor = -1000.0 // dB, value of a freshly reset peak-hold entry
	PeakDecay = 0.9995  // applied to the whole table every cycle

	MarkerFloor = 20.0 // dB; below it the marker reports no tone
	MarkerDecay = 0.99 // per quiet cycle
	MarkerAlpha = 0.3  // weight of the new value in the marker EMA

	magnitudeEpsilon = 1e-9
)

// PeakHold is a per-bin running maximum of the spectrum in dB with slow
// multiplicative decay.
type PeakHold struct {
	db []float64
}

// NewPeakHold returns a reset table with bins entries.
func NewPeakHold(bins int) *PeakHold {
	p := &PeakHold{db: make([]float64, bins)}
	p.Reset()
	return p
}

// Reset sets every entry to PeakFloor.
func (p *PeakHold) Reset() {
	for i := range p.db {
		p.db[i] = PeakFloor
	}
}

// Observe raises entries where the cycle's dB table exceeds them. Bin 0
// (DC) is never raised.
func (p *PeakHold) Observe(db []float64) {
	n := min(len(db), len(p.db))
	for i := 1; i < n; i++ {
		if db[i] > p.db[i] {
			p.db[i] = db[i]
		}
	}
}

// Decay multiplies the whole table by PeakDecay.
func (p *PeakHold) Decay() {
	for i := range p.db {
		p.db[i] *= PeakDecay
	}
}

// Values exposes the table. Callers must not keep it across cycles.
func (p *PeakHold) Values() []float64 {
	return p.db
}

// Dominant converts the first half of a transformed block to dB, writing
// bins 1..n/2-1 into db, and returns the loudest bin. Bin 0 is skipped; a
// spectrum with nothing above PeakFloor yields bin 0.
func Dominant(bins []complex128, db []float64) (bin int, maxDB float64) {
	maxDB = PeakFloor
	half := len(bins) / 2
	if len(db) < half {
		half = len(db)
	}

	for i := 1; i < half; i++ {
		v := 20 * math.Log10(cmplx.Abs(bins[i])+magnitudeEpsilon)
		db[i] = v
		if v > maxDB {
			maxDB = v
			bin = i
		}
	}

	return bin, maxDB
}

// Marker is the smoothed dominant peak. Position is the normalised
// location on the log frequency axis.
type Marker struct {
	Position  float64 `json:"position"`
	DB        float64 `json:"db"`
	Frequency float64 `json:"frequency"`
}

// Track moves the marker toward the cycle's dominant peak. Position and
// level are smoothed, the frequency is taken as is.
func (m *Marker) Track(position, db, freq float64) {
	m.Position = (1-MarkerAlpha)*m.Position + MarkerAlpha*position
	m.DB = (1-MarkerAlpha)*m.DB + MarkerAlpha*db
	m.Frequency = freq
}

// Fade lets the marker sink during quiet cycles.
func (m *Marker) Fade() {
	m.DB *= MarkerDecay
	if m.DB < MarkerFloor {
		m.DB = MarkerFloor
		m.Frequency = 0
	}
}
