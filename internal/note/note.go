// Package note maps frequencies to 12-tone equal temperament note names
// referenced to A4 = 440 Hz.
package note

import (
	"fmt"
	"math"
)

// None is printed for frequencies that have no note.
const None = "---"

var names = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Note is a MIDI-style note number. The zero value is "no note".
type Note struct {
	Number int
	valid  bool
}

// FromFrequency returns the nearest note to freq.
func FromFrequency(freq float64) Note {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return Note{}
	}

	n := int(math.Round(12*math.Log2(freq/440) + 69))
	return Note{Number: n, valid: true}
}

// Valid reports whether the note was derived from a positive frequency.
func (n Note) Valid() bool {
	return n.valid
}

// Name returns the chromatic name without octave.
func (n Note) Name() string {
	if !n.valid {
		return None
	}
	return names[mod12(n.Number)]
}

// Octave returns the scientific pitch octave (A4 is octave 4).
func (n Note) Octave() int {
	return (n.Number-mod12(n.Number))/12 - 1
}

// Frequency returns the exact pitch of the note.
func (n Note) Frequency() float64 {
	if !n.valid {
		return 0
	}
	return 440 * math.Pow(2, float64(n.Number-69)/12)
}

func (n Note) String() string {
	if !n.valid {
		return None
	}
	return fmt.Sprintf("%s%d", n.Name(), n.Octave())
}

// Cents returns how far freq is from its nearest note, in cents.
func Cents(freq float64) float64 {
	n := FromFrequency(freq)
	if !n.valid {
		return 0
	}
	return 1200 * math.Log2(freq/n.Frequency())
}

func mod12(n int) int {
	m := n % 12
	if m < 0 {
		m += 12
	}
	return m
}
