package analyzer

import "math"

// RMS returns the root mean square of a raw sample block.
func RMS(block []int16) float64 {
	if len(block) == 0 {
		return 0
	}

	sum := 0.0
	for _, s := range block {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(block)))
}

// Squelched reports whether a block with the given rms is treated as quiet.
func Squelched(rms, threshold float64) bool {
	return rms <= threshold
}

// Trigger keeps the waveform display offset stable between cycles.
type Trigger struct {
	offset int
}

// Find returns the display offset for block. With lock enabled it is the
// first rising zero crossing; when the block has none the previous offset
// is kept. With lock disabled the offset is 0.
func (t *Trigger) Find(block []int16, lock bool) int {
	if !lock {
		t.offset = 0
		return 0
	}

	for i := 1; i < len(block)-1; i++ {
		if block[i-1] < 0 && block[i] >= 0 {
			t.offset = i
			break
		}
	}

	return t.offset
}

// Offset returns the last offset produced by Find.
func (t *Trigger) Offset() int {
	return t.offset
}
