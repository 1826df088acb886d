package spectrum

import "math"

const (
	// LogAxisMin is the lowest frequency shown on the log spectrum axis.
	LogAxisMin = 20.0
)

// Hann returns the Hann window coefficients for n points.
func Hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// Framer windows the latest sample block into a complex sequence ready for
// Transform. Buffers are allocated once at construction.
type Framer struct {
	window  []float64
	scratch []complex128
}

// NewFramer creates a framer for blocks of size n.
func NewFramer(n int) (*Framer, error) {
	if !IsPowerOfTwo(n) {
		return nil, &InvalidSizeError{N: n}
	}

	return &Framer{
		window:  Hann(n),
		scratch: make([]complex128, n),
	}, nil
}

// Size returns the frame length.
func (f *Framer) Size() int {
	return len(f.window)
}

// Frame writes samples*hann into the scratch buffer and returns it. Samples
// beyond the frame length are ignored, missing ones are zero.
func (f *Framer) Frame(samples []int16) []complex128 {
	for i := range f.scratch {
		var s float64
		if i < len(samples) {
			s = float64(samples[i])
		}
		f.scratch[i] = complex(s*f.window[i], 0)
	}
	return f.scratch
}

// BinFrequency maps a transform bin to its frequency in Hz.
func BinFrequency(bin, n int, sampleRate float64) float64 {
	half := float64(n) / 2
	return float64(bin) / half * (sampleRate / 2)
}

// LogPosition maps a frequency to [0, 1] on the LogAxisMin..Nyquist log
// axis. Non-positive frequencies are treated as 1 Hz and fall below zero.
func LogPosition(freq, sampleRate float64) float64 {
	if freq <= 0 {
		freq = 1
	}
	lo := math.Log10(LogAxisMin)
	hi := math.Log10(sampleRate / 2)
	return (math.Log10(freq) - lo) / (hi - lo)
}

// LogFrequency is the inverse of LogPosition.
func LogFrequency(pos, sampleRate float64) float64 {
	lo := math.Log10(LogAxisMin)
	hi := math.Log10(sampleRate / 2)
	return math.Pow(10, lo+pos*(hi-lo))
}
