// Package spectrum implements the frequency transform, windowing and
// frequency axis helpers used by the analyzer.
package spectrum

import (
	"fmt"
	"math"
)

// InvalidSizeError is returned when a transform is requested on a length
// that is not a power of two.
type InvalidSizeError struct {
	N int
}

func (e *InvalidSizeError) Error() string {
	return fmt.Sprintf("spectrum: transform size %d is not a power of two", e.N)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Transform performs an in-place forward FFT of x (Cooley-Tukey, radix 2).
// A length of one is the identity.
func Transform(x []complex128) error {
	n := len(x)
	if !IsPowerOfTwo(n) {
		return &InvalidSizeError{N: n}
	}
	if n == 1 {
		return nil
	}

	// Bit reversal
	j := 0
	for i := 0; i < n; i++ {
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
		m := n >> 1
		for m >= 1 && j >= m {
			j -= m
			m >>= 1
		}
		j += m
	}

	for stage := 2; stage <= n; stage <<= 1 {
		half := stage / 2
		theta := -2.0 * math.Pi / float64(stage)
		w := complex(math.Cos(theta), math.Sin(theta))

		for k := 0; k < n; k += stage {
			tw := complex(1, 0)
			for j := 0; j < half; j++ {
				i1 := k + j
				i2 := i1 + half

				t := tw * x[i2]
				x[i2] = x[i1] - t
				x[i1] += t

				tw *= w
			}
		}
	}

	return nil
}
