package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimebaseTarget(t *testing.T) {
	tb := NewTimebase(44100, 4096)

	tests := []struct {
		name      string
		freq      float64
		squelched bool
		want      int
	}{
		{"four periods", 1000, false, 176},
		{"clamped high", 20, false, 4096},
		{"clamped low", 5000, false, 100},
		{"no tone", 0, false, 2048},
		{"squelched", 1000, true, 2048},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tb.Target(tt.freq, tt.squelched))
		})
	}
}

func TestTimebaseConverges(t *testing.T) {
	for _, freq := range []float64{50, 440, 1000, 8000} {
		tb := NewTimebase(44100, 4096)
		assert.Equal(t, 2048, tb.Display())

		for i := 0; i < 1000; i++ {
			tb.Update(freq, false, true)
		}

		want := float64(tb.Target(freq, false))
		assert.InDelta(t, want, tb.display, 0.01, "freq %v", freq)
		assert.InDelta(t, want, float64(tb.Display()), 0.5)
	}
}

func TestTimebaseSmoothing(t *testing.T) {
	tb := NewTimebase(44100, 4096)

	tb.Update(1000, false, true)
	assert.InDelta(t, 0.95*2048+0.05*176, tb.display, 1e-9)
}

func TestTimebaseDisabledPins(t *testing.T) {
	tb := NewTimebase(44100, 4096)
	for i := 0; i < 50; i++ {
		tb.Update(1000, false, true)
	}
	assert.NotEqual(t, 2048, tb.Display())

	tb.Update(1000, false, false)
	assert.Equal(t, 2048, tb.Display())
}
