package main

import (
	"fmt"
	"math"
	"strings"

	"audiolab/internal/analyzer"
	"audiolab/internal/note"
	"audiolab/internal/spectrum"
	"audiolab/internal/synth"
)

const (
	dbMin = 20.0
	dbMax = 110.0
)

var bars = []rune(" ▁▂▃▄▅▆▇█")

const (
	traceRune  = '•'
	axisRune   = '─'
	markerRune = '┃'
)

// RenderScope draws the trace into a width x height character grid, one
// column per equally spaced sample. Full scale (32767) times gain reaches
// the top and bottom rows.
func RenderScope(trace []int16, gain float64, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	grid := newGrid(width, height, ' ')
	mid := height / 2
	for x := 0; x < width; x++ {
		grid[mid][x] = axisRune
	}

	if len(trace) > 0 {
		half := float64(height-1) / 2
		for x := 0; x < width; x++ {
			s := trace[x*len(trace)/width]
			y := int(math.Round(half - float64(s)*half/32767*gain))
			if y < 0 || y >= height {
				continue // clipped
			}
			grid[y][x] = traceRune
		}
	}

	return joinGrid(grid)
}

// scaleDB maps a level onto [0, 1] of the display range.
func scaleDB(db float64) float64 {
	return max(0, min(1, (db-dbMin)/(dbMax-dbMin)))
}

// RenderSpectrum draws the peak-hold table on a logarithmic frequency axis
// from 20 Hz to Nyquist, with the marker as a highlighted column. Bar
// heights use eighth-block runes.
func RenderSpectrum(snap *analyzer.Snapshot, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	gain := snap.Settings.VisualGain
	heights := make([]int, width) // in eighths of a row

	for i := 1; i < len(snap.PeakHold); i++ {
		db := snap.PeakHold[i]
		if db <= dbMin {
			continue
		}

		freq := spectrum.BinFrequency(i, snap.BlockSize, snap.SampleRate)
		pos := spectrum.LogPosition(freq, snap.SampleRate)
		if pos < 0 {
			continue
		}

		x := min(int(pos*float64(width)), width-1)
		h := int(scaleDB(db) * float64(height*8) * gain)
		heights[x] = max(heights[x], min(h, height*8))
	}

	markerX, markerH := -1, 0
	if m := snap.Marker; m.DB > dbMin && m.Frequency > 0 {
		markerX = max(0, min(int(m.Position*float64(width)), width-1))
		markerH = min(int(math.Ceil(scaleDB(m.DB)*float64(height)*gain)), height)
	}

	grid := newGrid(width, height, ' ')
	for x, h := range heights {
		for row := 0; row < height; row++ {
			fill := h - (height-1-row)*8 // eighths available in this row
			switch {
			case fill >= 8:
				grid[row][x] = bars[8]
			case fill > 0:
				grid[row][x] = bars[fill]
			}
		}
	}

	if markerX >= 0 {
		for row := height - markerH; row < height; row++ {
			grid[row][markerX] = markerRune
		}
	}

	return joinGrid(grid)
}

// RenderAxis labels the log frequency axis below the spectrum with ticks
// every quarter of its width.
func RenderAxis(width int, sampleRate float64) string {
	if width <= 0 {
		return ""
	}

	line := []rune(strings.Repeat(" ", width))
	for k := 0; k <= 4; k++ {
		pos := float64(k) / 4
		label := []rune(formatHz(spectrum.LogFrequency(pos, sampleRate)))
		if len(label) > width {
			continue
		}

		x := int(pos * float64(width-1))
		start := max(0, min(x-len(label)/2, width-len(label)))
		copy(line[start:], label)
	}
	return string(line)
}

func formatHz(f float64) string {
	if f >= 1000 {
		return fmt.Sprintf("%.1fk", f/1000)
	}
	return fmt.Sprintf("%.0f", f)
}

// RenderControls lists the settings with the keys that change them.
func RenderControls(s analyzer.Settings, g synth.State) string {
	var b strings.Builder

	line := func(label, value string) {
		fmt.Fprintf(&b, "%-19s %10s\n", label, value)
	}

	line("Squelch (Up/Down):", fmt.Sprintf("%.0f", s.SquelchThreshold))
	line("Spectrum Gain:", fmt.Sprintf("%.2fx", s.VisualGain))
	line("Scope Gain (W/S):", fmt.Sprintf("%.2fx", s.ScopeGain))
	line("Trigger Lock (T):", onOffValue(s.TriggerLock))
	line("Auto-Timebase (A):", onOffValue(s.AutoTimebase))
	line("Waveform (1-4):", g.Waveform.String())

	if g.On {
		status := "Sweeping"
		if g.Paused {
			status = "Paused (Space)"
		}
		line("Gen Status:", status)
	}

	b.WriteString("Reset Peaks (R)")
	return b.String()
}

func onOffValue(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// RenderReadout shows the marker frequency with its nearest note, or
// dashes when no tone is tracked.
func RenderReadout(m analyzer.Marker) string {
	if m.Frequency <= 0 {
		return fmt.Sprintf("%8s Hz\n%8s", "---", note.None)
	}

	n := note.FromFrequency(m.Frequency)
	return fmt.Sprintf("%8.1f Hz\n%8s %+3.0f cents", m.Frequency, n, note.Cents(m.Frequency))
}

func RenderButton(on bool) string {
	if on {
		return "GENERATOR ON"
	}
	return "GENERATOR OFF"
}

// StatusLine is the one-line summary used by the info bar and by -noui.
func StatusLine(snap *analyzer.Snapshot, g synth.State) string {
	tone := note.None
	freq := "---"
	if snap.Marker.Frequency > 0 {
		tone = note.FromFrequency(snap.Marker.Frequency).String()
		freq = fmt.Sprintf("%.1f", snap.Marker.Frequency)
	}

	gen := "off"
	if g.On {
		gen = fmt.Sprintf("%s %.0fHz", g.Waveform, g.Frequency)
		if g.Paused {
			gen += " (paused)"
		}
	}

	s := fmt.Sprintf("Peak: %7s Hz %-4s %5.1f dB  RMS: %6.0f  Samples: %4d  Gen: %s",
		freq, tone, snap.Marker.DB, snap.RMS, snap.DisplaySamples, gen)

	if snap.Squelched {
		s += "  [squelch]"
	}
	if snap.Settings.Paused {
		s += "  ANALYZER PAUSED (P)"
	}
	return s
}

func newGrid(width, height int, fill rune) [][]rune {
	grid := make([][]rune, height)
	for y := range grid {
		grid[y] = make([]rune, width)
		for x := range grid[y] {
			grid[y][x] = fill
		}
	}
	return grid
}

func joinGrid(grid [][]rune) string {
	var b strings.Builder
	for y, row := range grid {
		if y > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}
