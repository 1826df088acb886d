// Package analyzer turns the live sample block into a triggered waveform,
// a peak-held spectrum and a tracked dominant peak.
package analyzer

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"audiolab/internal/metrics"
	"audiolab/internal/spectrum"
)

const (
	DefaultSampleRate = 44100
	DefaultBlockSize  = 4096
	DefaultSquelch    = 500.0
)

// Options fixes the engine geometry at construction.
type Options struct {
	SampleRate float64
	BlockSize  int     // power of two
	Squelch    float64 // initial squelch threshold
}

// DefaultOptions returns 44.1 kHz, 4096-sample blocks, squelch 500.
func DefaultOptions() Options {
	return Options{
		SampleRate: DefaultSampleRate,
		BlockSize:  DefaultBlockSize,
		Squelch:    DefaultSquelch,
	}
}

// Settings are the user-controlled analysis parameters.
type Settings struct {
	SquelchThreshold float64 `json:"squelch_threshold"`
	VisualGain       float64 `json:"visual_gain"`
	ScopeGain        float64 `json:"scope_gain"`
	TriggerLock      bool    `json:"trigger_lock"`
	AutoTimebase     bool    `json:"auto_timebase"`
	Paused           bool    `json:"paused"`
}

// Engine owns every analysis buffer and the state carried across cycles.
//
// Ingest/Write run on the audio input callback, Cycle on the analysis
// goroutine, everything else on the presentation side. mu is held by the
// input path only while copying a block in, and by Cycle only while
// copying it out and while updating the peak-hold table.
type Engine struct {
	log *zap.Logger

	sampleRate float64
	size       int

	mu        sync.Mutex
	block     []int16
	peak      *PeakHold
	marker    Marker
	offset    int
	display   int
	rms       float64
	squelched bool
	cycles    uint64

	setMu    sync.RWMutex
	settings Settings
	paused   atomic.Bool

	// owned by the analysis goroutine
	raw      []int16
	db       []float64
	framer   *spectrum.Framer
	trigger  Trigger
	timebase *Timebase
	work     Marker
}

// New validates opts and allocates all buffers.
func New(opts Options, logger *zap.Logger) (*Engine, error) {
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("analyzer: invalid sample rate %v", opts.SampleRate)
	}

	framer, err := spectrum.NewFramer(opts.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("analyzer: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		log:        logger.Named("analyzer"),
		sampleRate: opts.SampleRate,
		size:       opts.BlockSize,
		block:      make([]int16, opts.BlockSize),
		peak:       NewPeakHold(opts.BlockSize / 2),
		display:    opts.BlockSize / 2,
		raw:        make([]int16, opts.BlockSize),
		db:         make([]float64, opts.BlockSize/2),
		framer:     framer,
		timebase:   NewTimebase(opts.SampleRate, opts.BlockSize),
		settings: Settings{
			SquelchThreshold: opts.Squelch,
			VisualGain:       1.0,
			ScopeGain:        1.0,
			TriggerLock:      true,
			AutoTimebase:     true,
		},
	}

	e.log.Info("engine ready",
		zap.Float64("sampleRate", opts.SampleRate),
		zap.Int("blockSize", opts.BlockSize),
		zap.Float64("squelch", opts.Squelch),
	)

	return e, nil
}

// SampleRate returns the rate the engine analyses at.
func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// BlockSize returns the number of samples per analysed block.
func (e *Engine) BlockSize() int {
	return e.size
}

// Ingest replaces the shared sample block with samples. At most BlockSize
// samples are taken; a shorter delivery overwrites only its own prefix.
// Blocks arriving while the analyzer is paused are dropped.
func (e *Engine) Ingest(samples []int16) {
	if e.paused.Load() {
		metrics.IngestDroppedTotal.Inc()
		return
	}

	e.mu.Lock()
	copy(e.block, samples)
	e.mu.Unlock()

	metrics.IngestBlocksTotal.Inc()
}

// Write is Ingest for little-endian signed 16-bit PCM bytes. It always
// consumes all of p; an odd trailing byte is ignored.
func (e *Engine) Write(p []byte) (int, error) {
	if e.paused.Load() {
		metrics.IngestDroppedTotal.Inc()
		return len(p), nil
	}

	n := min(len(p)/2, e.size)

	e.mu.Lock()
	for i := 0; i < n; i++ {
		e.block[i] = int16(binary.LittleEndian.Uint16(p[2*i:]))
	}
	e.mu.Unlock()

	metrics.IngestBlocksTotal.Inc()
	return len(p), nil
}

// Cycle runs one analysis pass and reports whether it did anything. While
// paused nothing moves, the peak-hold decay included.
func (e *Engine) Cycle() bool {
	if e.paused.Load() {
		metrics.CyclesTotal.WithLabelValues("paused").Inc()
		return false
	}

	start := time.Now()
	s := e.Settings()

	e.mu.Lock()
	copy(e.raw, e.block)
	e.mu.Unlock()

	rms := RMS(e.raw)
	quiet := Squelched(rms, s.SquelchThreshold)

	if quiet {
		e.work.Fade()
		e.timebase.Update(0, true, s.AutoTimebase)
	} else {
		e.trigger.Find(e.raw, s.TriggerLock)

		x := e.framer.Frame(e.raw)
		if err := spectrum.Transform(x); err != nil {
			// the framer size is validated in New
			e.log.Error("transform failed", zap.Error(err))
			return false
		}

		bin, maxDB := Dominant(x, e.db)
		freq := spectrum.BinFrequency(bin, e.size, e.sampleRate)

		e.work.Track(spectrum.LogPosition(freq, e.sampleRate), maxDB, freq)
		e.timebase.Update(freq, false, s.AutoTimebase)
	}

	e.mu.Lock()
	if !quiet {
		e.peak.Observe(e.db)
	}
	e.peak.Decay()

	wasQuiet := e.squelched
	e.marker = e.work
	e.offset = e.trigger.Offset()
	e.display = e.timebase.Display()
	e.rms = rms
	e.squelched = quiet
	e.cycles++
	e.mu.Unlock()

	if quiet != wasQuiet {
		e.log.Debug("squelch changed", zap.Bool("squelched", quiet), zap.Float64("rms", rms))
	}

	outcome := "loud"
	if quiet {
		outcome = "quiet"
	}
	metrics.CyclesTotal.WithLabelValues(outcome).Inc()
	metrics.InputRMS.Set(rms)
	metrics.DominantFrequency.Set(e.work.Frequency)
	metrics.MarkerLevel.Set(e.work.DB)
	metrics.CycleDuration.Observe(time.Since(start).Seconds())

	return true
}

// Run calls Cycle every interval until ctx is done. onCycle, when set, is
// called after each cycle (paused ones included) so the presentation can
// refresh.
func (e *Engine) Run(ctx context.Context, interval time.Duration, onCycle func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Cycle()
			if onCycle != nil {
				onCycle()
			}
		}
	}
}

// Settings returns a copy of the current settings.
func (e *Engine) Settings() Settings {
	e.setMu.RLock()
	s := e.settings
	e.setMu.RUnlock()

	s.Paused = e.paused.Load()
	return s
}

func (e *Engine) update(fn func(s *Settings)) Settings {
	e.setMu.Lock()
	fn(&e.settings)
	s := e.settings
	e.setMu.Unlock()

	s.Paused = e.paused.Load()
	return s
}

// TogglePause stops or resumes ingest and analysis together.
func (e *Engine) TogglePause() bool {
	for {
		old := e.paused.Load()
		if e.paused.CompareAndSwap(old, !old) {
			e.log.Info("analyzer pause", zap.Bool("paused", !old))
			return !old
		}
	}
}

func (e *Engine) ToggleTriggerLock() bool {
	return e.update(func(s *Settings) { s.TriggerLock = !s.TriggerLock }).TriggerLock
}

func (e *Engine) ToggleAutoTimebase() bool {
	return e.update(func(s *Settings) { s.AutoTimebase = !s.AutoTimebase }).AutoTimebase
}

// AdjustSquelch moves the threshold by delta, never below zero.
func (e *Engine) AdjustSquelch(delta float64) float64 {
	return e.update(func(s *Settings) {
		s.SquelchThreshold = max(s.SquelchThreshold+delta, 0)
	}).SquelchThreshold
}

// AdjustVisualGain moves the spectrum gain by delta, never below zero.
func (e *Engine) AdjustVisualGain(delta float64) float64 {
	return e.update(func(s *Settings) {
		s.VisualGain = max(s.VisualGain+delta, 0)
	}).VisualGain
}

// AdjustScopeGain moves the waveform gain by delta, never below 0.1.
func (e *Engine) AdjustScopeGain(delta float64) float64 {
	return e.update(func(s *Settings) {
		s.ScopeGain = max(s.ScopeGain+delta, 0.1)
	}).ScopeGain
}

// ResetPeaks returns the peak-hold table to its floor.
func (e *Engine) ResetPeaks() {
	e.mu.Lock()
	e.peak.Reset()
	e.mu.Unlock()

	e.log.Info("peak hold reset")
}
