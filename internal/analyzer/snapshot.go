package analyzer

// Snapshot is a read-only copy of everything the presentation draws.
type Snapshot struct {
	SampleRate     float64   `json:"sample_rate"`
	BlockSize      int       `json:"block_size"`
	Samples        []int16   `json:"-"`
	PeakHold       []float64 `json:"peak_hold"`
	Marker         Marker    `json:"marker"`
	TriggerOffset  int       `json:"trigger_offset"`
	DisplaySamples int       `json:"display_samples"`
	RMS            float64   `json:"rms"`
	Squelched      bool      `json:"squelched"`
	Cycle          uint64    `json:"cycle"`
	Settings       Settings  `json:"settings"`
}

// Snapshot copies the shared state into dst, reusing its buffers, and
// returns it. A nil dst allocates a new snapshot.
func (e *Engine) Snapshot(dst *Snapshot) *Snapshot {
	if dst == nil {
		dst = &Snapshot{}
	}

	dst.Settings = e.Settings()
	dst.SampleRate = e.sampleRate
	dst.BlockSize = e.size

	e.mu.Lock()
	dst.Samples = append(dst.Samples[:0], e.block...)
	dst.PeakHold = append(dst.PeakHold[:0], e.peak.Values()...)
	dst.Marker = e.marker
	dst.TriggerOffset = e.offset
	dst.DisplaySamples = e.display
	dst.RMS = e.rms
	dst.Squelched = e.squelched
	dst.Cycle = e.cycles
	e.mu.Unlock()

	return dst
}

// Trace returns the displayed part of the waveform: DisplaySamples samples
// starting at the trigger offset, wrapping around the block.
func (s *Snapshot) Trace(dst []int16) []int16 {
	dst = dst[:0]
	n := len(s.Samples)
	if n == 0 {
		return dst
	}

	for i := 0; i < s.DisplaySamples; i++ {
		dst = append(dst, s.Samples[(s.TriggerOffset+i)%n])
	}
	return dst
}
