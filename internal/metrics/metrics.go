package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters
var (
	IngestBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audiolab_ingest_blocks_total",
		Help: "Sample blocks delivered by the input path",
	})
	IngestDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audiolab_ingest_dropped_total",
		Help: "Sample blocks dropped while the analyzer was paused",
	})
	EgressBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audiolab_egress_blocks_total",
		Help: "Output blocks synthesized by the tone generator",
	})
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiolab_analysis_cycles_total",
		Help: "Analysis cycles by outcome",
	}, []string{"outcome"})
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiolab_commands_total",
		Help: "Presentation commands by name and origin",
	}, []string{"command", "origin"})
)

// Gauges
var (
	DominantFrequency = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audiolab_dominant_frequency_hz",
		Help: "Frequency of the current peak marker (0 when squelched)",
	})
	MarkerLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audiolab_marker_level_db",
		Help: "Smoothed magnitude of the peak marker",
	})
	InputRMS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audiolab_input_rms",
		Help: "RMS of the last analysed sample block",
	})
	GeneratorFrequency = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audiolab_generator_frequency_hz",
		Help: "Current sweep frequency of the tone generator",
	})
	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audiolab_websocket_clients",
		Help: "Connected snapshot stream clients",
	})
)

// Histograms
var (
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audiolab_analysis_cycle_seconds",
		Help:    "Wall time of one analysis cycle",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
	})
)
