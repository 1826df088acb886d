package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/transforms"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"audiolab/internal/synth"
)

// ErrDeviceUnavailable is returned (wrapped) when an audio device cannot be
// found, opened or started. The caller disables that path and keeps going.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

type AudioType int

const (
	AudioInOut AudioType = iota
	AudioIn
	AudioOut
)

func ListAudioDevices(t AudioType) ([]string, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	var list []string

	for _, d := range devices {
		v := d.Name

		switch t {
		case AudioInOut:
			if d.MaxInputChannels > 0 {
				v += fmt.Sprintf(" (in:%v)", d.MaxInputChannels)
			}
			if d.MaxOutputChannels > 0 {
				v += fmt.Sprintf(" (out:%v)", d.MaxOutputChannels)
			}

		case AudioIn:
			if d.MaxInputChannels == 0 { // output
				continue
			}

		case AudioOut:
			if d.MaxOutputChannels == 0 { // input
				continue
			}
		}

		list = append(list, v)
	}

	return list, nil
}

// findDevice resolves dev as a 1-based index into the full device list or
// as a name prefix. An empty dev selects the default device for t.
func findDevice(dev string, t AudioType) (*portaudio.DeviceInfo, error) {
	if dev == "" {
		var info *portaudio.DeviceInfo
		var err error

		if t == AudioOut {
			info, err = portaudio.DefaultOutputDevice()
		} else {
			info, err = portaudio.DefaultInputDevice()
		}
		if err != nil {
			return nil, fmt.Errorf("%w: default device: %v", ErrDeviceUnavailable, err)
		}
		return info, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	i, err := strconv.Atoi(dev)
	if err == nil && i > 0 && i <= len(devices) {
		return devices[i-1], nil
	}

	for _, d := range devices {
		if strings.HasPrefix(d.Name, dev) {
			return d, nil
		}
	}

	return nil, fmt.Errorf("%w: device not found: %s", ErrDeviceUnavailable, dev)
}

// Capture is a mono 16-bit input stream in callback mode. Every delivered
// block is handed to the sink on the audio thread.
type Capture struct {
	Name   string
	stream *portaudio.Stream
}

// OpenCapture opens and starts dev at rate with block-sized callbacks.
func OpenCapture(dev string, rate float64, block int, sink func([]int16), logger *zap.Logger) (*Capture, error) {
	info, err := findDevice(dev, AudioIn)
	if err != nil {
		return nil, err
	}

	p := portaudio.HighLatencyParameters(info, nil)
	p.Input.Channels = 1
	p.Output.Channels = 0
	p.SampleRate = rate
	p.FramesPerBuffer = block

	stream, err := portaudio.OpenStream(p, func(in []int16) {
		sink(in)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open input: %v", ErrDeviceUnavailable, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: start input: %v", ErrDeviceUnavailable, err)
	}

	logger.Info("capture started",
		zap.String("device", info.Name),
		zap.Float64("sampleRate", rate),
		zap.Int("block", block),
	)

	return &Capture{Name: info.Name, stream: stream}, nil
}

func (c *Capture) Close() error {
	if c.stream == nil {
		return nil
	}

	c.stream.Stop()
	err := c.stream.Close()
	c.stream = nil
	return err
}

// outputStream is the part of *portaudio.Stream that Playback drives.
type outputStream interface {
	Start() error
	Stop() error
	Close() error
}

// Playback is a mono 16-bit output stream pulling from the tone generator.
// The stream only runs while the generator is on.
type Playback struct {
	Name string

	log    *zap.Logger
	gen    *synth.Generator
	stream outputStream

	mu      sync.Mutex
	running bool
}

// OpenPlayback opens dev at the generator's rate. The stream is left
// stopped until Sync sees the generator switched on.
func OpenPlayback(dev string, gen *synth.Generator, block int, logger *zap.Logger) (*Playback, error) {
	info, err := findDevice(dev, AudioOut)
	if err != nil {
		return nil, err
	}

	p := portaudio.HighLatencyParameters(nil, info)
	p.Input.Channels = 0
	p.Output.Channels = 1
	p.SampleRate = gen.SampleRate()
	p.FramesPerBuffer = block

	stream, err := portaudio.OpenStream(p, func(out []int16) {
		gen.Fill(out)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open output: %v", ErrDeviceUnavailable, err)
	}

	pb := &Playback{
		Name:   info.Name,
		log:    logger.Named("playback"),
		gen:    gen,
		stream: stream,
	}

	if err := pb.Sync(); err != nil {
		stream.Close()
		return nil, err
	}

	pb.log.Info("playback ready", zap.String("device", info.Name), zap.Int("block", block))
	return pb, nil
}

// Sync starts or stops the stream to follow the generator's on/off state.
func (pb *Playback) Sync() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	// read under mu so concurrent callers apply the latest state last
	on := pb.gen.State().On

	if pb.stream == nil || on == pb.running {
		return nil
	}

	if on {
		if err := pb.stream.Start(); err != nil {
			return fmt.Errorf("%w: start output: %v", ErrDeviceUnavailable, err)
		}
	} else if err := pb.stream.Stop(); err != nil {
		return fmt.Errorf("stop output: %w", err)
	}

	pb.running = on
	pb.log.Debug("playback", zap.Bool("running", on))
	return nil
}

func (pb *Playback) Close() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if pb.stream == nil {
		return nil
	}

	if pb.running {
		pb.stream.Stop()
	}
	err := pb.stream.Close()
	pb.stream = nil
	return err
}

// WaveSource replays a WAV file into the analyzer at real-time pace. Multi
// channel files are down-mixed to mono and every bit depth is scaled to the
// 16-bit range.
type WaveSource struct {
	Name string
	Loop bool

	log   *zap.Logger
	f     *os.File
	dec   *wav.Decoder
	buf   audio.IntBuffer
	out   []int16
	rate  int
	scale float64
}

func OpenWaveSource(path string, block int, logger *zap.Logger) (*WaveSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%s: invalid WAV file", path)
	}

	format := dec.Format()
	if format.SampleRate <= 0 || format.NumChannels <= 0 {
		f.Close()
		return nil, fmt.Errorf("%s: unsupported format", path)
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}

	logger.Info("wav source",
		zap.String("file", path),
		zap.Int("sampleRate", format.SampleRate),
		zap.Int("channels", format.NumChannels),
		zap.Int("bitDepth", depth),
	)

	return &WaveSource{
		Name:  path,
		log:   logger.Named("wav"),
		f:     f,
		dec:   dec,
		buf:   audio.IntBuffer{Format: format, Data: make([]int, block*format.NumChannels), SourceBitDepth: depth},
		out:   make([]int16, block),
		rate:  format.SampleRate,
		scale: 32768 / math.Pow(2, float64(depth-1)),
	}, nil
}

func (w *WaveSource) SampleRate() int {
	return w.rate
}

// next decodes one block. It returns nil at the end of the file.
func (w *WaveSource) next() ([]int16, error) {
	w.buf.Data = w.buf.Data[:cap(w.buf.Data)]

	n, err := w.dec.PCMBuffer(&w.buf)
	if n == 0 {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// PCMBuffer may return less samples at the end of the file
	w.buf.Data = w.buf.Data[:n]

	fb := w.buf.AsFloatBuffer()
	if err := transforms.MonoDownmix(fb); err != nil {
		return nil, err
	}

	out := w.out[:len(fb.Data)]
	for i, v := range fb.Data {
		out[i] = int16(max(min(math.Round(v*w.scale), math.MaxInt16), math.MinInt16))
	}
	return out, nil
}

// Run feeds one block per block period to sink until the file ends (or,
// with Loop set, until ctx is done).
func (w *WaveSource) Run(ctx context.Context, sink func([]int16)) error {
	interval := time.Duration(float64(len(w.out)) / float64(w.rate) * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		block, err := w.next()
		if err != nil {
			return fmt.Errorf("%s: %w", w.Name, err)
		}

		if block == nil {
			if !w.Loop {
				w.log.Info("end of file")
				return nil
			}
			if err := w.dec.Rewind(); err != nil {
				return fmt.Errorf("%s: rewind: %w", w.Name, err)
			}
			continue
		}

		sink(block)
	}
}

func (w *WaveSource) Close() error {
	return w.f.Close()
}

// Loopback feeds the tone generator's output straight into the analyzer at
// the generator's block cadence. It needs no audio device.
type Loopback struct {
	gen   *synth.Generator
	block []int16
}

func NewLoopback(gen *synth.Generator, block int) *Loopback {
	return &Loopback{gen: gen, block: make([]int16, block)}
}

func (l *Loopback) Run(ctx context.Context, sink func([]int16)) error {
	interval := time.Duration(float64(len(l.block)) / l.gen.SampleRate() * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.gen.Fill(l.block)
			sink(l.block)
		}
	}
}
