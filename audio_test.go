package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"audiolab/internal/synth"
)

func writeWav(t *testing.T, rate, depth, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, depth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: depth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return path
}

type collector struct {
	mu     sync.Mutex
	blocks [][]int16
}

func (c *collector) sink(b []int16) {
	c.mu.Lock()
	c.blocks = append(c.blocks, append([]int16(nil), b...))
	c.mu.Unlock()
}

func (c *collector) samples() []int16 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []int16
	for _, b := range c.blocks {
		out = append(out, b...)
	}
	return out
}

func TestWaveSourceStereoDownmix(t *testing.T) {
	const frames = 1000

	data := make([]int, 0, 2*frames)
	for i := 0; i < frames; i++ {
		data = append(data, 1000, 3000)
	}
	path := writeWav(t, 44100, 16, 2, data)

	w, err := OpenWaveSource(path, 256, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, 44100, w.SampleRate())

	var c collector
	require.NoError(t, w.Run(context.Background(), c.sink))

	got := c.samples()
	require.Len(t, got, frames)
	for _, s := range got {
		assert.Equal(t, int16(2000), s)
	}

	require.NotEmpty(t, c.blocks)
	assert.Len(t, c.blocks[0], 256)
}

func TestWaveSourceScalesBitDepth(t *testing.T) {
	data := []int{1 << 20, -(1 << 20), 0, 1<<23 - 1}
	path := writeWav(t, 8000, 24, 1, data)

	w, err := OpenWaveSource(path, 64, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	var c collector
	require.NoError(t, w.Run(context.Background(), c.sink))

	assert.Equal(t, []int16{4096, -4096, 0, 32767}, c.samples())
}

func TestWaveSourceLoopStopsOnContext(t *testing.T) {
	path := writeWav(t, 44100, 16, 1, make([]int, 300))

	w, err := OpenWaveSource(path, 128, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()
	w.Loop = true

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var c collector
	require.NoError(t, w.Run(ctx, c.sink))
	assert.Greater(t, len(c.samples()), 300, "file is replayed")
}

func TestOpenWaveSourceInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file at all"), 0o644))

	_, err := OpenWaveSource(path, 256, zap.NewNop())
	assert.Error(t, err)

	_, err = OpenWaveSource(filepath.Join(t.TempDir(), "missing.wav"), 256, zap.NewNop())
	assert.Error(t, err)
}

func TestLoopbackFeedsGenerator(t *testing.T) {
	gen := synth.NewGenerator(44100)
	gen.SetOn(true)

	lb := NewLoopback(gen, 441)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var c collector
	require.NoError(t, lb.Run(ctx, c.sink))

	require.NotEmpty(t, c.blocks)
	assert.Len(t, c.blocks[0], 441)

	var loud bool
	for _, s := range c.samples() {
		if s > 1000 || s < -1000 {
			loud = true
			break
		}
	}
	assert.True(t, loud)
}

type fakeStream struct {
	mu      sync.Mutex
	running bool
	starts  int
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.starts++
	return nil
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *fakeStream) Close() error { return nil }

func (s *fakeStream) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func TestPlaybackSyncFollowsGenerator(t *testing.T) {
	gen := synth.NewGenerator(44100)
	fs := &fakeStream{}
	pb := &Playback{log: zap.NewNop(), gen: gen, stream: fs}

	require.NoError(t, pb.Sync())
	assert.False(t, fs.isRunning())

	gen.SetOn(true)
	require.NoError(t, pb.Sync())
	require.NoError(t, pb.Sync())
	assert.True(t, fs.isRunning())
	assert.Equal(t, 1, fs.starts)

	gen.SetOn(false)
	require.NoError(t, pb.Sync())
	assert.False(t, fs.isRunning())
}

func TestPlaybackSyncConcurrentToggles(t *testing.T) {
	for round := 0; round < 50; round++ {
		gen := synth.NewGenerator(44100)
		fs := &fakeStream{}
		pb := &Playback{log: zap.NewNop(), gen: gen, stream: fs}

		var wg sync.WaitGroup
		for i := 0; i < 7; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				gen.Toggle()
				assert.NoError(t, pb.Sync())
			}()
		}
		wg.Wait()

		require.Equal(t, gen.State().On, fs.isRunning(), "round %d", round)
	}
}
