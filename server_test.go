package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audiolab/internal/analyzer"
	"audiolab/internal/synth"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server, *analyzer.Engine, *synth.Generator) {
	t.Helper()

	c, e, g := newControls(t)
	s := NewServer(e, g, c, nil)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, s, e, g
}

func TestHealth(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, e, _ := newTestServer(t)
	e.Cycle()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "audiolab_analysis_cycles_total")
}

func TestSnapshotEndpoint(t *testing.T) {
	ts, _, e, g := newTestServer(t)

	block := make([]int16, e.BlockSize())
	block[0] = 1234
	e.Ingest(block)
	g.SetWaveform(synth.Triangle)

	resp, err := http.Get(ts.URL + "/api/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		SampleRate     float64   `json:"sample_rate"`
		BlockSize      int       `json:"block_size"`
		PeakHold       []float64 `json:"peak_hold"`
		DisplaySamples int       `json:"display_samples"`
		Trace          []int16   `json:"trace"`
		Note           string    `json:"note"`
		Settings       struct {
			SquelchThreshold float64 `json:"squelch_threshold"`
			TriggerLock      bool    `json:"trigger_lock"`
		} `json:"settings"`
		Generator struct {
			On       bool   `json:"on"`
			Waveform string `json:"waveform"`
		} `json:"generator"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))

	assert.Equal(t, 44100.0, got.SampleRate)
	assert.Equal(t, 4096, got.BlockSize)
	assert.Len(t, got.PeakHold, 2048)
	assert.Equal(t, 2048, got.DisplaySamples)
	require.Len(t, got.Trace, 2048)
	assert.Equal(t, int16(1234), got.Trace[0])
	assert.Equal(t, "---", got.Note)
	assert.Equal(t, 500.0, got.Settings.SquelchThreshold)
	assert.True(t, got.Settings.TriggerLock)
	assert.False(t, got.Generator.On)
	assert.Equal(t, "TRIANGLE", got.Generator.Waveform)
}

func TestCommandEndpoint(t *testing.T) {
	ts, _, e, g := newTestServer(t)

	tests := []struct {
		name   string
		status int
		check  func() bool
	}{
		{"squelch_up", http.StatusOK, func() bool { return e.Settings().SquelchThreshold == 550 }},
		{"generator", http.StatusOK, func() bool { return g.State().On }},
		{"pause", http.StatusOK, func() bool { return e.Settings().Paused }},
		{"nope", http.StatusNotFound, func() bool { return true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/commands/"+tt.name, "application/json", nil)
			require.NoError(t, err)
			defer resp.Body.Close()

			var body commandResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.name, body.Command)
			assert.True(t, tt.check())
		})
	}
}

func TestCommandEndpointMethod(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/commands/pause")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestListCommands(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/commands")
	require.NoError(t, err)
	defer resp.Body.Close()

	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	assert.Equal(t, CommandNames(), names)
}

func TestWebsocket(t *testing.T) {
	ts, s, e, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Stream(ctx, 10*time.Millisecond)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// the first streamed frame is a snapshot
	var snap map[string]any
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Contains(t, snap, "peak_hold")
	assert.Contains(t, snap, "trace")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("trigger")))

	// skip snapshots until the command reply arrives
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["command"] == "trigger" {
			assert.Equal(t, "trigger lock OFF", msg["status"])
			break
		}
	}
	assert.False(t, e.Settings().TriggerLock)
	assert.Equal(t, 1, s.clientCount())
}
