package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"audiolab/internal/analyzer"
	"audiolab/internal/metrics"
	"audiolab/internal/note"
	"audiolab/internal/synth"
)

const writeWait = 10 * time.Second

// Server exposes health, metrics, snapshots and commands over HTTP, and
// streams snapshots to websocket clients.
type Server struct {
	log      *zap.Logger
	engine   *analyzer.Engine
	gen      *synth.Generator
	controls *Controls
	router   chi.Router

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]bool
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

type generatorJSON struct {
	On        bool    `json:"on"`
	Paused    bool    `json:"paused"`
	Waveform  string  `json:"waveform"`
	Frequency float64 `json:"frequency"`
	SweepUp   bool    `json:"sweep_up"`
}

// SnapshotResponse is the JSON form of one analysis snapshot.
type SnapshotResponse struct {
	*analyzer.Snapshot
	Trace     []int16       `json:"trace"`
	Note      string        `json:"note"`
	Generator generatorJSON `json:"generator"`
}

type commandResponse struct {
	Command string `json:"command"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

func NewServer(engine *analyzer.Engine, gen *synth.Generator, controls *Controls, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		log:      logger.Named("http"),
		engine:   engine,
		gen:      gen,
		controls: controls,
		clients:  make(map[*wsClient]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 65536,
		},
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.serveWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", s.snapshot)
		r.Get("/commands", s.listCommands)
		r.Post("/commands/{name}", s.runCommand)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestId", chimw.GetReqID(r.Context())),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) buildSnapshot() *SnapshotResponse {
	snap := s.engine.Snapshot(nil)
	g := s.gen.State()

	return &SnapshotResponse{
		Snapshot: snap,
		Trace:    snap.Trace(nil),
		Note:     note.FromFrequency(snap.Marker.Frequency).String(),
		Generator: generatorJSON{
			On:        g.On,
			Paused:    g.Paused,
			Waveform:  g.Waveform.String(),
			Frequency: g.Frequency,
			SweepUp:   g.SweepUp,
		},
	}
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.buildSnapshot())
}

func (s *Server) listCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CommandNames())
}

func (s *Server) runCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	status, err := s.controls.Do(name, "http")
	if errors.Is(err, ErrUnknownCommand) {
		writeJSON(w, http.StatusNotFound, commandResponse{Command: name, Error: err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, commandResponse{Command: name, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{Command: name, Status: status})
}

// writePump pumps messages from the server to the websocket connection.
func (c *wsClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", zap.Error(err))
		return
	}

	client := &wsClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, 16)}
	log := s.log.With(zap.String("client", client.id))

	s.mu.Lock()
	s.clients[client] = true
	n := len(s.clients)
	s.mu.Unlock()

	metrics.WebsocketClients.Set(float64(n))
	log.Info("websocket client connected", zap.String("remote", r.RemoteAddr))

	go client.writePump()

	defer func() {
		s.mu.Lock()
		delete(s.clients, client)
		n := len(s.clients)
		close(client.send) // stops writePump
		s.mu.Unlock()

		metrics.WebsocketClients.Set(float64(n))
		log.Info("websocket client disconnected")
	}()

	// text frames are command names
	for {
		typ, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.TextMessage {
			continue
		}

		name := string(msg)
		resp := commandResponse{Command: name}
		if status, err := s.controls.Do(name, "ws"); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Status = status
		}

		b, _ := json.Marshal(resp)
		s.sendTo(client, b)
	}
}

func (s *Server) sendTo(c *wsClient, msg []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// broadcast queues msg for every client; slow clients miss frames.
func (s *Server) broadcast(msg []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Stream broadcasts a snapshot every interval while clients are connected.
func (s *Server) Stream(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeClients()
			return
		case <-ticker.C:
		}

		if s.clientCount() == 0 {
			continue
		}

		b, err := json.Marshal(s.buildSnapshot())
		if err != nil {
			s.log.Error("snapshot encode", zap.Error(err))
			continue
		}
		s.broadcast(b)
	}
}

func (s *Server) closeClients() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		c.conn.Close()
	}
}
