// Package ws bridges the card engine to the overlay renderer.
//
// The renderer connects to /ws, receives one snapshot frame, then a stream
// of engine events; it sends action/dismiss requests back on the same
// socket. A client that falls behind is disconnected and expected to
// reconnect and resynchronize from the snapshot (events are notifications,
// not guaranteed-once deliveries).
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"soultray/internal/cards"
	"soultray/internal/eventbus"
	"soultray/internal/storage"
	logx "soultray/pkg/logx"
)

type Config struct {
	Enabled bool
	Addr    string
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8765"
	}
	return c
}

type Server struct {
	mu  sync.Mutex
	cfg Config

	log    logx.Logger
	engine *cards.Engine
	bus    eventbus.Bus
	store  storage.Store // optional; enables /activity

	upgrader websocket.Upgrader
	srv      *http.Server
	ln       net.Listener
	wg       sync.WaitGroup
}

func New(cfg Config, engine *cards.Engine, bus eventbus.Bus, store storage.Store, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{
		cfg:    cfg.withDefaults(),
		log:    log,
		engine: engine,
		bus:    bus,
		store:  store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local-only bridge: the listener binds loopback, the overlay
			// webview sets no Origin header we could meaningfully check.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil || !s.cfg.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/activity", s.handleActivity)
	mux.HandleFunc("/ws", s.handleWS)

	srv := &http.Server{Addr: s.cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.srv = srv
	s.ln = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("bridge server stopped", logx.Err(err))
		}
	}()
	s.log.Info("bridge listening", logx.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()

	if srv == nil {
		return
	}
	_ = srv.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Addr returns the bound address, or "" when not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.engine.State())
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	entries, err := s.store.RecentActivity(r.Context(), limit)
	if err != nil {
		http.Error(w, "journal read failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", logx.Err(err))
		return
	}

	// Subscribe before the snapshot: events raced between snapshot and
	// subscribe would be lost the other way around. The renderer tolerates
	// events that are already reflected in the snapshot.
	sub := s.bus.Subscribe(64)

	if err := writeFrame(conn, snapshotFrame(s.engine.State())); err != nil {
		sub.Cancel()
		_ = conn.Close()
		return
	}

	s.wg.Add(2)
	// Write pump: bus -> socket.
	go func() {
		defer s.wg.Done()
		defer sub.Cancel()
		defer conn.Close()
		for ev := range sub.C {
			if err := writeFrame(conn, frameFor(ev)); err != nil {
				return
			}
		}
	}()
	// Read pump: socket -> engine.
	go func() {
		defer s.wg.Done()
		defer sub.Cancel()
		defer conn.Close()
		for {
			var req Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if err := dispatch(s.engine, req); err != nil {
				s.log.Debug("bad renderer request", logx.Err(err), logx.String("op", req.Op))
			}
		}
	}()
}

func writeFrame(conn *websocket.Conn, f Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(f)
}
