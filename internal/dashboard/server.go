// Package dashboard serves the status endpoints of a running bot: liveness,
// enforcement statistics, Prometheus metrics and a live websocket stream of
// audit events.
package dashboard

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/whisper/groupguard/internal/enforcement"
	"github.com/whisper/groupguard/internal/metrics"
)

// PasswordHeader carries the admin password. Browsers opening the event
// stream may pass it as the "password" query parameter instead.
const PasswordHeader = "X-Admin-Password"

// Config holds tunable parameters for the dashboard.
type Config struct {
	ListenAddr        string
	Password          string
	MaxSubscribers    int
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration
}

// DefaultConfig returns the dashboard defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:        ":8080",
		MaxSubscribers:    64,
		WriteTimeout:      5 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Server is the dashboard HTTP server.
type Server struct {
	config    Config
	store     enforcement.Store
	hub       *Hub
	log       *zap.Logger
	startedAt time.Time
}

// NewServer creates a Server reading statistics from store and streaming
// events from hub.
func NewServer(config Config, store enforcement.Store, hub *Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		config:    config,
		store:     store,
		hub:       hub,
		log:       log.Named("dashboard"),
		startedAt: time.Now(),
	}
}

// Handler returns the dashboard routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.requirePassword(s.handleStats))
	mux.HandleFunc("GET /events", s.requirePassword(s.handleEvents))
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	if s.config.HeartbeatInterval > 0 {
		go s.hub.RunHeartbeat(hbCtx, s.config.HeartbeatInterval)
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.config.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("dashboard: serve: %w", err)
			return
		}
		errc <- nil
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard: shutdown: %w", err)
	}
	return <-errc
}

// requirePassword rejects requests without the admin password. An empty
// configured password disables the protected endpoints.
func (s *Server) requirePassword(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.Password == "" {
			http.Error(w, "dashboard password not configured", http.StatusForbidden)
			return
		}
		got := r.Header.Get(PasswordHeader)
		if got == "" {
			got = r.URL.Query().Get("password")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.config.Password)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status      string `json:"status"`
		Subscribers int    `json:"subscribers"`
		Dropped     int64  `json:"dropped_events"`
		Uptime      string `json:"uptime"`
	}{
		Status:      "ok",
		Subscribers: s.hub.Count(),
		Dropped:     s.hub.Dropped(),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context())
	if err != nil {
		s.log.Error("load stats failed", zap.Error(err))
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleEvents upgrades to a websocket and registers the connection with the
// hub. A reader goroutine drains client frames until the peer goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.config.MaxSubscribers > 0 && s.hub.Count() >= s.config.MaxSubscribers {
		http.Error(w, "too many subscribers", http.StatusServiceUnavailable)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	sub := &Subscriber{ID: uuid.New().String(), Conn: conn, CreatedAt: time.Now()}
	s.hub.Add(sub)
	s.log.Info("subscriber connected", zap.String("subscriber", sub.ID), zap.Int("total", s.hub.Count()))

	go func() {
		defer func() {
			if s.hub.Remove(sub.ID) {
				s.log.Info("subscriber disconnected", zap.String("subscriber", sub.ID))
			}
		}()
		for {
			if _, _, err := wsutil.ReadClientData(conn); err != nil {
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
