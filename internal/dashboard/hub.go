package dashboard

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/whisper/groupguard/internal/events"
	"github.com/whisper/groupguard/internal/metrics"
)

// DefaultQueueSize is how many events may wait for a slow subscriber before
// new ones are dropped for it.
const DefaultQueueSize = 64

// Subscriber is one websocket client of the event stream.
type Subscriber struct {
	ID        string
	Conn      net.Conn
	CreatedAt time.Time
	writeMu   sync.Mutex

	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.Conn.Close()
	})
}

// write sends a text frame. The mutex keeps concurrent broadcasts and pings
// from interleaving frame bytes.
func (s *Subscriber) write(data []byte, timeout time.Duration) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if timeout > 0 {
		_ = s.Conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return wsutil.WriteServerMessage(s.Conn, ws.OpText, data)
}

func (s *Subscriber) ping(timeout time.Duration) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if timeout > 0 {
		_ = s.Conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return ws.WriteFrame(s.Conn, ws.NewPingFrame(nil))
}

// Hub is a registry of stream subscribers. It implements events.Sink by
// broadcasting each event as JSON. Every subscriber has its own bounded queue
// and writer goroutine, so Emit never waits on a network write.
type Hub struct {
	mu           sync.RWMutex
	subs         map[string]*Subscriber
	writeTimeout time.Duration
	queueSize    int
	dropped      atomic.Int64
	log          *zap.Logger
}

var _ events.Sink = (*Hub)(nil)

// NewHub creates an empty Hub.
func NewHub(writeTimeout time.Duration, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs:         make(map[string]*Subscriber),
		writeTimeout: writeTimeout,
		queueSize:    DefaultQueueSize,
		log:          log.Named("hub"),
	}
}

// Add registers a subscriber and starts its writer.
func (h *Hub) Add(s *Subscriber) {
	s.queue = make(chan []byte, h.queueSize)
	s.done = make(chan struct{})
	h.mu.Lock()
	h.subs[s.ID] = s
	h.mu.Unlock()
	go h.writeLoop(s)
}

// writeLoop sends queued messages to s until it is removed or a write fails.
func (h *Hub) writeLoop(s *Subscriber) {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.queue:
			if err := s.write(msg, h.writeTimeout); err != nil {
				h.log.Debug("subscriber write failed", zap.String("subscriber", s.ID), zap.Error(err))
				h.Remove(s.ID)
				return
			}
		}
	}
}

// Remove unregisters a subscriber and closes its connection. It reports
// whether the subscriber was still registered.
func (h *Hub) Remove(id string) bool {
	h.mu.Lock()
	s, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()

	if ok {
		s.close()
	}
	return ok
}

// Count returns the number of subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) snapshot() []*Subscriber {
	h.mu.RLock()
	out := make([]*Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		out = append(out, s)
	}
	h.mu.RUnlock()
	return out
}

// Dropped returns how many messages were discarded for full queues.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Broadcast queues msg for every subscriber. A subscriber whose queue is full
// misses the message. Subscribers whose write fails are removed by their
// writer.
func (h *Hub) Broadcast(msg []byte) {
	for _, s := range h.snapshot() {
		select {
		case s.queue <- msg:
		default:
			h.dropped.Add(1)
			metrics.StreamDroppedTotal.Inc()
			h.log.Warn("subscriber queue full, dropping event", zap.String("subscriber", s.ID))
		}
	}
}

// Emit broadcasts e to the stream.
func (h *Hub) Emit(_ context.Context, e events.Event) {
	if h.Count() == 0 {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		h.log.Error("marshal event failed", zap.String("id", e.ID), zap.Error(err))
		return
	}
	h.Broadcast(data)
}

// RunHeartbeat pings every subscriber each interval until ctx is cancelled.
// Subscribers that cannot be pinged are removed.
func (h *Hub) RunHeartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range h.snapshot() {
				if err := s.ping(h.writeTimeout); err != nil {
					h.log.Debug("heartbeat ping failed", zap.String("subscriber", s.ID), zap.Error(err))
					h.Remove(s.ID)
				}
			}
		}
	}
}

// CloseAll disconnects every subscriber.
func (h *Hub) CloseAll() {
	for _, s := range h.snapshot() {
		h.Remove(s.ID)
	}
}
