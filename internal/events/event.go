// Package events defines the audit events emitted by the enforcement policy
// and the sinks that carry them to NATS and the dashboard stream.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names what happened.
type Kind string

const (
	KindWarned               Kind = "warned"
	KindBanned               Kind = "banned"
	KindDeleted              Kind = "deleted"
	KindBannedMessageRemoved Kind = "banned_message_removed"
	KindBlacklisted          Kind = "blacklisted"
	KindVideoReported        Kind = "video_reported"
	KindVideoRemoved         Kind = "video_removed"
	KindVideoRemoveFailed    Kind = "video_remove_failed"
)

// Event is one enforcement action.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	ChatID    int64     `json:"chat_id"`
	UserID    int64     `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	MessageID int       `json:"message_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Count     int       `json:"count,omitempty"`
	At        time.Time `json:"at"`
}

// New stamps an event with a fresh id and the current time.
func New(kind Kind, chatID int64) Event {
	return Event{
		ID:     uuid.New().String(),
		Kind:   kind,
		ChatID: chatID,
		At:     time.Now().UTC(),
	}
}

// Sink receives events. Emit must not block the caller for long and must be
// safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(context.Context, Event) {}

// Fanout delivers each event to every sink in order.
type Fanout []Sink

func (f Fanout) Emit(ctx context.Context, e Event) {
	for _, s := range f {
		s.Emit(ctx, e)
	}
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []Kind {
	evs := r.Events()
	kinds := make([]Kind, len(evs))
	for i, e := range evs {
		kinds[i] = e.Kind
	}
	return kinds
}
