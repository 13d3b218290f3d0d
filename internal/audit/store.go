// Package audit provides PostgreSQL-backed storage for enforcement events.
// Each row records one action taken by the policy engine (warning, ban,
// deletion, video report) so moderators can review a group's history.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/whisper/groupguard/internal/events"
)

// DefaultLimit caps Recent when no limit is given.
const DefaultLimit = 50

// Store manages moderation events in PostgreSQL.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}
	return db, nil
}

// NewStore creates a new audit store backed by the given database handle.
func NewStore(db *sql.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log.Named("audit")}
}

// Insert persists an event. Inserting the same event id twice is a no-op,
// so redelivered events are safe.
func (s *Store) Insert(ctx context.Context, e events.Event) error {
	if e.ID == "" {
		return fmt.Errorf("audit: event without id")
	}
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	const query = `
		INSERT INTO moderation_events (id, kind, chat_id, user_id, username, message_id, reason, count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		string(e.Kind),
		e.ChatID,
		e.UserID,
		e.Username,
		e.MessageID,
		e.Reason,
		e.Count,
		at,
	)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// Emit implements events.Sink. Failures are logged.
func (s *Store) Emit(ctx context.Context, e events.Event) {
	if err := s.Insert(ctx, e); err != nil {
		s.log.Error("persist event failed",
			zap.String("id", e.ID),
			zap.String("kind", string(e.Kind)),
			zap.Error(err))
	}
}

// Filter selects events for Recent. A zero ChatID matches every chat and an
// empty Kinds matches every kind.
type Filter struct {
	ChatID int64
	Kinds  []events.Kind
	Limit  int
}

// Recent returns the newest events matching f, newest first.
func (s *Store) Recent(ctx context.Context, f Filter) ([]events.Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	kinds := make([]string, len(f.Kinds))
	for i, k := range f.Kinds {
		kinds[i] = string(k)
	}

	const query = `
		SELECT id, kind, chat_id, user_id, username, message_id, reason, count, created_at
		FROM moderation_events
		WHERE ($1::bigint = 0 OR chat_id = $1)
		  AND (cardinality($2::text[]) = 0 OR kind = ANY($2))
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, f.ChatID, pq.Array(kinds), limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query recent: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			e    events.Event
			kind string
		)
		if err := rows.Scan(&e.ID, &kind, &e.ChatID, &e.UserID, &e.Username, &e.MessageID, &e.Reason, &e.Count, &e.At); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.Kind = events.Kind(kind)
		e.At = e.At.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: rows: %w", err)
	}
	return out, nil
}

// CountSince returns how many events of kind were recorded against a member
// within the given window.
func (s *Store) CountSince(ctx context.Context, chatID, userID int64, kind events.Kind, window time.Duration) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM moderation_events
		WHERE chat_id = $1
		  AND user_id = $2
		  AND kind = $3
		  AND created_at >= $4`

	var count int
	err := s.db.QueryRowContext(ctx, query, chatID, userID, string(kind), time.Now().Add(-window)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("audit: count since: %w", err)
	}
	return count, nil
}
