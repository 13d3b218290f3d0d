// Package enforcement owns the mutable moderation state: warning counts per
// (group, user), the ban and blacklist sets, the video report ledger and the
// deleted-video counter.
//
// Every operation is atomic with respect to its own key. No operation spans
// keys, so two implementations are provided: MemoryStore for a single
// process and RedisStore when state must be shared or survive restarts.
package enforcement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidKey is returned by ParseMessageKey for malformed input.
var ErrInvalidKey = errors.New("enforcement: invalid message key")

// MessageKey identifies one message in one chat.
type MessageKey struct {
	ChatID    int64
	MessageID int
}

// String renders the key as "<chat>:<message>", the form used in callback
// data and Redis keys.
func (k MessageKey) String() string {
	return strconv.FormatInt(k.ChatID, 10) + ":" + strconv.Itoa(k.MessageID)
}

// ParseMessageKey is the inverse of MessageKey.String.
func ParseMessageKey(s string) (MessageKey, error) {
	chat, msg, ok := strings.Cut(s, ":")
	if !ok {
		return MessageKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	chatID, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return MessageKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	msgID, err := strconv.Atoi(msg)
	if err != nil || msgID <= 0 {
		return MessageKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return MessageKey{ChatID: chatID, MessageID: msgID}, nil
}

// Stats are process-wide aggregates for the dashboard and /stats.
type Stats struct {
	Warnings       int64 `json:"warnings"`
	Banned         int64 `json:"banned"`
	Blacklisted    int64 `json:"blacklisted"`
	ReportedVideos int64 `json:"reported_videos"`
	DeletedVideos  int64 `json:"deleted_videos"`
}

// Store is the enforcement state. Implementations must be safe for
// concurrent use.
type Store interface {
	// IncrWarning adds one warning for (chat, user) and returns the new count.
	IncrWarning(ctx context.Context, chatID, userID int64) (int, error)
	// Warnings returns the current count, zero when none was recorded.
	Warnings(ctx context.Context, chatID, userID int64) (int, error)

	// Ban adds the user to the chat's ban set. added is false when the user
	// was already banned.
	Ban(ctx context.Context, chatID, userID int64) (added bool, err error)
	IsBanned(ctx context.Context, chatID, userID int64) (bool, error)

	// Blacklist adds the user to the chat's blacklist. added is false when
	// the user was already listed.
	Blacklist(ctx context.Context, chatID, userID int64) (added bool, err error)
	IsBlacklisted(ctx context.Context, chatID, userID int64) (bool, error)

	// AddReport records reporterID against the message and returns the
	// number of distinct reporters. added is false when the reporter had
	// already reported this message; the count is unchanged in that case.
	AddReport(ctx context.Context, key MessageKey, reporterID int64) (count int, added bool, err error)
	ReportCount(ctx context.Context, key MessageKey) (int, error)

	// IncrDeletedVideos bumps the global crowd-removal counter.
	IncrDeletedVideos(ctx context.Context) (int64, error)

	Stats(ctx context.Context) (Stats, error)
}
