// Package ratelimit provides fixed-window rate limiting using the INCR +
// EXPIRE algorithm, with an in-process variant for single-instance
// deployments. The bot uses it to send at most one notice per window when a
// banned member keeps posting.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Rule defines a rate limiting policy: the key prefix, maximum number of
// events allowed in the window, and the window duration.
type Rule struct {
	Key    string        // key prefix (e.g., "rl:banned_notice:")
	Limit  int           // max count in the window
	Window time.Duration // time window
}

// BannedNotice allows one group notice per member per window while their
// messages are being removed.
func BannedNotice(window time.Duration) Rule {
	return Rule{Key: "rl:banned_notice:", Limit: 1, Window: window}
}

// Allower decides whether an event for identifier is within rule.
type Allower interface {
	Allow(ctx context.Context, identifier string, rule Rule) (bool, error)
}

// Limiter performs rate limiting checks against Redis.
type Limiter struct {
	client *redis.Client
	log    *zap.Logger
}

// NewLimiter creates a Limiter backed by the given Redis client.
func NewLimiter(client *redis.Client, log *zap.Logger) *Limiter {
	return &Limiter{client: client, log: log.Named("ratelimit")}
}

// Allow increments the counter for identifier and sets the expiry on first
// access.
//
// Returns true if the event is allowed, false if rate limited. On Redis
// errors the method fails open (returns true) so a Redis outage degrades to
// extra notices rather than silence.
func (l *Limiter) Allow(ctx context.Context, identifier string, rule Rule) (bool, error) {
	key := rule.Key + identifier

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.log.Warn("redis INCR failed, failing open", zap.String("key", key), zap.Error(err))
		return true, err
	}

	// On the first increment, set the expiry to define the window boundary.
	if count == 1 {
		if err := l.client.Expire(ctx, key, rule.Window).Err(); err != nil {
			l.log.Warn("redis EXPIRE failed, failing open", zap.String("key", key), zap.Error(err))
			// The key has no TTL and would persist; remove it so it cannot
			// block the identifier forever.
			l.client.Del(ctx, key)
			return true, err
		}
	}

	return int(count) <= rule.Limit, nil
}
