package enforcement

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key written by RedisStore.
const DefaultKeyPrefix = "guard:"

// Key layout, relative to the prefix:
//
//	warn:<chat>:<user>       INCR counter
//	bans:<chat>              SET of user ids
//	blacklist:<chat>         SET of user ids
//	reports:<chat>:<msg>     SET of reporter ids
//	stats:<name>             INCR counters for Stats
const (
	warnPrefix      = "warn:"
	bansPrefix      = "bans:"
	blacklistPrefix = "blacklist:"
	reportsPrefix   = "reports:"

	statWarnings       = "stats:warnings"
	statBanned         = "stats:banned"
	statBlacklisted    = "stats:blacklisted"
	statReportedVideos = "stats:reported_videos"
	statDeletedVideos  = "stats:deleted_videos"
)

// RedisStore keeps enforcement state in Redis. Counters use INCR and sets
// use SADD, both atomic per key, so several bot processes may share one
// store. Keys carry no TTL: state persists until removed externally.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore. An empty prefix selects
// DefaultKeyPrefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) memberKey(kind string, chatID int64) string {
	return s.prefix + kind + strconv.FormatInt(chatID, 10)
}

func (s *RedisStore) warnKey(chatID, userID int64) string {
	return s.prefix + warnPrefix + strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10)
}

func (s *RedisStore) reportKey(key MessageKey) string {
	return s.prefix + reportsPrefix + key.String()
}

func (s *RedisStore) IncrWarning(ctx context.Context, chatID, userID int64) (int, error) {
	count, err := s.client.Incr(ctx, s.warnKey(chatID, userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("enforcement: incr warning: %w", err)
	}
	s.bump(ctx, statWarnings)
	return int(count), nil
}

func (s *RedisStore) Warnings(ctx context.Context, chatID, userID int64) (int, error) {
	n, err := s.client.Get(ctx, s.warnKey(chatID, userID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("enforcement: get warnings: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Ban(ctx context.Context, chatID, userID int64) (bool, error) {
	return s.addMember(ctx, bansPrefix, statBanned, chatID, userID)
}

func (s *RedisStore) IsBanned(ctx context.Context, chatID, userID int64) (bool, error) {
	return s.isMember(ctx, bansPrefix, chatID, userID)
}

func (s *RedisStore) Blacklist(ctx context.Context, chatID, userID int64) (bool, error) {
	return s.addMember(ctx, blacklistPrefix, statBlacklisted, chatID, userID)
}

func (s *RedisStore) IsBlacklisted(ctx context.Context, chatID, userID int64) (bool, error) {
	return s.isMember(ctx, blacklistPrefix, chatID, userID)
}

func (s *RedisStore) addMember(ctx context.Context, kind, stat string, chatID, userID int64) (bool, error) {
	n, err := s.client.SAdd(ctx, s.memberKey(kind, chatID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("enforcement: sadd %s: %w", kind, err)
	}
	if n == 1 {
		s.bump(ctx, stat)
	}
	return n == 1, nil
}

func (s *RedisStore) isMember(ctx context.Context, kind string, chatID, userID int64) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.memberKey(kind, chatID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("enforcement: sismember %s: %w", kind, err)
	}
	return ok, nil
}

// AddReport runs SADD and SCARD in one MULTI so the returned count includes
// exactly this reporter's contribution.
func (s *RedisStore) AddReport(ctx context.Context, key MessageKey, reporterID int64) (int, bool, error) {
	rk := s.reportKey(key)

	var added, card *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.SAdd(ctx, rk, reporterID)
		card = pipe.SCard(ctx, rk)
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("enforcement: add report: %w", err)
	}

	count := int(card.Val())
	isNew := added.Val() == 1
	if isNew && count == 1 {
		s.bump(ctx, statReportedVideos)
	}
	return count, isNew, nil
}

func (s *RedisStore) ReportCount(ctx context.Context, key MessageKey) (int, error) {
	n, err := s.client.SCard(ctx, s.reportKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("enforcement: report count: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) IncrDeletedVideos(ctx context.Context) (int64, error) {
	n, err := s.client.Incr(ctx, s.prefix+statDeletedVideos).Result()
	if err != nil {
		return 0, fmt.Errorf("enforcement: incr deleted videos: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	names := []string{statWarnings, statBanned, statBlacklisted, statReportedVideos, statDeletedVideos}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = s.prefix + n
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("enforcement: stats: %w", err)
	}

	nums := make([]int64, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return Stats{}, fmt.Errorf("enforcement: stats %s: %w", names[i], err)
		}
		nums[i] = n
	}

	return Stats{
		Warnings:       nums[0],
		Banned:         nums[1],
		Blacklisted:    nums[2],
		ReportedVideos: nums[3],
		DeletedVideos:  nums[4],
	}, nil
}

// bump increments a statistics counter. Statistics are advisory; errors
// are ignored.
func (s *RedisStore) bump(ctx context.Context, stat string) {
	_ = s.client.Incr(ctx, s.prefix+stat).Err()
}
