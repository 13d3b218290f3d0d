package enforcement

import (
	"context"
	"sync"
)

// memberKey scopes a user to a chat.
type memberKey struct {
	chatID int64
	userID int64
}

// MemoryStore keeps enforcement state in process memory. State lives for the
// process lifetime. It is goroutine-safe; a single mutex serializes all
// mutations so increments on the same key are never lost.
type MemoryStore struct {
	mu            sync.RWMutex
	warnings      map[memberKey]int
	banned        map[memberKey]struct{}
	blacklisted   map[memberKey]struct{}
	reports       map[MessageKey]map[int64]struct{}
	totalWarnings int64
	deletedVideos int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		warnings:    make(map[memberKey]int),
		banned:      make(map[memberKey]struct{}),
		blacklisted: make(map[memberKey]struct{}),
		reports:     make(map[MessageKey]map[int64]struct{}),
	}
}

func (s *MemoryStore) IncrWarning(_ context.Context, chatID, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := memberKey{chatID, userID}
	s.warnings[k]++
	s.totalWarnings++
	return s.warnings[k], nil
}

func (s *MemoryStore) Warnings(_ context.Context, chatID, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.warnings[memberKey{chatID, userID}], nil
}

func (s *MemoryStore) Ban(_ context.Context, chatID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return addMember(s.banned, memberKey{chatID, userID}), nil
}

func (s *MemoryStore) IsBanned(_ context.Context, chatID, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.banned[memberKey{chatID, userID}]
	return ok, nil
}

func (s *MemoryStore) Blacklist(_ context.Context, chatID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return addMember(s.blacklisted, memberKey{chatID, userID}), nil
}

func (s *MemoryStore) IsBlacklisted(_ context.Context, chatID, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.blacklisted[memberKey{chatID, userID}]
	return ok, nil
}

func (s *MemoryStore) AddReport(_ context.Context, key MessageKey, reporterID int64) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reporters, ok := s.reports[key]
	if !ok {
		reporters = make(map[int64]struct{})
		s.reports[key] = reporters
	}
	if _, dup := reporters[reporterID]; dup {
		return len(reporters), false, nil
	}
	reporters[reporterID] = struct{}{}
	return len(reporters), true, nil
}

func (s *MemoryStore) ReportCount(_ context.Context, key MessageKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.reports[key]), nil
}

func (s *MemoryStore) IncrDeletedVideos(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deletedVideos++
	return s.deletedVideos, nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Warnings:       s.totalWarnings,
		Banned:         int64(len(s.banned)),
		Blacklisted:    int64(len(s.blacklisted)),
		ReportedVideos: int64(len(s.reports)),
		DeletedVideos:  s.deletedVideos,
	}, nil
}

// addMember inserts k and reports whether it was new. Callers hold the lock.
func addMember(set map[memberKey]struct{}, k memberKey) bool {
	if _, ok := set[k]; ok {
		return false
	}
	set[k] = struct{}{}
	return true
}
