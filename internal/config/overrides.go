package config

import "sync"

// Overrides layers settings changed at runtime by group admins over a base
// Config. Changes live in memory only; GUARD_GROUPS_FILE is the durable
// source.
type Overrides struct {
	base *Config

	mu     sync.RWMutex
	groups map[int64]GroupSettings
}

// NewOverrides wraps base with an empty override layer.
func NewOverrides(base *Config) *Overrides {
	return &Overrides{base: base, groups: make(map[int64]GroupSettings)}
}

// Group returns the effective settings for chatID: defaults, then the
// groups file, then runtime changes.
func (o *Overrides) Group(chatID int64) Group {
	g := o.base.Group(chatID)
	o.mu.RLock()
	s, ok := o.groups[chatID]
	o.mu.RUnlock()
	if ok {
		g.apply(s)
	}
	return g
}

// Update applies fn to the runtime settings of chatID and returns the new
// effective settings.
func (o *Overrides) Update(chatID int64, fn func(g Group, s *GroupSettings)) Group {
	o.mu.Lock()
	s := o.groups[chatID]
	cur := o.base.Group(chatID)
	cur.apply(s)
	fn(cur, &s)
	o.groups[chatID] = s
	o.mu.Unlock()
	return o.Group(chatID)
}

// ToggleAutoDelete flips message deletion for flagged content.
func (o *Overrides) ToggleAutoDelete(chatID int64) Group {
	return o.Update(chatID, func(g Group, s *GroupSettings) {
		v := !g.AutoDelete
		s.AutoDelete = &v
	})
}

// ToggleAdminNotifications flips admin direct messages.
func (o *Overrides) ToggleAdminNotifications(chatID int64) Group {
	return o.Update(chatID, func(g Group, s *GroupSettings) {
		v := !g.AdminNotifications
		s.AdminNotifications = &v
	})
}

// SetWelcome replaces the welcome message. An empty text restores the
// configured one.
func (o *Overrides) SetWelcome(chatID int64, text string) Group {
	return o.Update(chatID, func(_ Group, s *GroupSettings) {
		s.WelcomeMessage = text
	})
}
