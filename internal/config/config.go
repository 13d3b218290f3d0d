// Package config holds groupguard runtime settings. Values start from
// Default, are overridden from the environment by FromEnv, and per-group
// settings can be layered on from a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RoleLookupPolicy decides how a failed admin-role lookup is treated.
type RoleLookupPolicy string

const (
	// RoleLookupEnforce treats the sender as a normal member.
	RoleLookupEnforce RoleLookupPolicy = "enforce"
	// RoleLookupExempt skips enforcement for the message.
	RoleLookupExempt RoleLookupPolicy = "exempt"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// DefaultWelcomeMessage is sent to new members. {name} is replaced with the
// member's first name.
const DefaultWelcomeMessage = "🚗 أهلاً وسهلاً بك يا {name} في نادي مالكي مرسيدس!\n\n" +
	"يرجى الالتزام بقوانين المجموعة:\n" +
	"• مناقشة السيارات والمواضيع ذات الصلة\n" +
	"• عدم إرسال روابط مشبوهة\n" +
	"• الاحترام المتبادل\n\n" +
	"استمتع بوقتك معنا! 🌟"

// Config is the full process configuration.
type Config struct {
	BotToken      string
	Port          int
	AdminPassword string

	Store       string
	RedisAddr   string
	NATSURL     string
	DatabaseURL string

	MaxWarnings        int
	ReportThreshold    int
	NoticeTTL          time.Duration
	BannedNoticeWindow time.Duration
	RoleLookupFailure  RoleLookupPolicy

	MaxVideoBytes    int64
	MaxVideoDuration time.Duration

	PatternsFile string
	GroupsFile   string

	Workers int
	APIRate float64 // outbound platform calls per second

	LogLevel  string
	LogFormat string

	Groups map[int64]GroupSettings
}

// GroupSettings overrides the defaults for one chat. Unset fields inherit.
type GroupSettings struct {
	MaxWarnings        int      `yaml:"max_warnings"`
	BannedWords        []string `yaml:"banned_words"`
	AutoDelete         *bool    `yaml:"auto_delete"`
	AdminNotifications *bool    `yaml:"admin_notifications"`
	WelcomeMessage     string   `yaml:"welcome_message"`
}

// Group is the effective policy for one chat. A nil BannedWords means the
// pattern library's default list applies.
type Group struct {
	ChatID             int64
	MaxWarnings        int
	BannedWords        []string
	AutoDelete         bool
	AdminNotifications bool
	WelcomeMessage     string
}

// Default returns a configuration suitable for local development.
func Default() Config {
	return Config{
		Port:               8080,
		Store:              StoreMemory,
		RedisAddr:          "localhost:6379",
		MaxWarnings:        3,
		ReportThreshold:    2,
		NoticeTTL:          30 * time.Second,
		BannedNoticeWindow: 10 * time.Minute,
		RoleLookupFailure:  RoleLookupEnforce,
		MaxVideoBytes:      50 << 20,
		MaxVideoDuration:   5 * time.Minute,
		Workers:            16,
		APIRate:            25,
		LogLevel:           "info",
		LogFormat:          "console",
		Groups:             make(map[int64]GroupSettings),
	}
}

// FromEnv returns Default overridden by environment variables read through
// getenv (os.Getenv when nil). Malformed values keep the default and are
// reported in the returned warnings so the caller can log them.
func FromEnv(getenv func(string) string) (Config, []string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	c := Default()
	var warnings []string

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s=%q: not an integer, using %d", key, v, *dst))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s=%q: not a duration, using %s", key, v, *dst))
				return
			}
			*dst = d
		}
	}

	str("BOT_TOKEN", &c.BotToken)
	integer("PORT", &c.Port)
	str("ADMIN_PASSWORD", &c.AdminPassword)
	str("GUARD_STORE", &c.Store)
	str("REDIS_ADDR", &c.RedisAddr)
	str("NATS_URL", &c.NATSURL)
	str("DATABASE_URL", &c.DatabaseURL)
	integer("GUARD_MAX_WARNINGS", &c.MaxWarnings)
	integer("GUARD_REPORT_THRESHOLD", &c.ReportThreshold)
	duration("GUARD_NOTICE_TTL", &c.NoticeTTL)
	duration("GUARD_BANNED_NOTICE_WINDOW", &c.BannedNoticeWindow)
	if v := getenv("GUARD_ROLE_LOOKUP_FAILURE"); v != "" {
		c.RoleLookupFailure = RoleLookupPolicy(strings.ToLower(v))
	}
	if v := getenv("GUARD_MAX_VIDEO_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("GUARD_MAX_VIDEO_BYTES=%q: not an integer, using %d", v, c.MaxVideoBytes))
		} else {
			c.MaxVideoBytes = n
		}
	}
	duration("GUARD_MAX_VIDEO_DURATION", &c.MaxVideoDuration)
	str("GUARD_PATTERNS_FILE", &c.PatternsFile)
	str("GUARD_GROUPS_FILE", &c.GroupsFile)
	integer("GUARD_WORKERS", &c.Workers)
	if v := getenv("GUARD_API_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("GUARD_API_RATE=%q: not a number, using %g", v, c.APIRate))
		} else {
			c.APIRate = f
		}
	}
	str("GUARD_LOG_LEVEL", &c.LogLevel)
	str("GUARD_LOG_FORMAT", &c.LogFormat)

	return c, warnings
}

// groupsFile is the on-disk layout of GUARD_GROUPS_FILE.
type groupsFile struct {
	Groups map[int64]GroupSettings `yaml:"groups"`
}

// LoadGroups reads per-group settings from a YAML file into c.Groups.
func (c *Config) LoadGroups(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read groups: %w", err)
	}
	return c.ParseGroups(data)
}

// ParseGroups decodes per-group settings from YAML, replacing any loaded
// before.
func (c *Config) ParseGroups(data []byte) error {
	var f groupsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config: unmarshal groups: %w", err)
	}
	c.Groups = make(map[int64]GroupSettings, len(f.Groups))
	for id, g := range f.Groups {
		c.Groups[id] = g
	}
	return nil
}

// Group returns the effective settings for chatID.
func (c *Config) Group(chatID int64) Group {
	g := Group{
		ChatID:             chatID,
		MaxWarnings:        c.MaxWarnings,
		AutoDelete:         true,
		AdminNotifications: true,
		WelcomeMessage:     DefaultWelcomeMessage,
	}
	if s, ok := c.Groups[chatID]; ok {
		g.apply(s)
	}
	return g
}

// apply layers the fields set in s over g.
func (g *Group) apply(s GroupSettings) {
	if s.MaxWarnings > 0 {
		g.MaxWarnings = s.MaxWarnings
	}
	if s.BannedWords != nil {
		g.BannedWords = s.BannedWords
	}
	if s.AutoDelete != nil {
		g.AutoDelete = *s.AutoDelete
	}
	if s.AdminNotifications != nil {
		g.AdminNotifications = *s.AdminNotifications
	}
	if s.WelcomeMessage != "" {
		g.WelcomeMessage = s.WelcomeMessage
	}
}

// Welcome renders the group's welcome message for a member.
func (g Group) Welcome(name string) string {
	return strings.ReplaceAll(g.WelcomeMessage, "{name}", name)
}
