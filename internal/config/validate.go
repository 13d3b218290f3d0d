package config

import (
	"errors"
	"fmt"
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535"))
	}
	switch c.Store {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("redis_addr is required when store is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("store must be %q or %q, got %q", StoreMemory, StoreRedis, c.Store))
	}
	if c.MaxWarnings < 1 {
		errs = append(errs, fmt.Errorf("max_warnings must be at least 1"))
	}
	if c.ReportThreshold < 1 {
		errs = append(errs, fmt.Errorf("report_threshold must be at least 1"))
	}
	if c.NoticeTTL <= 0 {
		errs = append(errs, fmt.Errorf("notice_ttl must be positive"))
	}
	if c.BannedNoticeWindow <= 0 {
		errs = append(errs, fmt.Errorf("banned_notice_window must be positive"))
	}
	switch c.RoleLookupFailure {
	case RoleLookupEnforce, RoleLookupExempt:
	default:
		errs = append(errs, fmt.Errorf("role_lookup_failure must be %q or %q, got %q",
			RoleLookupEnforce, RoleLookupExempt, c.RoleLookupFailure))
	}
	if c.MaxVideoBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_video_bytes must be positive"))
	}
	if c.MaxVideoDuration <= 0 {
		errs = append(errs, fmt.Errorf("max_video_duration must be positive"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1"))
	}
	if c.APIRate <= 0 {
		errs = append(errs, fmt.Errorf("api_rate must be positive"))
	}
	for id, g := range c.Groups {
		if g.MaxWarnings < 0 {
			errs = append(errs, fmt.Errorf("groups.%d.max_warnings must not be negative", id))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ValidateBot is Validate plus the settings only the bot process needs.
func (c *Config) ValidateBot() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.BotToken == "" {
		errs = append(errs, fmt.Errorf("bot_token is required"))
	}
	return errors.Join(errs...)
}
