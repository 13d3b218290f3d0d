package config

import (
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefault_Valid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if c.MaxWarnings != 3 || c.ReportThreshold != 2 {
		t.Errorf("defaults = warnings %d threshold %d, want 3 and 2", c.MaxWarnings, c.ReportThreshold)
	}
	if c.RoleLookupFailure != RoleLookupEnforce {
		t.Errorf("RoleLookupFailure = %q, want enforce", c.RoleLookupFailure)
	}
}

func TestFromEnv(t *testing.T) {
	c, warnings := FromEnv(envMap(map[string]string{
		"BOT_TOKEN":                 "123:abc",
		"PORT":                      "9090",
		"GUARD_STORE":               "redis",
		"GUARD_MAX_WARNINGS":        "5",
		"GUARD_NOTICE_TTL":          "45s",
		"GUARD_ROLE_LOOKUP_FAILURE": "EXEMPT",
		"GUARD_MAX_VIDEO_BYTES":     "1048576",
		"GUARD_API_RATE":            "10.5",
	}))
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if c.BotToken != "123:abc" || c.Port != 9090 || c.Store != StoreRedis {
		t.Errorf("basic fields not applied: %+v", c)
	}
	if c.MaxWarnings != 5 {
		t.Errorf("MaxWarnings = %d, want 5", c.MaxWarnings)
	}
	if c.NoticeTTL != 45*time.Second {
		t.Errorf("NoticeTTL = %s, want 45s", c.NoticeTTL)
	}
	if c.RoleLookupFailure != RoleLookupExempt {
		t.Errorf("RoleLookupFailure = %q, want exempt", c.RoleLookupFailure)
	}
	if c.MaxVideoBytes != 1<<20 {
		t.Errorf("MaxVideoBytes = %d", c.MaxVideoBytes)
	}
	if c.APIRate != 10.5 {
		t.Errorf("APIRate = %g", c.APIRate)
	}
}

func TestFromEnv_MalformedKeepsDefault(t *testing.T) {
	c, warnings := FromEnv(envMap(map[string]string{
		"PORT":             "eighty",
		"GUARD_NOTICE_TTL": "soon",
	}))
	if c.Port != 8080 {
		t.Errorf("Port = %d, want default 8080", c.Port)
	}
	if c.NoticeTTL != 30*time.Second {
		t.Errorf("NoticeTTL = %s, want default 30s", c.NoticeTTL)
	}
	if len(warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", warnings)
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	c := Default()
	c.Port = 0
	c.Store = "etcd"
	c.RoleLookupFailure = "maybe"
	c.Workers = 0

	err := c.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"port", "store", "role_lookup_failure", "workers"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidateBot_RequiresToken(t *testing.T) {
	c := Default()
	if err := c.ValidateBot(); err == nil || !strings.Contains(err.Error(), "bot_token") {
		t.Errorf("ValidateBot() = %v, want bot_token error", err)
	}
	c.BotToken = "x"
	if err := c.ValidateBot(); err != nil {
		t.Errorf("ValidateBot() = %v, want nil", err)
	}
}

func TestGroup_Overrides(t *testing.T) {
	c := Default()
	err := c.ParseGroups([]byte(`
groups:
  -1001:
    max_warnings: 5
    banned_words: ["followers"]
    auto_delete: false
    welcome_message: "hi {name}"
  -1002:
    admin_notifications: false
`))
	if err != nil {
		t.Fatalf("ParseGroups: %v", err)
	}

	g := c.Group(-1001)
	if g.MaxWarnings != 5 || g.AutoDelete || !g.AdminNotifications {
		t.Errorf("group -1001 = %+v", g)
	}
	if len(g.BannedWords) != 1 || g.BannedWords[0] != "followers" {
		t.Errorf("BannedWords = %v", g.BannedWords)
	}
	if got := g.Welcome("Sara"); got != "hi Sara" {
		t.Errorf("Welcome = %q", got)
	}

	g = c.Group(-1002)
	if g.MaxWarnings != 3 || !g.AutoDelete || g.AdminNotifications {
		t.Errorf("group -1002 = %+v", g)
	}
	if g.BannedWords != nil {
		t.Errorf("unset banned words should stay nil, got %v", g.BannedWords)
	}

	g = c.Group(42)
	if g.WelcomeMessage != DefaultWelcomeMessage {
		t.Error("unknown group should use the default welcome message")
	}
}

func TestParseGroups_Invalid(t *testing.T) {
	c := Default()
	if err := c.ParseGroups([]byte("groups: [1, 2")); err == nil {
		t.Error("expected unmarshal error")
	}
}
