package patterns

import (
	"strings"
	"testing"
)

func TestDefault_Loads(t *testing.T) {
	lib, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if len(lib.LinkRules) == 0 {
		t.Error("expected link rules")
	}
	if len(lib.SpamRules) == 0 {
		t.Error("expected spam rules")
	}
	if len(lib.VideoRules) == 0 {
		t.Error("expected video file name rules")
	}
	if len(lib.BannedWords) == 0 {
		t.Error("expected a default banned word list")
	}
	if lib.MaxDiacritics != 20 {
		t.Errorf("MaxDiacritics = %d, want 20", lib.MaxDiacritics)
	}
	if lib.MaxEmoji != 8 {
		t.Errorf("MaxEmoji = %d, want 8", lib.MaxEmoji)
	}
}

func TestDefault_Shorteners(t *testing.T) {
	lib := MustDefault()
	want := map[string]bool{"bit.ly": true, "tinyurl.com": true, "goo.gl": true, "t.co": true}
	for _, s := range lib.Shorteners {
		delete(want, s)
	}
	if len(want) != 0 {
		t.Errorf("missing shorteners: %v", want)
	}
}

func TestDefault_RuleIDsUnique(t *testing.T) {
	lib := MustDefault()
	seen := make(map[string]bool)
	for _, group := range [][]Rule{lib.LinkRules, lib.SpamRules, lib.VideoRules} {
		for _, r := range group {
			if seen[r.ID] {
				t.Errorf("duplicate rule id %q", r.ID)
			}
			seen[r.ID] = true
		}
	}
}

func TestSpamRules(t *testing.T) {
	lib := MustDefault()
	byID := make(map[string]Rule)
	for _, r := range lib.SpamRules {
		byID[r.ID] = r
	}

	tests := []struct {
		rule  string
		input string
		match bool
	}{
		{"repeated_chars", "wow!!!!!", true},
		{"repeated_chars", "heeeel no", false},
		{"uppercase", "BUYTHISNOWPLEASE", true},
		{"uppercase", "buythisnowplease", false},
		{"gambling", "أفضل كازينو", true},
		{"gambling", "join our CASINO", true},
		{"scam_tooling", "free download hack tool", true},
		{"fire_emoji", "🔥🔥🔥🔥🔥", true},
		{"fire_emoji", "🔥🔥🔥🔥", false},
		{"money_emoji", "💰💰💰", true},
		{"money_emoji", "💰💰", false},
		{"urgency", "اضغط هنا الآن", true},
	}

	for _, tt := range tests {
		t.Run(tt.rule+"/"+tt.input, func(t *testing.T) {
			r, ok := byID[tt.rule]
			if !ok {
				t.Fatalf("rule %q not found", tt.rule)
			}
			if got := r.Match(tt.input); got != tt.match {
				t.Errorf("%s.Match(%q) = %v, want %v", tt.rule, tt.input, got, tt.match)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad yaml", "spam: [", "unmarshal"},
		{"bad regex", "spam:\n  - id: x\n    regex: '(['\n", "compile"},
		{"unknown builtin", "spam:\n  - id: x\n    builtin: nope\n", "unknown builtin"},
		{"empty rule", "spam:\n  - id: x\n", "neither regex nor builtin"},
		{"missing id", "spam:\n  - regex: 'a'\n", "empty id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoad_DefaultsLimits(t *testing.T) {
	lib, err := Load([]byte("banned_words: ['  ', spam]\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if lib.MaxDiacritics != 20 || lib.MaxEmoji != 8 {
		t.Errorf("limits = %d/%d, want 20/8", lib.MaxDiacritics, lib.MaxEmoji)
	}
	if len(lib.BannedWords) != 1 || lib.BannedWords[0] != "spam" {
		t.Errorf("BannedWords = %v, want [spam]", lib.BannedWords)
	}
}

func TestHasCharFlood(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", false},
		{"aaaa", false},
		{"aaaaa", true},
		{"ااااا", true},
		{"abababab", false},
		{"hello\nworld", false},
	}
	for _, tt := range tests {
		if got := hasCharFlood(tt.input); got != tt.want {
			t.Errorf("hasCharFlood(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
