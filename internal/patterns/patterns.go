// Package patterns holds the rule tables consumed by the content classifier:
// link reputation, spam phrasing, banned words and video file name red flags.
//
// The default tables are embedded in the binary (patterns.yaml) so a running
// bot always carries a known rule set. Operators can supply their own file
// with the same layout through LoadFile.
package patterns

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultRules []byte

// Rule pairs a matcher with the reason label reported when it fires.
type Rule struct {
	ID    string
	Label string
	match func(string) bool
}

// Match reports whether the rule fires on s.
func (r Rule) Match(s string) bool {
	return r.match(s)
}

// Library is the compiled, immutable set of rules. It is safe for concurrent
// use once built.
type Library struct {
	LinkRules      []Rule
	Shorteners     []string
	SuspiciousTLDs []string
	SpamRules      []Rule
	BannedWords    []string
	VideoRules     []Rule
	MaxDiacritics  int
	MaxEmoji       int
}

type ruleSpec struct {
	ID            string `yaml:"id"`
	Label         string `yaml:"label"`
	Regex         string `yaml:"regex"`
	Builtin       string `yaml:"builtin"`
	CaseSensitive bool   `yaml:"case_sensitive"`
}

type file struct {
	Links struct {
		Rules          []ruleSpec `yaml:"rules"`
		Shorteners     []string   `yaml:"shorteners"`
		SuspiciousTLDs []string   `yaml:"suspicious_tlds"`
	} `yaml:"links"`
	Spam        []ruleSpec `yaml:"spam"`
	BannedWords []string   `yaml:"banned_words"`
	Limits      struct {
		MaxDiacritics int `yaml:"max_diacritics"`
		MaxEmoji      int `yaml:"max_emoji"`
	} `yaml:"limits"`
	Video struct {
		FilenameRules []ruleSpec `yaml:"filename_rules"`
	} `yaml:"video"`
}

// Default returns the library built from the embedded rule file.
func Default() (*Library, error) {
	return Load(defaultRules)
}

// MustDefault is like Default but panics if the embedded rules are invalid.
// The embedded file is covered by tests, so this only fails on a broken build.
func MustDefault() *Library {
	lib, err := Default()
	if err != nil {
		panic(err)
	}
	return lib
}

// LoadFile reads and compiles a rule file from disk.
func LoadFile(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("patterns: read %s: %w", path, err)
	}
	return Load(data)
}

// Load parses YAML rule data and compiles every rule.
func Load(data []byte) (*Library, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("patterns: unmarshal: %w", err)
	}

	links, err := compileRules(f.Links.Rules)
	if err != nil {
		return nil, err
	}
	spam, err := compileRules(f.Spam)
	if err != nil {
		return nil, err
	}
	video, err := compileRules(f.Video.FilenameRules)
	if err != nil {
		return nil, err
	}

	lib := &Library{
		LinkRules:      links,
		Shorteners:     lowerAll(f.Links.Shorteners),
		SuspiciousTLDs: lowerAll(f.Links.SuspiciousTLDs),
		SpamRules:      spam,
		BannedWords:    cleanWords(f.BannedWords),
		VideoRules:     video,
		MaxDiacritics:  f.Limits.MaxDiacritics,
		MaxEmoji:       f.Limits.MaxEmoji,
	}
	if lib.MaxDiacritics <= 0 {
		lib.MaxDiacritics = 20
	}
	if lib.MaxEmoji <= 0 {
		lib.MaxEmoji = 8
	}
	return lib, nil
}

func compileRules(specs []ruleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for _, s := range specs {
		if s.ID == "" {
			return nil, fmt.Errorf("patterns: rule with empty id")
		}
		label := s.Label
		if label == "" {
			label = s.ID
		}

		switch {
		case s.Builtin != "":
			fn, ok := builtins[s.Builtin]
			if !ok {
				return nil, fmt.Errorf("patterns: rule %s: unknown builtin %q", s.ID, s.Builtin)
			}
			rules = append(rules, Rule{ID: s.ID, Label: label, match: fn})

		case s.Regex != "":
			expr := s.Regex
			if !s.CaseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("patterns: rule %s: compile %q: %w", s.ID, s.Regex, err)
			}
			rules = append(rules, Rule{ID: s.ID, Label: label, match: re.MatchString})

		default:
			return nil, fmt.Errorf("patterns: rule %s has neither regex nor builtin", s.ID)
		}
	}
	return rules, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// cleanWords drops blank entries from a banned word list.
func cleanWords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, w := range in {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}
