// Package faq answers maintenance questions posted in the group. A message
// is treated as a question when it mentions the domain and carries a
// question indicator; the topic is then chosen from ordered pattern sets,
// with a generic answer when no topic matches.
package faq

import (
	"cmp"
	_ "embed"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed faq.yaml
var defaultData []byte

// Answer is a canned response for one topic.
type Answer struct {
	Topic string
	Title string
	Text  string
}

// Dealer is one entry of the dealer directory.
type Dealer struct {
	Name     string   `yaml:"name"`
	NameEn   string   `yaml:"name_en"`
	City     string   `yaml:"city"`
	Phone    string   `yaml:"phone"`
	Services []string `yaml:"services"`
	Rating   float64  `yaml:"rating"`
}

type topic struct {
	answer   Answer
	patterns []*regexp.Regexp
}

// Matcher maps free text to canned answers. It is immutable after
// construction and safe for concurrent use.
type Matcher struct {
	keywords   []*regexp.Regexp
	indicators []*regexp.Regexp
	phrases    []string
	topics     []topic
	fallback   Answer
	dealers    []Dealer
}

type fileTopic struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Patterns []string `yaml:"patterns"`
	Answer   string   `yaml:"answer"`
}

type file struct {
	DomainKeywords     []string `yaml:"domain_keywords"`
	QuestionIndicators struct {
		Words   []string `yaml:"words"`
		Phrases []string `yaml:"phrases"`
	} `yaml:"question_indicators"`
	Topics   []fileTopic `yaml:"topics"`
	Fallback fileTopic   `yaml:"fallback"`
	Dealers  []Dealer    `yaml:"dealers"`
}

// Default returns a Matcher over the embedded Q&A data.
func Default() (*Matcher, error) {
	return Load(defaultData)
}

// MustDefault is Default for package initialisation; the embedded data is
// covered by tests.
func MustDefault() *Matcher {
	m, err := Default()
	if err != nil {
		panic(err)
	}
	return m
}

// Load builds a Matcher from YAML.
func Load(data []byte) (*Matcher, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("faq: unmarshal: %w", err)
	}
	if len(f.DomainKeywords) == 0 {
		return nil, fmt.Errorf("faq: no domain keywords")
	}
	if f.Fallback.Answer == "" {
		return nil, fmt.Errorf("faq: fallback answer is required")
	}

	m := &Matcher{
		fallback: Answer{Topic: f.Fallback.ID, Title: f.Fallback.Title, Text: strings.TrimSpace(f.Fallback.Answer)},
	}

	for _, kw := range f.DomainKeywords {
		re, err := keywordRegexp(kw)
		if err != nil {
			return nil, fmt.Errorf("faq: keyword %q: %w", kw, err)
		}
		m.keywords = append(m.keywords, re)
	}
	for _, w := range f.QuestionIndicators.Words {
		re, err := wordRegexp(w)
		if err != nil {
			return nil, fmt.Errorf("faq: indicator %q: %w", w, err)
		}
		m.indicators = append(m.indicators, re)
	}
	for _, p := range f.QuestionIndicators.Phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			m.phrases = append(m.phrases, p)
		}
	}

	seen := make(map[string]bool)
	for _, ft := range f.Topics {
		if ft.ID == "" {
			return nil, fmt.Errorf("faq: topic with empty id")
		}
		if seen[ft.ID] {
			return nil, fmt.Errorf("faq: duplicate topic %q", ft.ID)
		}
		seen[ft.ID] = true

		t := topic{answer: Answer{Topic: ft.ID, Title: ft.Title, Text: strings.TrimSpace(ft.Answer)}}
		for _, p := range ft.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("faq: topic %s: compile %q: %w", ft.ID, p, err)
			}
			t.patterns = append(t.patterns, re)
		}
		m.topics = append(m.topics, t)
	}

	for _, d := range f.Dealers {
		if d.Name == "" {
			return nil, fmt.Errorf("faq: dealer with empty name")
		}
	}
	m.dealers = slices.Clone(f.Dealers)
	slices.SortStableFunc(m.dealers, func(a, b Dealer) int {
		return cmp.Compare(b.Rating, a.Rating)
	})
	return m, nil
}

// keywordRegexp matches ASCII keywords as whole words and non-ASCII keywords
// as substrings, so Arabic words still match behind attached prefixes such
// as "ال" or "ل".
func keywordRegexp(kw string) (*regexp.Regexp, error) {
	kw = strings.TrimSpace(kw)
	if isASCII(kw) {
		return wordRegexp(kw)
	}
	return regexp.Compile("(?i)" + regexp.QuoteMeta(kw))
}

// wordRegexp matches w delimited by non-letters or the ends of the text.
func wordRegexp(w string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(strings.TrimSpace(w)) + `(?:$|[^\p{L}\p{N}])`)
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// IsDomainRelated reports whether text mentions any domain keyword.
func (m *Matcher) IsDomainRelated(text string) bool {
	for _, re := range m.keywords {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// IsQuestion reports whether text carries a question indicator.
func (m *Matcher) IsQuestion(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range m.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	for _, re := range m.indicators {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Match returns the answer for a domain question. ok is false when text is
// not a domain question. A question matching no topic gets the fallback.
func (m *Matcher) Match(text string) (Answer, bool) {
	if !m.IsDomainRelated(text) || !m.IsQuestion(text) {
		return Answer{}, false
	}
	for _, t := range m.topics {
		for _, re := range t.patterns {
			if re.MatchString(text) {
				return t.answer, true
			}
		}
	}
	return m.fallback, true
}

// Topic returns the canned answer for a topic id, as used by commands.
func (m *Matcher) Topic(id string) (Answer, bool) {
	for _, t := range m.topics {
		if t.answer.Topic == id {
			return t.answer, true
		}
	}
	return Answer{}, false
}

// Topics lists every topic answer in match order.
func (m *Matcher) Topics() []Answer {
	out := make([]Answer, len(m.topics))
	for i, t := range m.topics {
		out[i] = t.answer
	}
	return out
}

// Dealers lists the dealer directory, best rated first.
func (m *Matcher) Dealers() []Dealer {
	return slices.Clone(m.dealers)
}
