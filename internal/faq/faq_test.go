package faq

import (
	"strings"
	"testing"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	return m
}

func TestDefault_TopicOrder(t *testing.T) {
	m := newTestMatcher(t)
	want := []string{"oil", "service", "engine_warning", "parts", "electrical", "transmission"}

	got := m.Topics()
	if len(got) != len(want) {
		t.Fatalf("Topics() has %d entries, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].Topic != id {
			t.Errorf("topic[%d] = %q, want %q", i, got[i].Topic, id)
		}
		if got[i].Text == "" {
			t.Errorf("topic %q has no answer", id)
		}
	}
}

func TestMatch(t *testing.T) {
	m := newTestMatcher(t)

	tests := []struct {
		name  string
		text  string
		ok    bool
		topic string
	}{
		{"arabic oil question with model code", "ما نوع الزيت المناسب لمرسيدس سي 200؟", true, "oil"},
		{"english oil", "What oil should I use in my w204?", true, "oil"},
		{"service interval", "كم مرة أسوي سيرفس للمرسيدس؟", true, "service"},
		{"check engine", "check engine light on my e-class, any idea?", true, "engine_warning"},
		{"engine lamp arabic", "لمبة المحرك تشتغل - إيش السبب؟", true, "engine_warning"},
		{"parts", "where can I buy genuine parts for a glc?", true, "parts"},
		{"electrical", "my mercedes won't start, battery is new. help", true, "electrical"},
		{"transmission", "7g-tronic shifting hard, what should I check?", true, "transmission"},
		{"fallback", "هل المرسيدس أفضل من غيرها؟", true, "general"},
		{"domain without question", "washed my mercedes today", false, ""},
		{"question without domain", "what time is the meeting?", false, ""},
		{"greeting", "السلام عليكم", false, ""},
		{"keyword inside another word", "does anyone like the movie Declassified?", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := m.Match(tt.text)
			if ok != tt.ok {
				t.Fatalf("Match(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			}
			if ok && a.Topic != tt.topic {
				t.Errorf("Match(%q) topic = %q, want %q", tt.text, a.Topic, tt.topic)
			}
		})
	}
}

func TestMatch_OilAnswerContent(t *testing.T) {
	m := newTestMatcher(t)
	a, ok := m.Match("ما نوع الزيت المناسب لمرسيدس سي 200؟")
	if !ok {
		t.Fatal("expected a match")
	}
	if !strings.Contains(a.Text, "229.5") {
		t.Errorf("oil answer missing the MB 229.5 specification: %q", a.Text)
	}
}

func TestIsQuestion(t *testing.T) {
	m := newTestMatcher(t)

	for _, text := range []string{"كيف أغير الفلتر", "what now", "ok?", "تمام؟", "أحد يعرف ورشة"} {
		if !m.IsQuestion(text) {
			t.Errorf("IsQuestion(%q) = false", text)
		}
	}
	// "ما" inside a longer word is not an indicator.
	for _, text := range []string{"نادي مالكي مرسيدس", "somehow fine"} {
		if m.IsQuestion(text) {
			t.Errorf("IsQuestion(%q) = true", text)
		}
	}
}

func TestTopic(t *testing.T) {
	m := newTestMatcher(t)
	if a, ok := m.Topic("parts"); !ok || a.Topic != "parts" {
		t.Errorf("Topic(parts) = (%+v, %v)", a, ok)
	}
	if _, ok := m.Topic("dealers"); ok {
		t.Error("Topic(dealers) should not exist")
	}
}

func TestDealers_SortedByRating(t *testing.T) {
	m := newTestMatcher(t)
	dealers := m.Dealers()
	if len(dealers) != 5 {
		t.Fatalf("dealers = %d, want 5", len(dealers))
	}
	if dealers[0].NameEn != "Al Jazirah Vehicles" {
		t.Errorf("first dealer = %q, want the best rated", dealers[0].NameEn)
	}
	for i := 1; i < len(dealers); i++ {
		if dealers[i].Rating > dealers[i-1].Rating {
			t.Errorf("dealer %d rated %.1f above dealer %d", i, dealers[i].Rating, i-1)
		}
	}

	dealers[0].Name = "changed"
	if m.Dealers()[0].Name == "changed" {
		t.Error("Dealers exposed the matcher's slice")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad yaml", "topics: [", "unmarshal"},
		{"no keywords", "fallback: {answer: x}", "no domain keywords"},
		{"no fallback", "domain_keywords: [oil]", "fallback"},
		{"bad regex", "domain_keywords: [oil]\nfallback: {answer: x}\ntopics:\n  - id: a\n    patterns: ['(']", "compile"},
		{"duplicate topic", "domain_keywords: [oil]\nfallback: {answer: x}\ntopics:\n  - id: a\n  - id: a", "duplicate"},
		{"empty id", "domain_keywords: [oil]\nfallback: {answer: x}\ntopics:\n  - title: t", "empty id"},
		{"dealer without name", "domain_keywords: [oil]\nfallback: {answer: x}\ndealers:\n  - city: x", "dealer with empty name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}
