package moderation

import (
	"strings"
	"testing"
	"time"

	"github.com/whisper/groupguard/internal/patterns"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	lib, err := patterns.Default()
	if err != nil {
		t.Fatalf("patterns.Default() error: %v", err)
	}
	return NewClassifier(lib, DefaultVideoLimits())
}

func TestNewClassifier_DefaultLimits(t *testing.T) {
	c := NewClassifier(patterns.MustDefault(), VideoLimits{})
	if c.limits.MaxBytes != DefaultMaxVideoBytes {
		t.Errorf("MaxBytes = %d, want %d", c.limits.MaxBytes, DefaultMaxVideoBytes)
	}
	if c.limits.MaxDuration != DefaultMaxVideoDuration {
		t.Errorf("MaxDuration = %s, want %s", c.limits.MaxDuration, DefaultMaxVideoDuration)
	}
}

func TestClassifyText_ScamWithShortLink(t *testing.T) {
	c := newTestClassifier(t)

	v := c.ClassifyText("free download hack tool bit.ly/xyz")
	if !v.Flagged || !v.ShouldRemove {
		t.Fatalf("expected flagged verdict, got %+v", v)
	}
	if !v.Has(KindLink) {
		t.Errorf("expected a suspicious link reason, got %v", v.Labels())
	}
	if !v.Has(KindSpam) {
		t.Errorf("expected a spam reason, got %v", v.Labels())
	}
	if v.Primary().Kind != KindLink {
		t.Errorf("primary reason kind = %s, want %s", v.Primary().Kind, KindLink)
	}
}

func TestClassifyText_CleanMessages(t *testing.T) {
	c := newTestClassifier(t)

	messages := []string{
		"",
		"hello, how are you?",
		"my E-class needs an oil change next week",
		"upgrade to v2.0",
		"pi is about 3.14",
		"see https://www.mercedes-benz.com/en/ for details",
		"ما نوع الزيت المناسب لمرسيدس سي 200؟",
		"السلام عليكم، كيف حالكم؟",
		"wow!!! that's great!!",
	}

	for _, msg := range messages {
		v := c.ClassifyText(msg)
		if v.Flagged {
			t.Errorf("ClassifyText(%q) flagged (%v), expected clean", msg, v.Labels())
		}
		if len(v.Reasons) != 0 {
			t.Errorf("ClassifyText(%q) clean verdict carries reasons %v", msg, v.Labels())
		}
	}
}

func TestClassifyText_BannedWords(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		name    string
		input   string
		words   []string
		flagged bool
	}{
		{"default arabic word", "هذا نصب واضح", nil, true},
		{"custom word", "selling FOLLOWERS here", []string{"followers"}, true},
		{"custom list replaces default", "هذا نصب واضح", []string{"followers"}, false},
		{"blank entries ignored", "hello", []string{"", "  "}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Verdict
			if tt.words == nil {
				v = c.ClassifyText(tt.input)
			} else {
				v = c.ClassifyTextWith(tt.input, tt.words)
			}
			if got := v.Has(KindBannedWord); got != tt.flagged {
				t.Errorf("Has(banned_word) = %v, want %v (reasons %v)", got, tt.flagged, v.Labels())
			}
		})
	}
}

func TestClassifyText_AllCategoriesAccumulate(t *testing.T) {
	c := newTestClassifier(t)

	text := "هاك https://bit.ly/abc كازينو !!!!!!"
	v := c.ClassifyText(text)

	wantOrder := []Kind{KindLink, KindBannedWord, KindSpam}
	if len(v.Reasons) < len(wantOrder) {
		t.Fatalf("expected at least %d reasons, got %v", len(wantOrder), v.Labels())
	}
	for i, k := range wantOrder {
		if v.Reasons[i].Kind != k {
			t.Errorf("reason[%d].Kind = %s, want %s", i, v.Reasons[i].Kind, k)
		}
	}
	if !strings.Contains(v.Summary(), reasonSeparator) {
		t.Errorf("Summary() = %q, expected joined reasons", v.Summary())
	}
}

func TestClassifyText_CharFrequency(t *testing.T) {
	c := newTestClassifier(t)

	diacritics := strings.Repeat("بَ", 21)
	v := c.ClassifyText(diacritics)
	if !v.Has(KindDiacritics) {
		t.Errorf("expected excessive diacritics for 21 marks, got %v", v.Labels())
	}

	v = c.ClassifyText(strings.Repeat("بَ", 20))
	if v.Has(KindDiacritics) {
		t.Errorf("20 marks should pass, got %v", v.Labels())
	}

	emoji := "😀😁😂🤣😃😄😅😆😉"
	v = c.ClassifyText(emoji)
	if !v.Has(KindEmoji) {
		t.Errorf("expected excessive emoji for 9 emoji, got %v", v.Labels())
	}

	v = c.ClassifyText("😀😁😂🤣😃😄😅😆")
	if v.Has(KindEmoji) {
		t.Errorf("8 emoji should pass, got %v", v.Labels())
	}
}

func TestClassifyVideo_SizeBoundary(t *testing.T) {
	c := newTestClassifier(t)

	atLimit := c.ClassifyVideo(VideoMeta{FileSize: 50 << 20, Duration: time.Minute})
	if atLimit.Flagged {
		t.Errorf("video exactly at 50 MiB flagged: %v", atLimit.Labels())
	}

	over := c.ClassifyVideo(VideoMeta{FileSize: 50<<20 + 1, Duration: time.Minute})
	if !over.Flagged || !over.Has(KindVideoSize) {
		t.Errorf("video one byte over limit not flagged: %+v", over)
	}
}

func TestClassifyVideo_DurationBoundary(t *testing.T) {
	c := newTestClassifier(t)

	if v := c.ClassifyVideo(VideoMeta{Duration: 300 * time.Second}); v.Flagged {
		t.Errorf("300s video flagged: %v", v.Labels())
	}

	v := c.ClassifyVideo(VideoMeta{Duration: 365 * time.Second})
	if !v.Has(KindVideoDuration) {
		t.Fatalf("365s video not flagged: %+v", v)
	}
	if !strings.Contains(v.Primary().Label, "6:05") {
		t.Errorf("duration label = %q, want minutes:seconds 6:05", v.Primary().Label)
	}
	if !strings.Contains(v.Primary().Label, "5:00") {
		t.Errorf("duration label = %q, want limit 5:00", v.Primary().Label)
	}
}

func TestClassifyVideo_Filename(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		name     string
		filename string
		flagged  bool
		rule     string
	}{
		{"clean", "engine_noise_w204.mp4", false, ""},
		{"empty", "", false, ""},
		{"adult", "NSFW_clip.mp4", true, "adult_filename"},
		{"violent", "gore_compilation.mp4", true, "violent_filename"},
		{"first match only", "xxx_gore.mp4", true, "adult_filename"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.ClassifyVideo(VideoMeta{FileName: tt.filename})
			if v.Flagged != tt.flagged {
				t.Fatalf("Flagged = %v, want %v (%v)", v.Flagged, tt.flagged, v.Labels())
			}
			if !tt.flagged {
				return
			}
			if len(v.Reasons) != 1 {
				t.Errorf("expected exactly one file name reason, got %v", v.Labels())
			}
			if v.Primary().Rule != tt.rule {
				t.Errorf("rule = %q, want %q", v.Primary().Rule, tt.rule)
			}
		})
	}
}

func TestClassifyVideo_ChecksAreIndependent(t *testing.T) {
	c := newTestClassifier(t)

	v := c.ClassifyVideo(VideoMeta{
		FileSize: 80 << 20,
		Duration: 10 * time.Minute,
		FileName: "porn.mp4",
	})
	want := []Kind{KindVideoSize, KindVideoDuration, KindVideoFilename}
	if len(v.Reasons) != len(want) {
		t.Fatalf("expected %d reasons, got %v", len(want), v.Labels())
	}
	for i, k := range want {
		if v.Reasons[i].Kind != k {
			t.Errorf("reason[%d] = %s, want %s", i, v.Reasons[i].Kind, k)
		}
	}
	if got := strings.Count(v.Summary(), reasonSeparator); got != 2 {
		t.Errorf("Summary() = %q, want 3 reasons joined", v.Summary())
	}
}

func TestVerdict_Zero(t *testing.T) {
	var v Verdict
	if v.Flagged || v.ShouldRemove {
		t.Error("zero verdict should be clean")
	}
	if v.Primary() != (Reason{}) {
		t.Errorf("Primary() on clean verdict = %+v", v.Primary())
	}
	if v.Summary() != "" {
		t.Errorf("Summary() on clean verdict = %q", v.Summary())
	}
}

func TestFormatMinSec(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{300 * time.Second, "5:00"},
		{3725 * time.Second, "62:05"},
	}
	for _, tt := range tests {
		if got := formatMinSec(tt.d); got != tt.want {
			t.Errorf("formatMinSec(%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// TestPerformance keeps text classification well under a millisecond so it
// can run inline on every group message.
func TestPerformance(t *testing.T) {
	c := newTestClassifier(t)
	msg := "hey, my w204 c200 shows a check engine light after the last oil change. any ideas? https://example.com/photo"

	const iterations = 1000
	start := time.Now()
	for i := 0; i < iterations; i++ {
		c.ClassifyText(msg)
	}
	avgNs := time.Since(start).Nanoseconds() / iterations

	t.Logf("average ClassifyText latency: %.2f µs", float64(avgNs)/1000.0)

	maxNs := int64(1_000_000)
	if raceDetectorEnabled {
		maxNs = 10_000_000
	}
	if avgNs > maxNs {
		t.Errorf("ClassifyText latency %d ns exceeds %d ns", avgNs, maxNs)
	}
}

func BenchmarkClassifyText(b *testing.B) {
	c := NewDefaultClassifier()
	msg := "hey, my w204 c200 shows a check engine light after the last oil change. any ideas?"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.ClassifyText(msg)
	}
}

func BenchmarkClassifyText_Long(b *testing.B) {
	c := NewDefaultClassifier()
	msg := strings.Repeat("this is a perfectly normal message about brakes and tires. ", 40)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.ClassifyText(msg)
	}
}
