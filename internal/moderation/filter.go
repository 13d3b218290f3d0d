// Package moderation classifies group messages against the rule tables in
// the patterns package. Classification is pure and deterministic: it never
// performs I/O and never returns an error, so callers can run it on every
// inbound message without guarding against failures.
package moderation

import (
	"fmt"
	"time"

	"github.com/whisper/groupguard/internal/patterns"
)

const (
	// DefaultMaxVideoBytes is the largest video accepted without flagging.
	DefaultMaxVideoBytes int64 = 50 << 20

	// DefaultMaxVideoDuration is the longest video accepted without flagging.
	DefaultMaxVideoDuration = 300 * time.Second
)

// VideoLimits are the numeric ceilings for video messages. Both are
// exclusive: a video exactly at the limit passes.
type VideoLimits struct {
	MaxBytes    int64
	MaxDuration time.Duration
}

// DefaultVideoLimits returns the 50 MiB / 5 minute ceilings.
func DefaultVideoLimits() VideoLimits {
	return VideoLimits{
		MaxBytes:    DefaultMaxVideoBytes,
		MaxDuration: DefaultMaxVideoDuration,
	}
}

// Classifier evaluates messages against a pattern library. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	lib    *patterns.Library
	limits VideoLimits
}

// NewClassifier creates a Classifier. Zero limits fall back to the defaults.
func NewClassifier(lib *patterns.Library, limits VideoLimits) *Classifier {
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = DefaultMaxVideoBytes
	}
	if limits.MaxDuration <= 0 {
		limits.MaxDuration = DefaultMaxVideoDuration
	}
	return &Classifier{lib: lib, limits: limits}
}

// NewDefaultClassifier creates a Classifier over the embedded rule tables.
func NewDefaultClassifier() *Classifier {
	return NewClassifier(patterns.MustDefault(), DefaultVideoLimits())
}

// ClassifyText checks text against the library's default banned words.
func (c *Classifier) ClassifyText(text string) Verdict {
	return c.ClassifyTextWith(text, c.lib.BannedWords)
}

// ClassifyTextWith checks text using a caller-supplied banned word list,
// which lets each group carry its own denylist.
//
// Every category is evaluated; nothing short-circuits. Reasons are recorded
// in check order: links, banned words, spam rules, then character-frequency
// anomalies.
func (c *Classifier) ClassifyTextWith(text string, bannedWords []string) Verdict {
	var reasons []Reason

	if r, ok := c.checkLinks(text); ok {
		reasons = append(reasons, r)
	}
	if r, ok := checkBannedWords(text, bannedWords); ok {
		reasons = append(reasons, r)
	}
	reasons = append(reasons, c.checkSpamPatterns(text)...)
	reasons = append(reasons, c.checkCharFrequency(text)...)

	return newVerdict(reasons)
}

// ClassifyVideo checks video attributes. Size, duration and file name are
// evaluated independently and every check that fires is reported. For the
// file name only the first matching rule is reported.
func (c *Classifier) ClassifyVideo(meta VideoMeta) Verdict {
	var reasons []Reason

	if meta.FileSize > c.limits.MaxBytes {
		reasons = append(reasons, Reason{
			Kind: KindVideoSize,
			Rule: "max_bytes",
			Label: fmt.Sprintf("video too large: %s (limit %s)",
				formatMiB(meta.FileSize), formatMiB(c.limits.MaxBytes)),
		})
	}

	if meta.Duration > c.limits.MaxDuration {
		reasons = append(reasons, Reason{
			Kind: KindVideoDuration,
			Rule: "max_duration",
			Label: fmt.Sprintf("video too long: %s (limit %s)",
				formatMinSec(meta.Duration), formatMinSec(c.limits.MaxDuration)),
		})
	}

	if meta.FileName != "" {
		for _, rule := range c.lib.VideoRules {
			if rule.Match(meta.FileName) {
				reasons = append(reasons, Reason{
					Kind:  KindVideoFilename,
					Rule:  rule.ID,
					Label: "suspicious file name: " + rule.Label,
				})
				break
			}
		}
	}

	return newVerdict(reasons)
}

// formatMinSec renders a duration as minutes:seconds, e.g. 6:05.
func formatMinSec(d time.Duration) string {
	total := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func formatMiB(n int64) string {
	return fmt.Sprintf("%.1f MiB", float64(n)/float64(1<<20))
}
