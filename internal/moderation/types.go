package moderation

import (
	"strings"
	"time"
)

// Kind is the category of a classification reason.
type Kind string

const (
	KindLink          Kind = "suspicious_link"
	KindBannedWord    Kind = "banned_word"
	KindSpam          Kind = "spam"
	KindDiacritics    Kind = "excessive_diacritics"
	KindEmoji         Kind = "excessive_emoji"
	KindVideoSize     Kind = "video_size"
	KindVideoDuration Kind = "video_duration"
	KindVideoFilename Kind = "video_filename"
)

// reasonSeparator joins reasons when a verdict is rendered as one line.
const reasonSeparator = "; "

// Reason is one rule category that fired on a message.
type Reason struct {
	Kind  Kind   `json:"kind"`
	Rule  string `json:"rule"`  // rule id from the pattern library, or the check name
	Label string `json:"label"` // human-readable text shown to users
}

func (r Reason) String() string {
	return r.Label
}

// Verdict is the result of classifying one message. Flagged is true iff
// Reasons is non-empty; ShouldRemove follows Flagged for every message kind.
type Verdict struct {
	Flagged      bool     `json:"flagged"`
	ShouldRemove bool     `json:"should_remove"`
	Reasons      []Reason `json:"reasons,omitempty"`
}

func newVerdict(reasons []Reason) Verdict {
	if len(reasons) == 0 {
		return Verdict{}
	}
	return Verdict{Flagged: true, ShouldRemove: true, Reasons: reasons}
}

// Primary returns the first reason found, which is the one shown to the user.
// It returns the zero Reason for a clean verdict.
func (v Verdict) Primary() Reason {
	if len(v.Reasons) == 0 {
		return Reason{}
	}
	return v.Reasons[0]
}

// Has reports whether any reason of the given kind was recorded.
func (v Verdict) Has(kind Kind) bool {
	for _, r := range v.Reasons {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

// Labels returns the reason labels in the order they were checked.
func (v Verdict) Labels() []string {
	out := make([]string, len(v.Reasons))
	for i, r := range v.Reasons {
		out[i] = r.Label
	}
	return out
}

// Summary joins every reason label into a single line for audit logs.
func (v Verdict) Summary() string {
	return strings.Join(v.Labels(), reasonSeparator)
}

// VideoMeta is the subset of video attributes the classifier inspects.
type VideoMeta struct {
	FileSize int64
	Duration time.Duration
	FileName string
}
