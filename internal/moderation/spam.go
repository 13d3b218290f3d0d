package moderation

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// urlPattern matches scheme URLs, www. URLs and bare host names followed by a
// path. The bare-host variant requires a "/" so version strings like "v2.0"
// or decimals like "3.14" are not treated as links.
var urlPattern = regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s<>"]+|\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)*\.[a-z]{2,}/[^\s<>"]*`)

// extractURLs returns every URL-like substring of text.
func extractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// hostOf parses a candidate URL and returns its lower-cased host. Candidates
// without a scheme are parsed as http. ok is false when the candidate cannot
// be parsed or has no host.
func hostOf(raw string) (string, bool) {
	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "http://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	return host, true
}

// checkLinks returns the first suspicious link found in text. For each URL
// the reputation rules run first, then the shortener list, then the
// suspicious TLD list. Unparsable candidates are skipped.
func (c *Classifier) checkLinks(text string) (Reason, bool) {
	for _, raw := range extractURLs(text) {
		host, ok := hostOf(raw)
		if !ok {
			continue
		}

		for _, rule := range c.lib.LinkRules {
			if rule.Match(raw) {
				return Reason{Kind: KindLink, Rule: rule.ID, Label: "suspicious link: " + rule.Label}, true
			}
		}

		for _, domain := range c.lib.Shorteners {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return Reason{Kind: KindLink, Rule: "shortener", Label: "suspicious link: link shortener " + host}, true
			}
		}

		trimmed := strings.ToLower(strings.TrimRight(raw, "/"))
		for _, tld := range c.lib.SuspiciousTLDs {
			if strings.HasSuffix(host, tld) || strings.HasSuffix(trimmed, tld) {
				return Reason{Kind: KindLink, Rule: "tld", Label: "suspicious link: domain ending " + tld}, true
			}
		}
	}
	return Reason{}, false
}

// checkBannedWords reports the first banned word contained in text,
// ignoring case.
func checkBannedWords(text string, words []string) (Reason, bool) {
	if len(words) == 0 {
		return Reason{}, false
	}
	lower := strings.ToLower(text)
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(w)) {
			return Reason{Kind: KindBannedWord, Rule: "banned_word", Label: "banned word: " + w}, true
		}
	}
	return Reason{}, false
}

// checkSpamPatterns runs every spam rule against text and records each one
// that matches.
func (c *Classifier) checkSpamPatterns(text string) []Reason {
	var reasons []Reason
	for _, rule := range c.lib.SpamRules {
		if rule.Match(text) {
			reasons = append(reasons, Reason{Kind: KindSpam, Rule: rule.ID, Label: "spam: " + rule.Label})
		}
	}
	return reasons
}

// checkCharFrequency flags messages carrying more Arabic diacritics or emoji
// than the library allows.
func (c *Classifier) checkCharFrequency(text string) []Reason {
	var diacritics, emoji int
	for _, r := range text {
		switch {
		case isDiacritic(r):
			diacritics++
		case isEmoji(r):
			emoji++
		}
	}

	var reasons []Reason
	if diacritics > c.lib.MaxDiacritics {
		reasons = append(reasons, Reason{
			Kind:  KindDiacritics,
			Rule:  "diacritics",
			Label: "spam: excessive diacritics (" + strconv.Itoa(diacritics) + ")",
		})
	}
	if emoji > c.lib.MaxEmoji {
		reasons = append(reasons, Reason{
			Kind:  KindEmoji,
			Rule:  "emoji",
			Label: "spam: excessive emoji (" + strconv.Itoa(emoji) + ")",
		})
	}
	return reasons
}

// isDiacritic reports Arabic harakat (fathatan through sukun).
func isDiacritic(r rune) bool {
	return r >= 0x064B && r <= 0x0652
}

// isEmoji covers the emoji planes and the miscellaneous symbol and dingbat
// blocks.
func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F600 && r <= 0x1FFFF:
		return true
	case r >= 0x2680 && r <= 0x26FF:
		return true
	case r >= 0x2700 && r <= 0x27BF:
		return true
	}
	return false
}
