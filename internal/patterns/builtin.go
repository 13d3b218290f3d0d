package patterns

// builtins are matchers referenced by name from the rule file. Go's regexp
// package (RE2) does not support backreferences, so checks like "same
// character N times in a row" are implemented as linear scans.
var builtins = map[string]func(string) bool{
	"char_flood": hasCharFlood,
}

// charFloodThreshold is the run length at which a repeated character counts
// as flooding.
const charFloodThreshold = 5

// hasCharFlood returns true if text contains 5 or more consecutive identical
// characters.
func hasCharFlood(text string) bool {
	count := 1
	prev := rune(-1)
	for _, r := range text {
		if r == prev {
			count++
			if count >= charFloodThreshold {
				return true
			}
		} else {
			count = 1
			prev = r
		}
	}
	return false
}
