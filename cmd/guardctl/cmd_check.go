package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/whisper/groupguard/internal/config"
	"github.com/whisper/groupguard/internal/faq"
	"github.com/whisper/groupguard/internal/moderation"
	"github.com/whisper/groupguard/internal/patterns"
)

// checkSettings reads the bot's environment so offline checks use the same
// video ceilings and pattern file as the running bot. The --patterns flag
// wins over GUARD_PATTERNS_FILE.
func checkSettings(getenv func(string) string, flagPatterns string) (moderation.VideoLimits, string, []string) {
	cfg, warnings := config.FromEnv(getenv)
	file := cfg.PatternsFile
	if flagPatterns != "" {
		file = flagPatterns
	}
	return moderation.VideoLimits{MaxBytes: cfg.MaxVideoBytes, MaxDuration: cfg.MaxVideoDuration}, file, warnings
}

// runCheck classifies the argument as text, or the flags as video metadata.
//
// Exit codes: 0 clean, 1 flagged, 2 error.
func runCheck(cmd *cobra.Command, args []string) error {
	limits, file, warnings := checkSettings(os.Getenv, patternsFile)
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	load := patterns.Default
	if file != "" {
		load = func() (*patterns.Library, error) { return patterns.LoadFile(file) }
	}
	lib, err := load()
	if err != nil {
		return err
	}
	classifier := moderation.NewClassifier(lib, limits)

	var verdict moderation.Verdict
	isVideo := checkSize > 0 || checkDuration != "" || checkFileName != ""
	switch {
	case isVideo:
		meta := moderation.VideoMeta{FileSize: checkSize, FileName: checkFileName}
		if checkDuration != "" {
			d, err := time.ParseDuration(checkDuration)
			if err != nil {
				return fmt.Errorf("--duration: %w", err)
			}
			meta.Duration = d
		}
		verdict = classifier.ClassifyVideo(meta)
	case len(args) == 1:
		verdict = classifier.ClassifyText(args[0])
	default:
		return fmt.Errorf("nothing to check: pass text or video flags")
	}

	if jsonOutput {
		if err := outputJSON(verdict); err != nil {
			return err
		}
	} else {
		printVerdict(verdict)
	}
	if verdict.Flagged {
		os.Exit(exitFlagged)
	}
	return nil
}

func printVerdict(v moderation.Verdict) {
	if !v.Flagged {
		fmt.Println("clean")
		return
	}
	fmt.Println("flagged")
	for _, r := range v.Reasons {
		fmt.Printf("  %-22s %-24s %s\n", r.Kind, r.Rule, r.Label)
	}
}

// runAsk prints the FAQ answer for a question.
func runAsk(cmd *cobra.Command, args []string) error {
	m, err := faq.Default()
	if err != nil {
		return err
	}
	question := strings.TrimSpace(args[0])
	answer, ok := m.Match(question)

	if jsonOutput {
		return outputJSON(struct {
			Matched bool   `json:"matched"`
			Topic   string `json:"topic,omitempty"`
			Answer  string `json:"answer,omitempty"`
		}{ok, answer.Topic, answer.Text})
	}
	if !ok {
		fmt.Println("no answer: not a car question")
		return nil
	}
	fmt.Printf("[%s]\n%s\n", answer.Topic, answer.Text)
	return nil
}
