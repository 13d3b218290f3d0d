package main

import (
	"time"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK      = 0
	exitFlagged = 1
	exitError   = 2
)

var (
	databaseURL  string
	patternsFile string
	jsonOutput   bool

	checkSize     int64
	checkDuration string
	checkFileName string

	eventsChat  int64
	eventsKinds []string
	eventsLimit int
	eventsCount bool
	eventsUser  int64
	eventsSince time.Duration

	rootCmd = &cobra.Command{
		Use:   "guardctl",
		Short: "Operator tool for the group guard bot",
		Long: `guardctl runs the moderation rules offline, answers questions with the
built-in FAQ and manages the audit database used by the auditor service.`,
		SilenceUsage: true,
	}

	checkCmd = &cobra.Command{
		Use:   "check [text]",
		Short: "Classify a message or video with the moderation rules",
		Long: `Classify text with the moderation rules. Pass --size, --duration or
--name to classify a video instead. Exits 1 when the content is flagged.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCheck,
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question with the built-in FAQ",
		Args:  cobra.ExactArgs(1),
		RunE:  runAsk,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Manage the audit database schema",
	}
	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	}
	migrateDownCmd = &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE:  runMigrateDown,
	}
	migrateVersionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE:  runMigrateVersion,
	}

	eventsCmd = &cobra.Command{
		Use:   "events",
		Short: "List recent moderation events from the audit database",
		Long: `List recent moderation events from the audit database. With --count,
print how many events of one kind a member collected in a chat within
--since instead.`,
		RunE: runEvents,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print machine-readable JSON")

	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&patternsFile, "patterns", "", "Pattern library YAML (defaults to $GUARD_PATTERNS_FILE, then the built-in rules)")
	checkCmd.Flags().Int64Var(&checkSize, "size", 0, "Video size in bytes")
	checkCmd.Flags().StringVar(&checkDuration, "duration", "", "Video duration, e.g. 4m30s")
	checkCmd.Flags().StringVar(&checkFileName, "name", "", "Video file name")

	rootCmd.AddCommand(askCmd)

	rootCmd.AddCommand(migrateCmd)
	migrateCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL DSN (defaults to $DATABASE_URL)")
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)

	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL DSN (defaults to $DATABASE_URL)")
	eventsCmd.Flags().Int64Var(&eventsChat, "chat", 0, "Only events from this chat id")
	eventsCmd.Flags().StringSliceVar(&eventsKinds, "kind", nil, "Only these event kinds (repeatable)")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "Maximum number of events")
	eventsCmd.Flags().BoolVar(&eventsCount, "count", false, "Count a member's events instead of listing them")
	eventsCmd.Flags().Int64Var(&eventsUser, "user", 0, "Member id to count (with --count)")
	eventsCmd.Flags().DurationVar(&eventsSince, "since", 24*time.Hour, "Counting window (with --count)")
}
