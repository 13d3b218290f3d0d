package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/whisper/groupguard/internal/audit"
	"github.com/whisper/groupguard/internal/events"
)

func openAudit(ctx context.Context) (*sql.DB, error) {
	dsn := databaseURL
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, fmt.Errorf("no database: pass --database-url or set DATABASE_URL")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return audit.Open(ctx, dsn)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	db, err := openAudit(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := audit.MigrateUp(db); err != nil {
		return err
	}
	return printVersion(db)
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	db, err := openAudit(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := audit.MigrateDown(db); err != nil {
		return err
	}
	return printVersion(db)
}

func runMigrateVersion(cmd *cobra.Command, args []string) error {
	db, err := openAudit(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()
	return printVersion(db)
}

func printVersion(db *sql.DB) error {
	version, dirty, err := audit.Version(db)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(struct {
			Version uint `json:"version"`
			Dirty   bool `json:"dirty"`
		}{version, dirty})
	}
	if dirty {
		fmt.Printf("schema version %d (dirty)\n", version)
		return nil
	}
	fmt.Printf("schema version %d\n", version)
	return nil
}

// countKind validates the --count flags and returns the kind to count.
func countKind(chatID, userID int64, kinds []string, since time.Duration) (events.Kind, error) {
	var errs []error
	if chatID == 0 {
		errs = append(errs, errors.New("--count needs --chat"))
	}
	if userID == 0 {
		errs = append(errs, errors.New("--count needs --user"))
	}
	if since <= 0 {
		errs = append(errs, fmt.Errorf("--since must be positive, got %s", since))
	}
	kind := events.KindWarned
	switch len(kinds) {
	case 0:
	case 1:
		kind = events.Kind(kinds[0])
	default:
		errs = append(errs, errors.New("--count takes a single --kind"))
	}
	return kind, errors.Join(errs...)
}

func runEventCount(cmd *cobra.Command, db *sql.DB) error {
	kind, err := countKind(eventsChat, eventsUser, eventsKinds, eventsSince)
	if err != nil {
		return err
	}
	n, err := audit.NewStore(db, nil).CountSince(cmd.Context(), eventsChat, eventsUser, kind, eventsSince)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(struct {
			ChatID int64       `json:"chat_id"`
			UserID int64       `json:"user_id"`
			Kind   events.Kind `json:"kind"`
			Since  string      `json:"since"`
			Count  int         `json:"count"`
		}{eventsChat, eventsUser, kind, eventsSince.String(), n})
	}
	fmt.Printf("%d %s events for user %d in chat %d within %s\n", n, kind, eventsUser, eventsChat, eventsSince)
	return nil
}

func runEvents(cmd *cobra.Command, args []string) error {
	if eventsCount {
		if _, err := countKind(eventsChat, eventsUser, eventsKinds, eventsSince); err != nil {
			return err
		}
	}
	db, err := openAudit(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	if eventsCount {
		return runEventCount(cmd, db)
	}

	f := audit.Filter{ChatID: eventsChat, Limit: eventsLimit}
	for _, k := range eventsKinds {
		f.Kinds = append(f.Kinds, events.Kind(k))
	}
	list, err := audit.NewStore(db, nil).Recent(cmd.Context(), f)
	if err != nil {
		return err
	}

	if jsonOutput {
		if list == nil {
			list = []events.Event{}
		}
		return outputJSON(list)
	}
	if len(list) == 0 {
		fmt.Println("no events")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tKIND\tCHAT\tUSER\tCOUNT\tREASON")
	for _, e := range list {
		user := fmt.Sprint(e.UserID)
		if e.Username != "" {
			user = "@" + e.Username
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\n",
			e.At.Local().Format(time.DateTime), e.Kind, e.ChatID, user, e.Count, e.Reason)
	}
	return w.Flush()
}
