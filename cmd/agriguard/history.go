package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/vango-go/agriguard-live/pkg/core/live"
	"github.com/vango-go/agriguard-live/pkg/journal"
)

func newHistoryCmd(root *rootFlags) *cobra.Command {
	var (
		user          string
		limit         int
		asJSON        bool
		journalDriver string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded live sessions",
		Long: `History lists finished live sessions from the session journal, newest first.
It needs a persistent journal (postgres or redis).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("journal") {
				cfg.JournalDriver = journalDriver
			}
			switch journal.Driver(cfg.JournalDriver) {
			case journal.DriverPostgres, journal.DriverRedis:
			default:
				return fmt.Errorf("history needs a postgres or redis journal, JOURNAL_DRIVER is %q", cfg.JournalDriver)
			}

			ctx := cmd.Context()
			opts := journalOptions(cfg)
			store, err := journal.Open(ctx, journal.Driver(cfg.JournalDriver), opts...)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			sessions, err := store.List(ctx, journal.ListOptions{UserName: user, Limit: limit})
			if err != nil {
				return err
			}
			if asJSON {
				return writeHistoryJSON(cmd.OutOrStdout(), sessions)
			}
			return writeHistoryTable(cmd.OutOrStdout(), sessions)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "only show sessions of this user")
	cmd.Flags().IntVar(&limit, "limit", journal.DefaultListLimit, "maximum number of sessions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().StringVar(&journalDriver, "journal", "", "session journal: postgres|redis")
	return cmd
}

func writeHistoryJSON(w io.Writer, sessions []live.Summary) error {
	if sessions == nil {
		sessions = []live.Summary{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sessions)
}

func writeHistoryTable(w io.Writer, sessions []live.Summary) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No live sessions recorded yet.")
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STARTED", "USER", "LANG", "DURATION", "END", "IMAGES", "AUDIO", "TRANSCRIPT")
	for _, s := range sessions {
		t.Row(
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			s.UserName,
			s.Language,
			s.Duration().Round(time.Second).String(),
			string(s.Reason),
			strconv.FormatInt(s.ImageChunks, 10),
			strconv.FormatInt(s.AudioChunks, 10),
			shorten(s.Transcript, 40),
		)
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

// shorten keeps the last n runes, where the newest words are.
func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "…" + string(r[len(r)-n+1:])
}
