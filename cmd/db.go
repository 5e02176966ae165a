package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alpha1e0/kiwi/internal/model"
	"github.com/alpha1e0/kiwi/internal/storage"
)

func newDBCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "db",
		Short: "Review a persisted report database",
	}
	c.AddCommand(newDBListCmd(), newDBStatsCmd(), newDBMarkCmd())
	return c
}

func newDBListCmd() *cobra.Command {
	var status string
	c := &cobra.Command{
		Use:   "list <db>",
		Short: "List recorded issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var want model.Status
			if strings.TrimSpace(status) != "" {
				s, err := model.ParseStatus(status)
				if err != nil {
					return err
				}
				want = s
			}
			db, err := openExisting(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := db.Issues()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tSEVERITY\tRULE\tLOCATION\tCOMMENT")
			for _, r := range records {
				if want != 0 && model.Status(r.Status) != want {
					continue
				}
				loc := r.Filename
				if r.Line > 0 {
					loc = fmt.Sprintf("%s:%d", r.Filename, r.Line)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, model.Status(r.Status), model.Level(r.Severity), r.RuleID, loc, r.Comment)
			}
			return tw.Flush()
		},
	}
	c.Flags().StringVar(&status, "status", "", "Only list issues with this status: new|old|false-positive")
	return c
}

func newDBStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <db>",
		Short: "Show issue counts by severity and status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openExisting(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.Statistics()
			if err != nil {
				return err
			}
			scans, err := db.Scans()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scans: %d\n", len(scans))
			if n := len(scans); n > 0 {
				last := scans[n-1]
				fmt.Fprintf(out, "last scan: %s at %s (%d lines)\n", last.Root, last.CreatedAt.Local().Format("2006-01-02 15:04:05"), last.TotalLines)
			}
			fmt.Fprintln(out, "severity:")
			for _, b := range stats.Severity {
				fmt.Fprintf(out, "  %s: %d\n", b.Severity, b.Count)
			}
			fmt.Fprintln(out, "status:")
			for _, s := range stats.Status {
				fmt.Fprintf(out, "  %s: %d\n", s.Status, s.Count)
			}
			return nil
		},
	}
}

func newDBMarkCmd() *cobra.Command {
	var comment string
	c := &cobra.Command{
		Use:   "mark <db> <id> <new|old|false-positive>",
		Short: "Set the review status of one issue",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid issue id %q", args[1])
			}
			status, err := model.ParseStatus(args[2])
			if err != nil {
				return err
			}
			db, err := openExisting(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			var note *string
			if cmd.Flags().Changed("comment") {
				note = &comment
			}
			if err := db.Mark(uint(id), status, note); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "issue %d marked %s\n", id, status)
			return nil
		},
	}
	c.Flags().StringVar(&comment, "comment", "", "Review comment stored with the mark (kept when omitted)")
	return c
}

// openExisting refuses to create a database as a side effect of review.
func openExisting(path string) (*storage.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("report database: %w", err)
	}
	return storage.Open(path)
}
