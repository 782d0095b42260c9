package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/crawlpool/internal/config"
	"github.com/nao1215/crawlpool/internal/database"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of sessions listed when --limit is not set.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [seed-url]",
		Short: "Show stored crawl sessions",
		Long: `History lists crawl sessions stored in the local history database,
newest first, and prints stored summaries again.

Examples:
  # List recent sessions
  crawlpool history

  # List sessions for one seed
  crawlpool history https://example.com/

  # Print a stored summary as Markdown
  crawlpool history --id 0b6f0d62-2a5e-4c1e-9d57-6f1c0e6f3a11 -m

  # Delete a stored session
  crawlpool history --delete 0b6f0d62-2a5e-4c1e-9d57-6f1c0e6f3a11`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("id", "", "Print the stored summary of this session")
	cmd.Flags().String("delete", "", "Delete this session from the history")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of sessions to list (0 for all)")
	cmd.Flags().BoolP("json", "j", false, "Print the summary as JSON")
	cmd.Flags().BoolP("markdown", "m", false, "Print the summary as Markdown")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data directory)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	id, err := flags.GetString("id")
	if err != nil {
		return err
	}
	deleteID, err := flags.GetString("delete")
	if err != nil {
		return err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}
	cfg.Verbose = getVerboseFlag(cmd)

	// Do not create an empty database just to report that it is empty.
	if _, err := os.Stat(filepath.Join(cfg.DBDir, database.FileName)); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No crawl history found.")
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	switch {
	case deleteID != "":
		if err := db.DeleteSession(ctx, deleteID); err != nil {
			return sessionError(deleteID, err)
		}
		fmt.Fprintf(out, "Deleted session %s\n", deleteID)
		return nil
	case id != "":
		return printStoredSummary(ctx, db, cfg, id, out)
	default:
		var seed string
		if len(args) > 0 {
			seed = args[0]
		}
		return listSessions(ctx, db, seed, limit, out)
	}
}

func sessionError(id string, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("session %s: %w", id, err)
	}
	return fmt.Errorf("failed to load session %s: %w", id, err)
}

func printStoredSummary(ctx context.Context, db *database.CrawlDB, cfg *config.Config, id string, out io.Writer) error {
	summary, err := db.GetSummary(ctx, id)
	if err != nil {
		return sessionError(id, err)
	}
	_, err = newReportWriter(cfg, out).Write(summary)
	return err
}

func listSessions(ctx context.Context, db *database.CrawlDB, seed string, limit int, out io.Writer) error {
	sessions, err := db.ListSessions(ctx, seed, limit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		if seed != "" {
			fmt.Fprintf(out, "No crawl history found for %s\n", seed)
		} else {
			fmt.Fprintln(out, "No crawl history found.")
		}
		return nil
	}

	fmt.Fprintf(out, "Crawl sessions (%d):\n\n", len(sessions))
	fmt.Fprintf(out, "  %-36s  %-19s  %-10s  %7s  %6s  %9s  %s\n",
		"ID", "Started", "Status", "Fetched", "Failed", "Elapsed", "Seed")
	for _, s := range sessions {
		fmt.Fprintf(out, "  %-36s  %-19s  %-10s  %7d  %6d  %9s  %s\n",
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.Termination,
			s.Fetched,
			s.Failed,
			s.Elapsed.Round(time.Millisecond),
			s.Seed,
		)
	}
	return nil
}
