package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-insights/internal/dataview"
	"github.com/naka-gawa/github-insights/internal/store/pg"
	"github.com/naka-gawa/github-insights/internal/usecase"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Fills the events cache with recent events of workspace repositories",
	Long: `Fetches the recent Watch, Fork, PullRequest, Issues and Star events of every
repository in a workspace (or in all workspaces) and upserts them into the
PostgreSQL events cache. The schema is migrated first.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cmd)
		exitOnError(err)

		var workspaceID *uuid.UUID
		if raw, _ := cmd.Flags().GetString("workspace"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				exitOnError(fmt.Errorf("invalid --workspace: %w", err))
			}
			workspaceID = &id
		}

		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = a.cfg.Backfill.Days
		}
		maxPages, _ := cmd.Flags().GetInt("max-pages")
		if maxPages <= 0 {
			maxPages = a.cfg.Backfill.MaxPages
		}
		pause, _ := cmd.Flags().GetDuration("pause")

		dsn, err := a.cfg.RequireDSN()
		exitOnError(err)
		db, err := pg.Open(ctx, dsn)
		exitOnError(err)
		defer func() {
			if err := db.Close(); err != nil {
				a.log.Errorw("failed to close db", "error", err)
			}
		}()
		if err := pg.Migrate(ctx, db); err != nil {
			exitOnError(err)
		}

		backfiller := usecase.NewBackfiller(a.fetcher, pg.NewEventStore(db, a.log), usecase.BackfillOptions{
			Days:     days,
			MaxPages: maxPages,
			Pause:    pause,
		}, a.log)
		stats, err := backfiller.Run(ctx, workspaceID)
		if err != nil {
			exitOnError(err)
		}
		a.log.Infow("backfill finished",
			"inserted", dataview.FormatNumber(stats.EventsInserted),
			"cached", dataview.FormatNumber(int(stats.TotalCached)),
			"errors", stats.Errors,
		)
		exitOnError(printJSON(stats))
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
	backfillCmd.Flags().String("workspace", "", "Workspace UUID (default: every workspace)")
	backfillCmd.Flags().Int("days", 0, "How many days of events to fetch (default from config)")
	backfillCmd.Flags().Int("max-pages", 0, "Maximum event pages per repository (default from config)")
	backfillCmd.Flags().Duration("pause", time.Second, "Pause between repositories")
}
