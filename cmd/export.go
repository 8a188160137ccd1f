package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-insights/internal/domain"
	"github.com/naka-gawa/github-insights/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exports reviewer, author or event data as CSV or JSON",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		a, err := newApp(cmd)
		exitOnError(err)

		kind, _ := cmd.Flags().GetString("kind")
		format, _ := cmd.Flags().GetString("format")
		if format != "csv" && format != "json" {
			exitOnError(fmt.Errorf("unknown format %q, use csv or json", format))
		}
		opts, err := a.distributionOptions(cmd)
		exitOnError(err)
		opts.Expanded = true

		d, err := a.loadDashboard(ctx, cmd)
		exitOnError(err)

		var (
			rows []domain.StatusCounts
			data any
		)
		switch kind {
		case "reviewers":
			dist := d.ReviewerDistribution(opts)
			for _, r := range dist.Reviewers {
				rows = append(rows, r.StatusCounts)
			}
			data = dist
		case "authors":
			dist := d.AuthorStatus(opts)
			for _, r := range dist.Authors {
				rows = append(rows, r.StatusCounts)
			}
			data = dist
		case "events":
			includeBots, _ := cmd.Flags().GetBool("include-bots")
			events := d.FilteredEvents(includeBots, nil)
			if format == "csv" {
				exitOnError(export.WriteEventsCSV(os.Stdout, events))
				return
			}
			exitOnError(export.WriteJSON(os.Stdout, events))
			return
		default:
			exitOnError(fmt.Errorf("unknown kind %q, use reviewers, authors or events", kind))
		}

		if format == "csv" {
			exitOnError(export.WriteStatusCSV(os.Stdout, rows))
			return
		}
		exitOnError(export.WriteJSON(os.Stdout, data))
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	addRepoFlags(exportCmd)
	addDistributionFlags(exportCmd)
	exportCmd.Flags().String("from", "", "Only pull requests updated since this date (YYYY/MM/DD)")
	exportCmd.Flags().String("kind", "reviewers", "What to export: reviewers, authors or events")
	exportCmd.Flags().String("format", "csv", "Output format: csv or json")
	exportCmd.Flags().Bool("include-bots", false, "Include bot activity in the events export")
}
