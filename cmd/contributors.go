package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-insights/internal/dataview"
)

var contributorsCmd = &cobra.Command{
	Use:   "contributors",
	Short: "Aggregates contributor activity and outputs as JSON",
	Long: `Aggregates pull request activity (opened, merged, closed, reviews, comments)
per contributor of a repository, and outputs the result in JSON format.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		a, err := newApp(cmd)
		exitOnError(err)

		owner, _ := cmd.Flags().GetString("owner")
		repo, _ := cmd.Flags().GetString("repo")
		includeBots, _ := cmd.Flags().GetBool("include-bots")
		sortKey, _ := cmd.Flags().GetString("sort")
		dir, _ := cmd.Flags().GetString("dir")
		role, _ := cmd.Flags().GetString("role")

		since, err := a.since(cmd)
		exitOnError(err)

		results, err := a.aggregator.Aggregate(ctx, owner, repo, since)
		if err != nil {
			exitOnError(fmt.Errorf("failed to aggregate stats: %w", err))
		}

		results = a.bots.FilterContributors(results, includeBots, role)
		if sortKey != "" {
			results = dataview.SortData(results, dataview.SortConfig{Key: sortKey, Direction: dataview.ParseDirection(dir)}, nil)
		}

		exitOnError(printJSON(results))
	},
}

func init() {
	rootCmd.AddCommand(contributorsCmd)
	addRepoFlags(contributorsCmd)
	contributorsCmd.Flags().String("from", "", "Start date for stats (YYYY/MM/DD)")
	contributorsCmd.Flags().Bool("include-bots", false, "Include bot accounts")
	contributorsCmd.Flags().String("sort", "", "Sort key: login, opened, merged, closed, reviews, comments or total")
	contributorsCmd.Flags().String("dir", "asc", "Sort direction: asc or desc")
	contributorsCmd.Flags().String("role", "", "Only contributors with this role: owner, maintainer, contributor or bot")
}
