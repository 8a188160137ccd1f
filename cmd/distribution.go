package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var reviewersCmd = &cobra.Command{
	Use:   "reviewers",
	Short: "Shows how open pull requests are distributed over reviewers",
	Long: `Counts, per reviewer, the open and draft pull requests they were asked to
review or reviewed, split into approved, pending and blocked.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		a, err := newApp(cmd)
		exitOnError(err)
		opts, err := a.distributionOptions(cmd)
		exitOnError(err)

		d, err := a.loadDashboard(ctx, cmd)
		exitOnError(err)
		exitOnError(printJSON(d.ReviewerDistribution(opts)))
	},
}

var authorsCmd = &cobra.Command{
	Use:   "authors",
	Short: "Shows the review status of open pull requests per author",
	Long: `Puts every open and draft pull request into one bucket of its author:
blocked when a reviewer requested changes, approved when a reviewer approved,
pending otherwise.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		a, err := newApp(cmd)
		exitOnError(err)
		opts, err := a.distributionOptions(cmd)
		exitOnError(err)

		d, err := a.loadDashboard(ctx, cmd)
		exitOnError(err)
		exitOnError(printJSON(d.AuthorStatus(opts)))
	},
}

func init() {
	for _, c := range []*cobra.Command{reviewersCmd, authorsCmd} {
		rootCmd.AddCommand(c)
		addRepoFlags(c)
		addDistributionFlags(c)
		c.Flags().String("from", "", "Only pull requests updated since this date (YYYY/MM/DD)")
	}
}
