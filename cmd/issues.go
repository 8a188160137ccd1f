package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-insights/internal/domain"
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Computes issue health metrics of a repository",
	Long: `Computes the stale vs active ratio, the issue half-life, the share of
legitimate bugs and the activity patterns of a repository's issues. With
--trends the window is compared with the one before it.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		a, err := newApp(cmd)
		exitOnError(err)

		owner, _ := cmd.Flags().GetString("owner")
		repo, _ := cmd.Flags().GetString("repo")
		days, _ := cmd.Flags().GetInt("days")
		trends, _ := cmd.Flags().GetBool("trends")

		if trends {
			report := a.issues.CalculateIssueTrendMetrics(ctx, owner, repo, days)
			exitOnError(printJSON(report))
			if report.Status == domain.StatusError {
				exitOnError(errors.New(report.Message))
			}
			return
		}

		metrics := a.issues.CalculateIssueMetrics(ctx, owner, repo, days)
		exitOnError(printJSON(metrics))
		if metrics.Status == domain.StatusError {
			exitOnError(errors.New(metrics.Message))
		}
	},
}

func init() {
	rootCmd.AddCommand(issuesCmd)
	addRepoFlags(issuesCmd)
	issuesCmd.Flags().Int("days", 30, "Length of the window in days")
	issuesCmd.Flags().Bool("trends", false, "Compare with the previous window")
}
