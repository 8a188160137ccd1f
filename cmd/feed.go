package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-insights/internal/domain"
	"github.com/naka-gawa/github-insights/internal/usecase"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Prints the recent pull request activity of a repository",
	Long: `Derives opened, merged, closed, reviewed and commented events from the
pull requests of a repository and prints the newest ones, one page at a time.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		a, err := newApp(cmd)
		exitOnError(err)

		includeBots, _ := cmd.Flags().GetBool("include-bots")
		typeNames, _ := cmd.Flags().GetStringSlice("types")
		pages, _ := cmd.Flags().GetInt("pages")
		types := make([]domain.EventType, 0, len(typeNames))
		for _, t := range typeNames {
			types = append(types, domain.EventType(t))
		}

		feed := usecase.NewActivityFeed(a.bots, a.cfg.Insights.PageSize)
		prs, err := a.fetchPullRequests(ctx, cmd)
		if err != nil {
			feed.SetError(err)
			_ = printJSON(feed.View())
			exitOnError(err)
		}
		feed.SetPullRequests(prs)
		feed.SetFilters(includeBots, types)
		for i := 1; i < pages; i++ {
			feed.LoadMore()
		}

		exitOnError(printJSON(feed.View()))
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)
	addRepoFlags(feedCmd)
	feedCmd.Flags().String("from", "", "Only pull requests updated since this date (YYYY/MM/DD)")
	feedCmd.Flags().Bool("include-bots", false, "Include bot activity")
	feedCmd.Flags().StringSlice("types", nil, "Event types to keep: opened, closed, merged, reviewed, commented")
	feedCmd.Flags().Int("pages", 1, "Number of pages to print")
}
