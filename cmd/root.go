// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-insights/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "github-insights",
	Short: "A CLI tool to analyze pull request and issue activity of GitHub repositories.",
	Long: `github-insights derives reviewer workload, author review status, an activity
feed, contributor counts and issue health metrics from a repository's pull
requests and issues. Results are printed as JSON, exported as CSV, or served
over HTTP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("env-file", config.DefaultEnvFile, "Path to a .env file to load")
}

// addRepoFlags registers the --owner and --repo flags every repository command needs.
func addRepoFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("owner", "o", "", "Repository owner (required)")
	cmd.Flags().StringP("repo", "r", "", "Repository name (required)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("repo")
}

// addDistributionFlags registers the flags shared by the reviewer and author views.
func addDistributionFlags(cmd *cobra.Command) {
	cmd.Flags().String("view", "total", "Ranking: total, approved, pending or blocked")
	cmd.Flags().Bool("exclude-bots", true, "Leave bot accounts out")
	cmd.Flags().Int("max-visible", 0, "Rows to show before truncating (default from config)")
	cmd.Flags().Bool("expanded", false, "Show every row")
}
