package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naka-gawa/github-insights/internal/classifier"
	"github.com/naka-gawa/github-insights/internal/config"
	"github.com/naka-gawa/github-insights/internal/domain"
	"github.com/naka-gawa/github-insights/internal/gateway"
	"github.com/naka-gawa/github-insights/internal/logger"
	"github.com/naka-gawa/github-insights/internal/usecase"
)

// inputDateLayout is the format of the --from flag.
const inputDateLayout = "2006/01/02"

// app bundles the dependencies most commands share.
type app struct {
	cfg        *config.Config
	log        *zap.SugaredLogger
	bots       *classifier.Classifier
	fetcher    gateway.Fetcher
	aggregator *usecase.Aggregator
	issues     *usecase.IssueMetricsService
}

// newApp loads configuration, builds the logger and wires the GitHub gateway.
func newApp(cmd *cobra.Command) (*app, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.NewConfig(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	log, err := logger.New(cfg.Logging.Level, verbose)
	if err != nil {
		return nil, err
	}

	bots := classifier.New(classifier.Roster{})
	if cfg.Insights.BotsFile != "" {
		roster, err := classifier.LoadRoster(cfg.Insights.BotsFile)
		if err != nil {
			return nil, err
		}
		bots = classifier.New(roster)
	}

	a := &app{cfg: cfg, log: log, bots: bots}
	token, err := cfg.RequireToken()
	if err != nil {
		return nil, err
	}
	a.fetcher, err = gateway.NewGitHubGateway(token, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}
	a.aggregator = usecase.NewAggregator(a.fetcher, log)
	a.issues = usecase.NewIssueMetricsService(a.fetcher, log, cfg.Insights.StaleAfter, bots)
	return a, nil
}

// since turns the --from flag into a cutoff. Without it the configured lookback applies.
func (a *app) since(cmd *cobra.Command) (time.Time, error) {
	fromStr, _ := cmd.Flags().GetString("from")
	if fromStr == "" {
		return time.Now().Add(-a.cfg.Insights.Lookback), nil
	}
	from, err := time.Parse(inputDateLayout, fromStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --from date format, please use YYYY/MM/DD: %w", err)
	}
	return from, nil
}

// fetchPullRequests fetches the pull requests of the repository named by the flags.
func (a *app) fetchPullRequests(ctx context.Context, cmd *cobra.Command) ([]domain.PullRequest, error) {
	owner, _ := cmd.Flags().GetString("owner")
	repo, _ := cmd.Flags().GetString("repo")
	since, err := a.since(cmd)
	if err != nil {
		return nil, err
	}

	prs, err := a.aggregator.FetchPullRequests(ctx, owner, repo, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pull requests: %w", err)
	}
	if classifier.HasBotAuthors(prs) {
		a.log.Infow("repository has bot-authored pull requests", "owner", owner, "repo", repo)
	}
	return prs, nil
}

// loadDashboard fetches the pull requests into a fresh Dashboard.
func (a *app) loadDashboard(ctx context.Context, cmd *cobra.Command) (*usecase.Dashboard, error) {
	prs, err := a.fetchPullRequests(ctx, cmd)
	if err != nil {
		return nil, err
	}
	d := usecase.NewDashboard(a.bots)
	d.SetPullRequests(prs)
	return d, nil
}

// distributionOptions reads the flags registered by addDistributionFlags.
func (a *app) distributionOptions(cmd *cobra.Command) (usecase.DistributionOptions, error) {
	viewStr, _ := cmd.Flags().GetString("view")
	mode, err := domain.ParseViewMode(viewStr)
	if err != nil {
		return usecase.DistributionOptions{}, err
	}
	excludeBots, _ := cmd.Flags().GetBool("exclude-bots")
	maxVisible, _ := cmd.Flags().GetInt("max-visible")
	if maxVisible <= 0 {
		maxVisible = a.cfg.Insights.MaxVisible
	}
	expanded, _ := cmd.Flags().GetBool("expanded")
	return usecase.DistributionOptions{
		ExcludeBots: excludeBots,
		ViewMode:    mode,
		MaxVisible:  maxVisible,
		Expanded:    expanded,
	}, nil
}

// printJSON writes v to standard output as pretty-printed JSON.
func printJSON(v any) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	fmt.Println(string(jsonData))
	return nil
}

// exitOnError prints err to standard error and exits with status 1.
func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
