// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/github-insights/internal/domain"
	"github.com/naka-gawa/github-insights/internal/gateway"
)

// Aggregator is the use case for aggregating repository activity.
// It orchestrates the fetching and combining of data.
type Aggregator struct {
	fetcher gateway.Fetcher
	logger  *zap.SugaredLogger
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(fetcher gateway.Fetcher, logger *zap.SugaredLogger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		logger:  logger.Named("aggregator"),
	}
}

// FetchPullRequests fetches open and closed pull requests concurrently and
// merges them, de-duplicated by ID and ordered by creation time.
func (a *Aggregator) FetchPullRequests(ctx context.Context, owner, repo string, since time.Time) ([]domain.PullRequest, error) {
	a.logger.Infow("starting pull request fetch", "repo", owner+"/"+repo, "since", since)

	var open, closed []domain.PullRequest

	// Use an errgroup to fetch both states concurrently.
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var err error
		open, err = a.fetcher.FetchPullRequests(egCtx, owner, repo, gateway.PRQueryOpen, since)
		return err
	})

	eg.Go(func() error {
		var err error
		closed, err = a.fetcher.FetchPullRequests(egCtx, owner, repo, gateway.PRQueryClosed, since)
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// A pull request that changed state between the two queries shows up in
	// both; the closed copy wins.
	seen := make(map[int64]struct{})
	merged := make([]domain.PullRequest, 0, len(open)+len(closed))
	for _, pr := range slices.Concat(closed, open) {
		if _, ok := seen[pr.ID]; ok {
			continue
		}
		if err := pr.Validate(); err != nil {
			a.logger.Warnw("skipping invalid pull request", "repo", pr.Repository, "number", pr.Number, "error", err)
			continue
		}
		seen[pr.ID] = struct{}{}
		merged = append(merged, pr)
	}
	slices.SortStableFunc(merged, func(x, y domain.PullRequest) int {
		return x.CreatedAt.Compare(y.CreatedAt)
	})

	a.logger.Infow("pull requests fetched", "repo", owner+"/"+repo, "open", len(open), "closed", len(closed), "merged", len(merged))
	return merged, nil
}

// Aggregate returns per-contributor activity counts for owner/repo, sorted by login.
func (a *Aggregator) Aggregate(ctx context.Context, owner, repo string, since time.Time) ([]*domain.ContributorStats, error) {
	prs, err := a.FetchPullRequests(ctx, owner, repo, since)
	if err != nil {
		return nil, err
	}

	sortedStats := ContributorActivityCounts(BuildActivityEvents(prs))
	// Sort by login for consistent output.
	sort.Slice(sortedStats, func(i, j int) bool {
		return sortedStats[i].Login < sortedStats[j].Login
	})

	a.logger.Infow("aggregation complete", "repo", owner+"/"+repo, "contributors", len(sortedStats))
	return sortedStats, nil
}
