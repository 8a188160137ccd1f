package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/naka-gawa/github-insights/internal/domain"
)

// PullRequestSource returns the pull requests of a repository updated since since.
// *Aggregator implements it.
type PullRequestSource interface {
	FetchPullRequests(ctx context.Context, owner, repo string, since time.Time) ([]domain.PullRequest, error)
}

// DefaultLoadTimeout bounds a shared GitHub load once no caller is left to cancel it.
const DefaultLoadTimeout = 2 * time.Minute

// Insights serves the dashboards of many repositories. Each repository gets
// its own Dashboard, loaded on first use and reloaded on request.
type Insights struct {
	prs      PullRequestSource
	issues   *IssueMetricsService
	bots     BotDetector
	lookback time.Duration
	logger   *zap.SugaredLogger
	now      func() time.Time
	// loadTimeout bounds one shared load, independent of the callers waiting on it.
	loadTimeout time.Duration

	mu         sync.Mutex
	dashboards map[string]*Dashboard
	group      singleflight.Group
}

// NewInsights creates the service. lookback bounds how far back closed pull requests are fetched.
func NewInsights(prs PullRequestSource, issues *IssueMetricsService, bots BotDetector, lookback time.Duration, logger *zap.SugaredLogger) *Insights {
	return &Insights{
		prs:         prs,
		issues:      issues,
		bots:        bots,
		lookback:    lookback,
		logger:      logger.Named("insights"),
		now:         time.Now,
		loadTimeout: DefaultLoadTimeout,
		dashboards:  make(map[string]*Dashboard),
	}
}

// Dashboard returns the dashboard of owner/repo, loading it when it does not
// exist yet or when refresh is set.
func (s *Insights) Dashboard(ctx context.Context, owner, repo string, refresh bool) (*Dashboard, error) {
	if owner == "" || repo == "" {
		return nil, errors.New("owner and repo are required")
	}
	key := owner + "/" + repo

	s.mu.Lock()
	d, ok := s.dashboards[key]
	s.mu.Unlock()
	if ok && !refresh {
		return d, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		// The load outlives any single caller; each caller stops waiting on its own ctx.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()

		var since time.Time
		if s.lookback > 0 {
			since = s.now().Add(-s.lookback)
		}
		prs, err := s.prs.FetchPullRequests(loadCtx, owner, repo, since)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		dash, found := s.dashboards[key]
		if !found {
			dash = NewDashboard(s.bots)
			s.dashboards[key] = dash
		}
		dash.SetPullRequests(prs)
		s.logger.Infow("dashboard loaded", "repo", key, "pull_requests", len(prs), "revision", dash.Revision())
		return dash, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to load dashboard for %s: %w", key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("failed to load dashboard for %s: %w", key, res.Err)
		}
		return res.Val.(*Dashboard), nil
	}
}

// IssueMetrics returns the issue health snapshot of owner/repo.
func (s *Insights) IssueMetrics(ctx context.Context, owner, repo string, days int) domain.IssueMetrics {
	return s.issues.CalculateIssueMetrics(ctx, owner, repo, days)
}

// IssueTrends compares the last days with the window before it.
func (s *Insights) IssueTrends(ctx context.Context, owner, repo string, days int) domain.IssueTrendReport {
	return s.issues.CalculateIssueTrendMetrics(ctx, owner, repo, days)
}
