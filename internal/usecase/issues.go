package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/naka-gawa/github-insights/internal/dataview"
	"github.com/naka-gawa/github-insights/internal/domain"
)

// IssueSource returns every open issue plus the closed issues updated since since.
type IssueSource interface {
	FetchIssues(ctx context.Context, owner, repo string, since time.Time) ([]domain.Issue, error)
}

// DefaultStaleAfter is how long an open issue may stay untouched before it is stale.
const DefaultStaleAfter = 30 * 24 * time.Hour

const maxFirstResponders = 3
const maxRepeatReporters = 5

// labels that disqualify a bug report.
var notABug = []string{"invalid", "duplicate", "wontfix", "won't fix", "not a bug", "question"}

// IssueMetricsService computes issue health snapshots. Failures never escape:
// they come back as snapshots with StatusError.
type IssueMetricsService struct {
	source       IssueSource
	logger       *zap.SugaredLogger
	staleAfter   time.Duration
	bots         BotDetector
	now          func() time.Time
	group        singleflight.Group
	fetchTimeout time.Duration
}

// NewIssueMetricsService creates the service. A non-positive staleAfter uses DefaultStaleAfter.
func NewIssueMetricsService(source IssueSource, logger *zap.SugaredLogger, staleAfter time.Duration, bots BotDetector) *IssueMetricsService {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &IssueMetricsService{
		source:       source,
		logger:       logger.Named("issues"),
		staleAfter:   staleAfter,
		bots:         bots,
		now:          time.Now,
		fetchTimeout: DefaultLoadTimeout,
	}
}

// fetch coalesces concurrent requests for the same repository and window.
// The shared fetch is detached from ctx; a caller whose ctx ends stops waiting
// without failing the others.
func (s *IssueMetricsService) fetch(ctx context.Context, owner, repo string, days int, since time.Time) ([]domain.Issue, error) {
	key := fmt.Sprintf("%s/%s/%d", owner, repo, days)
	ch := s.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.source.FetchIssues(fetchCtx, owner, repo, since)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debugw("issue fetch coalesced", "key", key)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Issue), nil
	}
}

func validateWindow(owner, repo string, days int) error {
	if owner == "" || repo == "" {
		return errors.New("owner and repo are required")
	}
	if days <= 0 {
		return fmt.Errorf("time range must be positive, got %d days", days)
	}
	return nil
}

// CalculateIssueMetrics returns the health snapshot of owner/repo over the last timeRangeDays.
func (s *IssueMetricsService) CalculateIssueMetrics(ctx context.Context, owner, repo string, timeRangeDays int) domain.IssueMetrics {
	if err := validateWindow(owner, repo, timeRangeDays); err != nil {
		return s.failedMetrics(owner, repo, err)
	}
	end := s.now()
	start := end.AddDate(0, 0, -timeRangeDays)
	issues, err := s.fetch(ctx, owner, repo, timeRangeDays, start)
	if err != nil {
		return s.failedMetrics(owner, repo, err)
	}
	m := computeIssueMetrics(issues, start, end, s.staleAfter, s.bots)
	s.logger.Infow("issue metrics calculated", "repo", owner+"/"+repo, "days", timeRangeDays, "issues", len(issues))
	return m
}

func (s *IssueMetricsService) failedMetrics(owner, repo string, err error) domain.IssueMetrics {
	s.logger.Errorw("failed to calculate issue metrics", "repo", owner+"/"+repo, "error", err)
	return domain.IssueMetrics{
		Status:  domain.StatusError,
		Message: fmt.Sprintf("failed to calculate issue metrics: %v", err),
		ActivityPatterns: domain.ActivityPatterns{
			FirstResponders: []domain.UserCount{},
			RepeatReporters: []domain.UserCount{},
		},
	}
}

// CalculateIssueTrendMetrics compares the last timeRangeDays with the window before it.
func (s *IssueMetricsService) CalculateIssueTrendMetrics(ctx context.Context, owner, repo string, timeRangeDays int) domain.IssueTrendReport {
	if err := validateWindow(owner, repo, timeRangeDays); err != nil {
		return s.failedTrends(owner, repo, err)
	}
	end := s.now()
	mid := end.AddDate(0, 0, -timeRangeDays)
	start := mid.AddDate(0, 0, -timeRangeDays)
	issues, err := s.fetch(ctx, owner, repo, 2*timeRangeDays, start)
	if err != nil {
		return s.failedTrends(owner, repo, err)
	}

	current := computeIssueMetrics(issues, mid, end, s.staleAfter, s.bots)
	previous := computeIssueMetrics(issues, start, mid, s.staleAfter, s.bots)

	trends := []domain.IssueTrendData{
		trendRow("Stale Issues", float64(current.StaleVsActiveRatio.Stale), float64(previous.StaleVsActiveRatio.Stale), "issues", false),
		trendRow("Issue Half-life", current.IssueHalfLife, previous.IssueHalfLife, "days", false),
		trendRow("Bug Reports", current.LegitimateBugPercentage, previous.LegitimateBugPercentage, "%", false),
		trendRow("New Issues", float64(countCreated(issues, mid, end)), float64(countCreated(issues, start, mid)), "issues", true),
	}
	return domain.IssueTrendReport{Status: domain.StatusSuccess, Trends: trends}
}

func (s *IssueMetricsService) failedTrends(owner, repo string, err error) domain.IssueTrendReport {
	s.logger.Errorw("failed to calculate issue trends", "repo", owner+"/"+repo, "error", err)
	return domain.IssueTrendReport{
		Status:  domain.StatusError,
		Message: fmt.Sprintf("failed to calculate issue trends: %v", err),
		Trends:  []domain.IssueTrendData{},
	}
}

// trendRow builds one trend line. upIsGood flips the wording of the insight.
func trendRow(metric string, current, previous float64, unit string, upIsGood bool) domain.IssueTrendData {
	t := dataview.CalculateTrend(current, previous)
	row := domain.IssueTrendData{
		Metric:   metric,
		Current:  current,
		Previous: previous,
		Change:   t.Percentage,
		Trend:    string(t.Direction),
		Unit:     unit,
	}
	switch {
	case t.Direction == dataview.TrendNeutral:
		row.Insight = fmt.Sprintf("%s unchanged", metric)
	case (t.Direction == dataview.TrendUp) == upIsGood:
		row.Insight = fmt.Sprintf("%s improved by %d%%", metric, t.Percentage)
	default:
		row.Insight = fmt.Sprintf("%s worsened by %d%%", metric, t.Percentage)
	}
	return row
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func countCreated(issues []domain.Issue, start, end time.Time) int {
	n := 0
	for _, is := range issues {
		if inWindow(is.CreatedAt, start, end) {
			n++
		}
	}
	return n
}

// openAt reports whether the issue existed and was open at t.
func openAt(is domain.Issue, t time.Time) bool {
	if is.CreatedAt.After(t) {
		return false
	}
	if is.ClosedAt != nil {
		return is.ClosedAt.After(t)
	}
	return is.IsOpen()
}

// lastActivity is the latest known touch of the issue no later than t.
func lastActivity(is domain.Issue, t time.Time) time.Time {
	last := is.CreatedAt
	if !is.UpdatedAt.After(t) && is.UpdatedAt.After(last) {
		last = is.UpdatedAt
	}
	for _, c := range is.Comments {
		if !c.CreatedAt.After(t) && c.CreatedAt.After(last) {
			last = c.CreatedAt
		}
	}
	return last
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func isLegitimateBug(labels []string) bool {
	bug := false
	for _, l := range labels {
		l = strings.ToLower(l)
		for _, n := range notABug {
			if strings.Contains(l, n) {
				return false
			}
		}
		if strings.Contains(l, "bug") {
			bug = true
		}
	}
	return bug
}

// userCounter counts per login and keeps first-seen order for ties.
type userCounter struct {
	order  []string
	counts map[string]int
}

func newUserCounter() *userCounter {
	return &userCounter{counts: make(map[string]int)}
}

func (u *userCounter) inc(login string) {
	if _, ok := u.counts[login]; !ok {
		u.order = append(u.order, login)
	}
	u.counts[login]++
}

func (u *userCounter) top(minCount, limit int) []domain.UserCount {
	out := make([]domain.UserCount, 0, len(u.order))
	for _, login := range u.order {
		if c := u.counts[login]; c >= minCount {
			out = append(out, domain.UserCount{Login: login, Count: c})
		}
	}
	slices.SortStableFunc(out, func(a, b domain.UserCount) int { return b.Count - a.Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// computeIssueMetrics derives the snapshot for the window [start, end].
func computeIssueMetrics(issues []domain.Issue, start, end time.Time, staleAfter time.Duration, bots BotDetector) domain.IssueMetrics {
	m := domain.IssueMetrics{Status: domain.StatusSuccess}

	// Stale vs active, as of the end of the window.
	for _, is := range issues {
		if !openAt(is, end) {
			continue
		}
		if end.Sub(lastActivity(is, end)) >= staleAfter {
			m.StaleVsActiveRatio.Stale++
		} else {
			m.StaleVsActiveRatio.Active++
		}
	}
	if total := m.StaleVsActiveRatio.Stale + m.StaleVsActiveRatio.Active; total > 0 {
		m.StaleVsActiveRatio.Percentage = round1(float64(m.StaleVsActiveRatio.Stale) / float64(total) * 100)
	}

	// Half-life: median days to close of issues closed in the window.
	var closeDays []float64
	for _, is := range issues {
		if is.ClosedAt != nil && inWindow(*is.ClosedAt, start, end) {
			closeDays = append(closeDays, is.ClosedAt.Sub(is.CreatedAt).Hours()/24)
		}
	}
	if len(closeDays) > 0 {
		if median, err := stats.Median(closeDays); err == nil {
			m.IssueHalfLife = round1(median)
		}
	}

	// Bug share and reporter/triager patterns over issues opened in the window.
	created, bugs := 0, 0
	reporters := newUserCounter()
	triagers := newUserCounter()
	responders := newUserCounter()
	for _, is := range issues {
		if !inWindow(is.CreatedAt, start, end) {
			continue
		}
		created++
		if isLegitimateBug(is.Labels) {
			bugs++
		}
		if is.Author.Login != "" && !isBot(bots, is.Author) {
			reporters.inc(is.Author.Login)
		}

		comments := slices.Clone(is.Comments)
		slices.SortStableFunc(comments, func(a, b domain.Comment) int { return a.CreatedAt.Compare(b.CreatedAt) })
		responded := false
		for _, c := range comments {
			if c.Author.Login == "" || c.Author.Login == is.Author.Login || isBot(bots, c.Author) {
				continue
			}
			if c.CreatedAt.After(end) {
				break
			}
			triagers.inc(c.Author.Login)
			if !responded {
				responders.inc(c.Author.Login)
				responded = true
			}
		}
	}
	if created > 0 {
		m.LegitimateBugPercentage = round1(float64(bugs) / float64(created) * 100)
	}

	if top := triagers.top(1, 1); len(top) == 1 {
		m.ActivityPatterns.MostActiveTriager = &top[0]
	}
	m.ActivityPatterns.FirstResponders = responders.top(1, maxFirstResponders)
	m.ActivityPatterns.RepeatReporters = reporters.top(2, maxRepeatReporters)
	return m
}
