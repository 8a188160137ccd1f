package usecase

import (
	"slices"
	"sync"

	"github.com/naka-gawa/github-insights/internal/dataview"
	"github.com/naka-gawa/github-insights/internal/domain"
)

type distKey struct {
	excludeBots bool
	mode        domain.ViewMode
	maxVisible  int
	expanded    bool
}

// Dashboard owns one snapshot of pull requests and the view-models derived from
// it. Derivations are memoized until the snapshot is replaced. Every accessor
// returns a copy, so callers may modify the result.
type Dashboard struct {
	bots BotDetector

	mu       sync.RWMutex
	revision uint64
	prs      []domain.PullRequest

	reviewers    Memo[distKey, ReviewerDistribution]
	authors      Memo[distKey, AuthorDistribution]
	events       Memo[struct{}, []domain.ActivityEvent]
	contributors Memo[bool, []*domain.ContributorStats]
}

// NewDashboard creates an empty dashboard. bots may be nil.
func NewDashboard(bots BotDetector) *Dashboard {
	return &Dashboard{bots: bots}
}

// SetPullRequests replaces the snapshot and invalidates every cached view.
func (d *Dashboard) SetPullRequests(prs []domain.PullRequest) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prs = slices.Clone(prs)
	d.revision++
}

// Revision increases by one on every SetPullRequests.
func (d *Dashboard) Revision() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}

func (d *Dashboard) snapshot() ([]domain.PullRequest, uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.prs, d.revision
}

func keyOf(opts DistributionOptions) distKey {
	return distKey{
		excludeBots: opts.ExcludeBots,
		mode:        viewModeOf(opts),
		maxVisible:  opts.MaxVisible,
		expanded:    opts.Expanded,
	}
}

// ReviewerDistribution returns the memoized reviewer distribution.
func (d *Dashboard) ReviewerDistribution(opts DistributionOptions) ReviewerDistribution {
	prs, rev := d.snapshot()
	opts.Bots = d.bots
	dist := d.reviewers.Get(rev, keyOf(opts), func() ReviewerDistribution {
		return BuildReviewerDistribution(prs, opts)
	})
	dist.Reviewers = slices.Clone(dist.Reviewers)
	return dist
}

// AuthorStatus returns the memoized author status distribution.
func (d *Dashboard) AuthorStatus(opts DistributionOptions) AuthorDistribution {
	prs, rev := d.snapshot()
	opts.Bots = d.bots
	dist := d.authors.Get(rev, keyOf(opts), func() AuthorDistribution {
		return BuildAuthorStatus(prs, opts)
	})
	dist.Authors = slices.Clone(dist.Authors)
	return dist
}

// Events returns the sorted activity events of the snapshot.
func (d *Dashboard) Events() []domain.ActivityEvent {
	prs, rev := d.snapshot()
	return slices.Clone(d.eventsAt(prs, rev))
}

func (d *Dashboard) eventsAt(prs []domain.PullRequest, rev uint64) []domain.ActivityEvent {
	return d.events.Get(rev, struct{}{}, func() []domain.ActivityEvent {
		return BuildActivityEvents(prs)
	})
}

// memoEvents returns the shared memoized events; they must not be modified.
func (d *Dashboard) memoEvents() []domain.ActivityEvent {
	prs, rev := d.snapshot()
	return d.eventsAt(prs, rev)
}

// Feed filters and paginates the memoized events.
func (d *Dashboard) Feed(q FeedQuery) FeedView {
	return PaginateFeed(d.memoEvents(), q, d.bots)
}

// SearchFeed narrows the events with f before paginating them.
func (d *Dashboard) SearchFeed(f dataview.Filter, q FeedQuery) FeedView {
	events := dataview.FilterData(d.memoEvents(), f, []string{"actor", "title", "type"})
	return PaginateFeed(events, q, d.bots)
}

// FilteredEvents returns every event matching the bot and type filters, unpaginated.
func (d *Dashboard) FilteredEvents(includeBots bool, types []domain.EventType) []domain.ActivityEvent {
	return FilterEvents(d.memoEvents(), includeBots, types, d.bots)
}

// Contributors returns per-contributor activity counts. Bot activity is left
// out unless includeBots is set.
func (d *Dashboard) Contributors(includeBots bool) []*domain.ContributorStats {
	prs, rev := d.snapshot()
	events := d.eventsAt(prs, rev)
	stats := d.contributors.Get(rev, includeBots, func() []*domain.ContributorStats {
		return ContributorActivityCounts(FilterEvents(events, includeBots, nil, d.bots))
	})
	out := make([]*domain.ContributorStats, len(stats))
	for i, s := range stats {
		c := *s
		out[i] = &c
	}
	return out
}
