package usecase

import (
	"fmt"
	"slices"
	"time"

	"github.com/naka-gawa/github-insights/internal/domain"
)

// DefaultPageSize is how many feed entries one "load more" reveals.
const DefaultPageSize = 15

// BuildActivityEvents derives the activity events of prs, newest first.
// Every PR yields an opened event plus a merged or closed event when that
// happened, one reviewed event per review and one commented event per comment.
// Events with the same timestamp keep the order of prs.
func BuildActivityEvents(prs []domain.PullRequest) []domain.ActivityEvent {
	var events []domain.ActivityEvent
	for _, pr := range prs {
		ref := domain.PRRef{Number: pr.Number, Title: pr.Title, URL: pr.URL}
		add := func(typ domain.EventType, actor domain.Actor, ts time.Time, seq int) {
			events = append(events, domain.ActivityEvent{
				ID:          fmt.Sprintf("%s#%d:%s:%s:%d", pr.Repository, pr.Number, typ, actor.Login, seq),
				Type:        typ,
				Actor:       actor,
				PullRequest: ref,
				Repository:  pr.Repository,
				Timestamp:   ts,
			})
		}

		add(domain.EventOpened, pr.Author, pr.CreatedAt, 0)
		switch {
		case pr.IsMerged():
			actor := pr.Author
			if pr.MergedBy != nil && pr.MergedBy.Login != "" {
				actor = *pr.MergedBy
			}
			add(domain.EventMerged, actor, *pr.MergedAt, 0)
		case pr.State == domain.PRStateClosed:
			ts := pr.UpdatedAt
			if pr.ClosedAt != nil {
				ts = *pr.ClosedAt
			}
			add(domain.EventClosed, pr.Author, ts, 0)
		}
		for i, r := range pr.Reviews {
			add(domain.EventReviewed, r.Author, r.SubmittedAt, i)
		}
		for i, c := range pr.Comments {
			add(domain.EventCommented, c.Author, c.CreatedAt, i)
		}
	}
	slices.SortStableFunc(events, func(a, b domain.ActivityEvent) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return events
}

// FilterEvents drops bot events unless includeBots is set and keeps only the
// selected types. An empty types list selects everything.
func FilterEvents(events []domain.ActivityEvent, includeBots bool, types []domain.EventType, bots BotDetector) []domain.ActivityEvent {
	out := make([]domain.ActivityEvent, 0, len(events))
	for _, e := range events {
		if !includeBots && isBot(bots, e.Actor) {
			continue
		}
		if len(types) > 0 && !slices.Contains(types, e.Type) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FeedQuery is the user-controlled state of a feed.
type FeedQuery struct {
	IncludeBots   bool               `json:"includeBots"`
	SelectedTypes []domain.EventType `json:"selectedTypes,omitempty"`
	VisibleCount  int                `json:"visibleCount"`
}

// FeedView is what a feed renders. Loading and Error are part of the result so
// the caller never has to handle a failure separately.
type FeedView struct {
	Events       []domain.ActivityEvent `json:"events"`
	Total        int                    `json:"total"`
	VisibleCount int                    `json:"visibleCount"`
	HasMore      bool                   `json:"hasMore"`
	Loading      bool                   `json:"loading"`
	Error        string                 `json:"error,omitempty"`
}

// PaginateFeed applies q to events, which must already be sorted.
func PaginateFeed(events []domain.ActivityEvent, q FeedQuery, bots BotDetector) FeedView {
	filtered := FilterEvents(events, q.IncludeBots, q.SelectedTypes, bots)
	visible := q.VisibleCount
	if visible <= 0 {
		visible = DefaultPageSize
	}
	view := FeedView{Total: len(filtered), VisibleCount: visible}
	if visible < len(filtered) {
		view.Events = filtered[:visible]
		view.HasMore = true
	} else {
		view.Events = filtered
	}
	return view
}

// ActivityFeed is the incrementally loaded feed of one repository.
// It is not safe for concurrent use.
type ActivityFeed struct {
	bots     BotDetector
	pageSize int
	query    FeedQuery
	events   []domain.ActivityEvent
	loading  bool
	err      error
}

// NewActivityFeed returns a feed in the loading state.
func NewActivityFeed(bots BotDetector, pageSize int) *ActivityFeed {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ActivityFeed{
		bots:     bots,
		pageSize: pageSize,
		query:    FeedQuery{VisibleCount: pageSize},
		loading:  true,
	}
}

// SetPullRequests replaces the source records and leaves the loading state.
func (f *ActivityFeed) SetPullRequests(prs []domain.PullRequest) {
	f.events = BuildActivityEvents(prs)
	f.loading = false
	f.err = nil
}

// SetError records a failed load. Previously loaded events are dropped.
func (f *ActivityFeed) SetError(err error) {
	f.events = nil
	f.loading = false
	f.err = err
}

// SetFilters changes the filters and resets pagination to the first page.
func (f *ActivityFeed) SetFilters(includeBots bool, types []domain.EventType) {
	f.query.IncludeBots = includeBots
	f.query.SelectedTypes = slices.Clone(types)
	f.query.VisibleCount = f.pageSize
}

// LoadMore reveals one more page.
func (f *ActivityFeed) LoadMore() {
	f.query.VisibleCount += f.pageSize
}

// View renders the current state.
func (f *ActivityFeed) View() FeedView {
	if f.loading || f.err != nil {
		v := FeedView{Events: []domain.ActivityEvent{}, VisibleCount: f.query.VisibleCount, Loading: f.loading}
		if f.err != nil {
			v.Error = f.err.Error()
		}
		return v
	}
	return PaginateFeed(f.events, f.query, f.bots)
}

// ContributorActivityCounts tallies events per actor, busiest first, ties in
// first-seen order.
func ContributorActivityCounts(events []domain.ActivityEvent) []*domain.ContributorStats {
	order := make([]*domain.ContributorStats, 0)
	byLogin := make(map[string]*domain.ContributorStats)
	for _, e := range events {
		if e.Actor.Login == "" {
			continue
		}
		s, ok := byLogin[e.Actor.Login]
		if !ok {
			s = &domain.ContributorStats{Login: e.Actor.Login, AvatarURL: e.Actor.AvatarURL}
			byLogin[e.Actor.Login] = s
			order = append(order, s)
		}
		s.Association = domain.StrongerAssociation(s.Association, e.Actor.Association)
		switch e.Type {
		case domain.EventOpened:
			s.OpenedPRs++
		case domain.EventMerged:
			s.MergedPRs++
		case domain.EventClosed:
			s.ClosedPRs++
		case domain.EventReviewed:
			s.Reviews++
		case domain.EventCommented:
			s.Comments++
		}
		s.Total++
	}
	slices.SortStableFunc(order, func(a, b *domain.ContributorStats) int {
		return b.Total - a.Total
	})
	return order
}
