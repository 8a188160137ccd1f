package usecase

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/github-insights/internal/domain"
)

func TestMemo_Get(t *testing.T) {
	var m Memo[string, int]
	calls := 0
	compute := func(v int) func() int {
		return func() int {
			calls++
			return v
		}
	}

	assert.Equal(t, 1, m.Get(1, "a", compute(1)))
	assert.Equal(t, 1, m.Get(1, "a", compute(99)), "same revision and key is served from cache")
	assert.Equal(t, 2, m.Get(1, "b", compute(2)))
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 2, calls)

	assert.Equal(t, 3, m.Get(2, "a", compute(3)), "new revision recomputes")
	assert.Equal(t, 1, m.Len(), "new revision drops old entries")
	assert.Equal(t, 3, calls)
}

func TestMemo_ConcurrentGet(t *testing.T) {
	var m Memo[int, int]
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.Equal(t, i%5, m.Get(1, i%5, func() int { return i % 5 }))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, m.Len())
}

func TestDashboard(t *testing.T) {
	d := NewDashboard(nil)
	assert.Equal(t, uint64(0), d.Revision())
	assert.Empty(t, d.ReviewerDistribution(DistributionOptions{}).Reviewers)

	prs := feedFixture()
	d.SetPullRequests(prs)
	assert.Equal(t, uint64(1), d.Revision())

	// mutating the caller's slice does not leak into the snapshot
	prs[2].Author = user("mallory")

	first := d.AuthorStatus(DistributionOptions{})
	second := d.AuthorStatus(DistributionOptions{})
	assert.Equal(t, first, second)
	assert.Equal(t, 1, d.authors.Len())
	assert.NotContains(t, logins(authorRows(first)), "mallory")

	// an empty view mode is the total view and shares the cache entry
	d.AuthorStatus(DistributionOptions{ViewMode: domain.ViewTotal})
	assert.Equal(t, 1, d.authors.Len())
	d.AuthorStatus(DistributionOptions{ExcludeBots: true})
	assert.Equal(t, 2, d.authors.Len())

	events := d.Events()
	assert.Len(t, events, 13)
	assert.Equal(t, events, d.Events())

	feed := d.Feed(FeedQuery{SelectedTypes: []domain.EventType{domain.EventOpened}})
	assert.Equal(t, 4, feed.Total)

	contributors := d.Contributors(false)
	require.NotEmpty(t, contributors)
	assert.Equal(t, "bob", contributors[0].Login)
	withBots := d.Contributors(true)
	assert.Greater(t, len(withBots), len(contributors))

	d.SetPullRequests(nil)
	assert.Equal(t, uint64(2), d.Revision())
	assert.Empty(t, d.Events())
	assert.Empty(t, d.Contributors(true))
	assert.Equal(t, 0, d.AuthorStatus(DistributionOptions{}).TotalPRs)
	assert.Equal(t, 1, d.authors.Len())
}

func TestDashboard_ReviewerDistributionUsesRoster(t *testing.T) {
	pr := openPR(1, user("alice"), []domain.Actor{user("ci-runner"), user("bob")})
	d := NewDashboard(staticBots{"ci-runner": true})
	d.SetPullRequests([]domain.PullRequest{pr})

	dist := d.ReviewerDistribution(DistributionOptions{ExcludeBots: true})
	assert.Equal(t, []string{"bob"}, logins(reviewerRows(dist)))
}

type staticBots map[string]bool

func (s staticBots) IsBot(a domain.Actor) bool { return s[a.Login] }

func TestDashboard_ResultsAreCopies(t *testing.T) {
	d := NewDashboard(nil)
	d.SetPullRequests(append(feedFixture(), openPR(6, user("zed"), []domain.Actor{user("bob")})))

	events := d.Events()
	require.NotEmpty(t, events)
	want := events[0]
	events[0].Actor = user("mallory")
	assert.Equal(t, want, d.Events()[0])
	for _, e := range d.Feed(FeedQuery{IncludeBots: true}).Events {
		assert.NotEqual(t, "mallory", e.Actor.Login)
	}

	reviewers := d.ReviewerDistribution(DistributionOptions{})
	require.NotEmpty(t, reviewers.Reviewers)
	wantReviewer := reviewers.Reviewers[0]
	reviewers.Reviewers[0].Login = "mallory"
	assert.Equal(t, wantReviewer, d.ReviewerDistribution(DistributionOptions{}).Reviewers[0])

	authors := d.AuthorStatus(DistributionOptions{})
	require.NotEmpty(t, authors.Authors)
	wantAuthor := authors.Authors[0]
	authors.Authors[0].TotalPRs = 99
	assert.Equal(t, wantAuthor, d.AuthorStatus(DistributionOptions{}).Authors[0])

	contributors := d.Contributors(false)
	require.NotEmpty(t, contributors)
	wantTotal := contributors[0].Total
	contributors[0].Total = 99
	contributors[0] = nil
	again := d.Contributors(false)
	require.NotNil(t, again[0])
	assert.Equal(t, wantTotal, again[0].Total)
}
