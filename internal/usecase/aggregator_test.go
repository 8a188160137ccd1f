package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naka-gawa/github-insights/internal/domain"
	"github.com/naka-gawa/github-insights/internal/gateway"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchPullRequests(ctx context.Context, owner, repo string, state gateway.PRQueryState, since time.Time) ([]domain.PullRequest, error) {
	args := m.Called(ctx, owner, repo, state, since)
	// We need to handle the case where the returned slice is nil (e.g., when an error occurs).
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PullRequest), args.Error(1)
}

func (m *mockFetcher) FetchIssues(ctx context.Context, owner, repo string, since time.Time) ([]domain.Issue, error) {
	args := m.Called(ctx, owner, repo, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Issue), args.Error(1)
}

func (m *mockFetcher) FetchRepoEvents(ctx context.Context, owner, repo string, cutoff time.Time, maxPages int) ([]domain.RepoEvent, error) {
	args := m.Called(ctx, owner, repo, cutoff, maxPages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RepoEvent), args.Error(1)
}

var base = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return base.AddDate(0, 0, n) }

func timeAt(n int) *time.Time {
	t := day(n)
	return &t
}

func user(login string) domain.Actor { return domain.Actor{Login: login, Type: "User"} }

func TestAggregator_Aggregate(t *testing.T) {
	since := day(-30)

	openPR := domain.PullRequest{
		ID: 1, Number: 1, Repository: "o/r", State: domain.PRStateOpen,
		CreatedAt: day(2), UpdatedAt: day(3), Author: user("alice"),
		Reviews: []domain.Review{{Author: user("bob"), State: domain.ReviewApproved, SubmittedAt: day(3)}},
	}
	mergedPR := domain.PullRequest{
		ID: 2, Number: 2, Repository: "o/r", State: domain.PRStateClosed,
		CreatedAt: day(1), UpdatedAt: day(2), ClosedAt: timeAt(2), MergedAt: timeAt(2),
		Author: user("carol"), MergedBy: &domain.Actor{Login: "bob"},
	}

	testCases := []struct {
		name           string
		mockOpen       []domain.PullRequest
		mockClosed     []domain.PullRequest
		mockOpenErr    error
		mockClosedErr  error
		expectedResult []*domain.ContributorStats
		expectError    bool
	}{
		{
			name:       "happy path - successfully aggregates open and closed pull requests",
			mockOpen:   []domain.PullRequest{openPR},
			mockClosed: []domain.PullRequest{mergedPR},
			expectedResult: []*domain.ContributorStats{
				{Login: "alice", OpenedPRs: 1, Total: 1},
				{Login: "bob", MergedPRs: 1, Reviews: 1, Total: 2},
				{Login: "carol", OpenedPRs: 1, Total: 1},
			},
		},
		{
			name:       "duplicate pull request across states is counted once",
			mockOpen:   []domain.PullRequest{mergedPR},
			mockClosed: []domain.PullRequest{mergedPR},
			expectedResult: []*domain.ContributorStats{
				{Login: "bob", MergedPRs: 1, Total: 1},
				{Login: "carol", OpenedPRs: 1, Total: 1},
			},
		},
		{
			name:          "error case - fetch closed pull requests fails",
			mockOpen:      []domain.PullRequest{},
			mockClosedErr: errors.New("github api error"),
			expectError:   true,
		},
		{
			name:           "empty case - no pull requests",
			mockOpen:       []domain.PullRequest{},
			mockClosed:     []domain.PullRequest{},
			expectedResult: []*domain.ContributorStats{}, // Expect an empty slice, not nil
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			fetcher := new(mockFetcher)

			fetcher.On("FetchPullRequests", mock.Anything, "o", "r", gateway.PRQueryOpen, since).Return(tc.mockOpen, tc.mockOpenErr).Maybe()
			fetcher.On("FetchPullRequests", mock.Anything, "o", "r", gateway.PRQueryClosed, since).Return(tc.mockClosed, tc.mockClosedErr)

			aggregator := NewAggregator(fetcher, zap.NewNop().Sugar())

			results, err := aggregator.Aggregate(ctx, "o", "r", since)

			if tc.expectError {
				assert.Error(t, err)
				assert.Nil(t, results)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expectedResult, results)
			}

			fetcher.AssertExpectations(t)
		})
	}
}

func TestAggregator_FetchPullRequests(t *testing.T) {
	since := day(-30)
	fetcher := new(mockFetcher)

	older := domain.PullRequest{ID: 10, Number: 10, State: domain.PRStateClosed, CreatedAt: day(1), ClosedAt: timeAt(4)}
	newer := domain.PullRequest{ID: 11, Number: 11, State: domain.PRStateDraft, CreatedAt: day(5)}
	stale := domain.PullRequest{ID: 10, Number: 10, State: domain.PRStateOpen, CreatedAt: day(1)}
	broken := domain.PullRequest{ID: 12, Number: 12, State: domain.PRStateOpen, CreatedAt: day(2), MergedAt: timeAt(3)}

	fetcher.On("FetchPullRequests", mock.Anything, "o", "r", gateway.PRQueryOpen, since).Return([]domain.PullRequest{newer, stale, broken}, nil)
	fetcher.On("FetchPullRequests", mock.Anything, "o", "r", gateway.PRQueryClosed, since).Return([]domain.PullRequest{older}, nil)

	prs, err := NewAggregator(fetcher, zap.NewNop().Sugar()).FetchPullRequests(context.Background(), "o", "r", since)
	require.NoError(t, err)
	require.Len(t, prs, 2)

	assert.Equal(t, 10, prs[0].Number)
	assert.Equal(t, domain.PRStateClosed, prs[0].State, "the closed copy of a duplicated pull request wins")
	assert.Equal(t, 11, prs[1].Number)
	fetcher.AssertExpectations(t)
}
