package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naka-gawa/github-insights/internal/domain"
)

type mockEventStore struct {
	mock.Mock
}

func (m *mockEventStore) WorkspaceRepositories(ctx context.Context, workspaceID *uuid.UUID) ([]domain.WorkspaceRepo, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WorkspaceRepo), args.Error(1)
}

func (m *mockEventStore) UpsertEvent(ctx context.Context, event domain.RepoEvent, note string) error {
	return m.Called(ctx, event, note).Error(0)
}

func (m *mockEventStore) CountEvents(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func repoEvent(id, typ, owner, name string) domain.RepoEvent {
	return domain.RepoEvent{
		EventID: id, Type: typ, ActorID: 1, ActorLogin: "alice", RepoID: 9,
		RepoOwner: owner, RepoName: name, Public: true,
		Payload:   json.RawMessage(`{"action":"started"}`),
		CreatedAt: day(55),
	}
}

func newTestBackfiller(source EventSource, store EventStore) *Backfiller {
	b := NewBackfiller(source, store, BackfillOptions{}, zap.NewNop().Sugar())
	b.now = func() time.Time { return day(60) }
	return b
}

func TestBackfiller_Run(t *testing.T) {
	ctx := context.Background()
	workspace := uuid.New()
	repos := []domain.WorkspaceRepo{
		{Owner: "o", Name: "a", Workspace: "ws"},
		{Owner: "o", Name: "gone", Workspace: "ws"},
		{Owner: "o", Name: "b", Workspace: "ws"},
	}

	source := new(mockFetcher)
	store := new(mockEventStore)
	store.On("WorkspaceRepositories", mock.Anything, &workspace).Return(repos, nil)

	cutoff := day(30)
	source.On("FetchRepoEvents", mock.Anything, "o", "a", cutoff, 10).Return([]domain.RepoEvent{
		repoEvent("1", "WatchEvent", "o", "a"),
		repoEvent("2", "ForkEvent", "o", "a"),
	}, nil)
	source.On("FetchRepoEvents", mock.Anything, "o", "gone", cutoff, 10).Return(nil, errors.New("boom"))
	source.On("FetchRepoEvents", mock.Anything, "o", "b", cutoff, 10).Return([]domain.RepoEvent{
		repoEvent("3", "IssuesEvent", "o", "b"),
	}, nil)

	note := "Workspace backfill on " + day(60).Format(time.RFC3339)
	store.On("UpsertEvent", mock.Anything, mock.MatchedBy(func(e domain.RepoEvent) bool { return e.EventID == "1" }), note).Return(nil)
	store.On("UpsertEvent", mock.Anything, mock.MatchedBy(func(e domain.RepoEvent) bool { return e.EventID == "2" }), note).Return(errors.New("constraint"))
	store.On("UpsertEvent", mock.Anything, mock.MatchedBy(func(e domain.RepoEvent) bool { return e.EventID == "3" }), note).Return(nil)
	store.On("CountEvents", mock.Anything).Return(int64(42), nil)

	stats, err := newTestBackfiller(source, store).Run(ctx, &workspace)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.ReposProcessed)
	assert.Equal(t, 3, stats.EventsFetched)
	assert.Equal(t, 2, stats.EventsInserted)
	assert.Equal(t, 2, stats.Errors, "one failed repository and one failed insert")
	assert.Equal(t, int64(42), stats.TotalCached)

	source.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestBackfiller_Run_NoRepositories(t *testing.T) {
	store := new(mockEventStore)
	store.On("WorkspaceRepositories", mock.Anything, (*uuid.UUID)(nil)).Return([]domain.WorkspaceRepo{}, nil)

	stats, err := newTestBackfiller(new(mockFetcher), store).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, BackfillStats{}, stats)
	store.AssertExpectations(t)
}

func TestBackfiller_Run_StoreFailure(t *testing.T) {
	store := new(mockEventStore)
	store.On("WorkspaceRepositories", mock.Anything, (*uuid.UUID)(nil)).Return(nil, errors.New("connection refused"))

	_, err := newTestBackfiller(new(mockFetcher), store).Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list workspace repositories")
}

func TestBackfiller_Run_CancelledBetweenRepositories(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	source := new(mockFetcher)
	store := new(mockEventStore)
	store.On("WorkspaceRepositories", mock.Anything, (*uuid.UUID)(nil)).Return([]domain.WorkspaceRepo{
		{Owner: "o", Name: "a"}, {Owner: "o", Name: "b"},
	}, nil)
	source.On("FetchRepoEvents", mock.Anything, "o", "a", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return([]domain.RepoEvent{}, nil)
	store.On("CountEvents", mock.Anything).Return(int64(0), nil)

	b := NewBackfiller(source, store, BackfillOptions{Pause: time.Hour}, zap.NewNop().Sugar())
	stats, err := b.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ReposProcessed)
	source.AssertNotCalled(t, "FetchRepoEvents", mock.Anything, "o", "b", mock.Anything, mock.Anything)
}

func TestBackfillPayload(t *testing.T) {
	ev := domain.RepoEvent{
		EventID: "1", Type: "PullRequestEvent", ActorID: 7, ActorLogin: "alice", ActorAvatar: "https://a",
		RepoID: 9, RepoOwner: "o", RepoName: "r", Public: true,
		Payload: json.RawMessage(`{"action":"closed","number":5,"public":false}`),
	}
	raw, err := backfillPayload(ev, day(60))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "closed", got["action"])
	assert.Equal(t, float64(5), got["number"])
	assert.Equal(t, false, got["public"], "event payload fields win")
	assert.Equal(t, BackfillSource, got["backfill_source"])
	assert.Equal(t, day(60).Format(time.RFC3339), got["backfill_date"])
	assert.Equal(t, map[string]any{"id": float64(7), "login": "alice", "avatar_url": "https://a"}, got["actor"])
	assert.Equal(t, map[string]any{"id": float64(9), "name": "o/r"}, got["repo"])

	ev.Payload = json.RawMessage(`[1,2]`)
	_, err = backfillPayload(ev, day(60))
	assert.Error(t, err)

	ev.Payload = nil
	ev.Action = ""
	raw, err = backfillPayload(ev, day(60))
	require.NoError(t, err)
	got = nil
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Contains(t, got, "action")
	assert.Nil(t, got["action"])
}
