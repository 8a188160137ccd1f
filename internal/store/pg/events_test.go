package pg

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naka-gawa/github-insights/internal/domain"
)

func TestEventStore_Errors(t *testing.T) {
	db, err := sql.Open("postgres", "postgres://localhost:1/none?sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ctx := context.Background()
	store := NewEventStore(db, zap.NewNop().Sugar())

	testCases := []struct {
		name    string
		call    func() error
		wantErr string
	}{
		{
			name: "workspace repositories",
			call: func() error {
				_, err := store.WorkspaceRepositories(ctx, nil)
				return err
			},
			wantErr: "failed to query workspace repositories: sql: database is closed",
		},
		{
			name:    "upsert",
			call:    func() error { return store.UpsertEvent(ctx, domain.RepoEvent{EventID: "42"}, "") },
			wantErr: "failed to upsert event 42: sql: database is closed",
		},
		{
			name: "count",
			call: func() error {
				_, err := store.CountEvents(ctx)
				return err
			},
			wantErr: "failed to count events: sql: database is closed",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)
			assert.EqualError(t, err, tc.wantErr)
		})
	}
}
