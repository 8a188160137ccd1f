// Package pg implements the Postgres events cache.
package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naka-gawa/github-insights/internal/domain"
)

// Querier is the subset of *sql.DB and *sql.Tx the store needs.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// EventStore reads workspaces and writes the github_events_cache table.
type EventStore struct {
	db     Querier
	logger *zap.SugaredLogger
}

// NewEventStore creates an EventStore on db.
func NewEventStore(db Querier, logger *zap.SugaredLogger) *EventStore {
	return &EventStore{db: db, logger: logger.Named("store")}
}

const workspaceReposAll = `
	SELECT r.owner, r.name, w.name
	FROM workspace_repositories wr
	JOIN repositories r ON wr.repository_id = r.id
	JOIN workspaces w ON wr.workspace_id = w.id
	ORDER BY w.name, r.owner, r.name`

const workspaceReposOne = `
	SELECT r.owner, r.name, w.name
	FROM workspace_repositories wr
	JOIN repositories r ON wr.repository_id = r.id
	JOIN workspaces w ON wr.workspace_id = w.id
	WHERE wr.workspace_id = $1
	ORDER BY r.owner, r.name`

// WorkspaceRepositories lists the repositories of workspaceID, or of every workspace when nil.
func (s *EventStore) WorkspaceRepositories(ctx context.Context, workspaceID *uuid.UUID) ([]domain.WorkspaceRepo, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if workspaceID != nil {
		rows, err = s.db.QueryContext(ctx, workspaceReposOne, *workspaceID)
	} else {
		rows, err = s.db.QueryContext(ctx, workspaceReposAll)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query workspace repositories: %w", err)
	}
	defer s.closeRows(rows)

	var repos []domain.WorkspaceRepo
	for rows.Next() {
		var r domain.WorkspaceRepo
		if err := rows.Scan(&r.Owner, &r.Name, &r.Workspace); err != nil {
			return nil, fmt.Errorf("failed to scan workspace repository: %w", err)
		}
		repos = append(repos, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read workspace repositories: %w", err)
	}
	return repos, nil
}

// UpsertEvent inserts an event. Re-inserting the same event marks it processed
// again and appends to its notes.
func (s *EventStore) UpsertEvent(ctx context.Context, ev domain.RepoEvent, note string) error {
	payload := []byte(ev.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO github_events_cache
			(event_id, event_type, actor_login, repository_owner, repository_name, payload, created_at, processing_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id, created_at) DO UPDATE SET
			processed_at = NOW(),
			processing_notes = COALESCE(github_events_cache.processing_notes, '') || '; Updated from workspace backfill'
	`, ev.EventID, ev.Type, ev.ActorLogin, ev.RepoOwner, ev.RepoName, string(payload), ev.CreatedAt, note)
	if err != nil {
		return fmt.Errorf("failed to upsert event %s: %w", ev.EventID, err)
	}
	return nil
}

// CountEvents returns the number of cached events.
func (s *EventStore) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM github_events_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

func (s *EventStore) closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		s.logger.Errorw("failed to close rows", "error", err)
	}
}
