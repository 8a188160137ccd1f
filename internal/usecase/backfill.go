package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naka-gawa/github-insights/internal/domain"
)

// EventSource lists repository events newer than cutoff.
type EventSource interface {
	FetchRepoEvents(ctx context.Context, owner, repo string, cutoff time.Time, maxPages int) ([]domain.RepoEvent, error)
}

// EventStore persists events in the events cache.
type EventStore interface {
	// WorkspaceRepositories returns the repositories of one workspace, or of all when id is nil.
	WorkspaceRepositories(ctx context.Context, workspaceID *uuid.UUID) ([]domain.WorkspaceRepo, error)
	UpsertEvent(ctx context.Context, event domain.RepoEvent, note string) error
	CountEvents(ctx context.Context) (int64, error)
}

// BackfillSource tags payloads written by the backfill job.
const BackfillSource = "workspace_backfill"

// BackfillOptions tunes a backfill run.
type BackfillOptions struct {
	Days     int
	MaxPages int
	// Pause is the delay between two repositories.
	Pause time.Duration
}

// BackfillStats summarises a run.
type BackfillStats struct {
	ReposProcessed int           `json:"repos_processed"`
	EventsFetched  int           `json:"events_fetched"`
	EventsInserted int           `json:"events_inserted"`
	Errors         int           `json:"errors"`
	TotalCached    int64         `json:"total_cached"`
	Duration       time.Duration `json:"duration"`
}

// Backfiller fills the events cache with recent events of workspace repositories.
type Backfiller struct {
	source EventSource
	store  EventStore
	opts   BackfillOptions
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewBackfiller creates a Backfiller. Zero options fall back to 30 days and 10 pages.
func NewBackfiller(source EventSource, store EventStore, opts BackfillOptions, logger *zap.SugaredLogger) *Backfiller {
	if opts.Days <= 0 {
		opts.Days = 30
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10
	}
	return &Backfiller{
		source: source,
		store:  store,
		opts:   opts,
		logger: logger.Named("backfill"),
		now:    time.Now,
	}
}

// Run backfills one workspace, or every workspace when workspaceID is nil.
// A failing repository is counted in Errors and the run moves on.
func (b *Backfiller) Run(ctx context.Context, workspaceID *uuid.UUID) (BackfillStats, error) {
	var stats BackfillStats
	start := b.now()

	repos, err := b.store.WorkspaceRepositories(ctx, workspaceID)
	if err != nil {
		return stats, fmt.Errorf("failed to list workspace repositories: %w", err)
	}
	if len(repos) == 0 {
		b.logger.Warnw("no repositories found in workspaces", "workspace_id", workspaceID)
		return stats, nil
	}
	b.logger.Infow("starting backfill", "repos", len(repos), "days", b.opts.Days)

	for i, repo := range repos {
		if err := ctx.Err(); err != nil {
			b.logger.Warnw("backfill interrupted", "processed", stats.ReposProcessed)
			break
		}
		b.logger.Infow("processing repository", "repo", repo.FullName(), "workspace", repo.Workspace, "index", i+1, "of", len(repos))
		if err := b.backfillRepository(ctx, repo, &stats); err != nil {
			b.logger.Errorw("failed to process repository", "repo", repo.FullName(), "error", err)
			stats.Errors++
			continue
		}
		if i < len(repos)-1 {
			if err := sleep(ctx, b.opts.Pause); err != nil {
				break
			}
		}
	}

	// The count uses a fresh context so an interrupted run still reports it.
	total, err := b.store.CountEvents(context.WithoutCancel(ctx))
	if err != nil {
		b.logger.Warnw("failed to count cached events", "error", err)
	} else {
		stats.TotalCached = total
	}
	stats.Duration = b.now().Sub(start)
	b.logger.Infow("backfill complete",
		"duration", stats.Duration,
		"repos_processed", stats.ReposProcessed,
		"events_fetched", stats.EventsFetched,
		"events_inserted", stats.EventsInserted,
		"errors", stats.Errors,
		"total_cached", stats.TotalCached,
	)
	return stats, nil
}

func (b *Backfiller) backfillRepository(ctx context.Context, repo domain.WorkspaceRepo, stats *BackfillStats) error {
	now := b.now()
	cutoff := now.AddDate(0, 0, -b.opts.Days)
	events, err := b.source.FetchRepoEvents(ctx, repo.Owner, repo.Name, cutoff, b.opts.MaxPages)
	if err != nil {
		return err
	}
	stats.EventsFetched += len(events)
	if len(events) == 0 {
		b.logger.Warnw("no events found", "repo", repo.FullName())
		stats.ReposProcessed++
		return nil
	}

	note := "Workspace backfill on " + now.Format(time.RFC3339)
	inserted, failed := 0, 0
	for _, ev := range events {
		payload, err := backfillPayload(ev, now)
		if err == nil {
			ev.Payload = payload
			err = b.store.UpsertEvent(ctx, ev, note)
		}
		if err != nil {
			b.logger.Errorw("failed to insert event", "event_id", ev.EventID, "error", err)
			stats.Errors++
			failed++
			continue
		}
		inserted++
	}
	stats.EventsInserted += inserted
	stats.ReposProcessed++
	b.logger.Infow("repository backfilled", "repo", repo.FullName(), "inserted", inserted, "failed", failed, "fetched", len(events))
	return nil
}

// backfillPayload merges the event's own payload over its actor, repo and
// provenance fields.
func backfillPayload(ev domain.RepoEvent, now time.Time) (json.RawMessage, error) {
	payload := map[string]any{
		"action": nilIfEmpty(ev.Action),
		"actor": map[string]any{
			"id":         ev.ActorID,
			"login":      ev.ActorLogin,
			"avatar_url": ev.ActorAvatar,
		},
		"repo": map[string]any{
			"id":   ev.RepoID,
			"name": ev.RepoOwner + "/" + ev.RepoName,
		},
		"public":          ev.Public,
		"backfill_source": BackfillSource,
		"backfill_date":   now.UTC().Format(time.RFC3339),
	}
	if len(ev.Payload) > 0 {
		var own map[string]any
		if err := json.Unmarshal(ev.Payload, &own); err != nil {
			return nil, fmt.Errorf("failed to decode event payload: %w", err)
		}
		maps.Copy(payload, own)
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event payload: %w", err)
	}
	return out, nil
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
