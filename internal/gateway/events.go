package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"

	"github.com/naka-gawa/github-insights/internal/domain"
)

// backfillEventTypes are the event types worth caching.
var backfillEventTypes = map[string]bool{
	"WatchEvent":       true,
	"ForkEvent":        true,
	"PullRequestEvent": true,
	"IssuesEvent":      true,
	"StarEvent":        true,
}

const (
	// DefaultEventPagePause is the pause between two event pages.
	DefaultEventPagePause = 500 * time.Millisecond
	// DefaultRateLimitPad is added to the primary rate limit reset time before retrying.
	DefaultRateLimitPad = 60 * time.Second
	// maxRateLimitWait is the longest primary rate limit wait; longer ones end the listing.
	maxRateLimitWait = time.Hour
)

// FetchRepoEvents lists the public events of owner/repo newer than cutoff,
// newest first, reading at most maxPages pages of 100. A missing repository
// yields no events rather than an error. Only backfillEventTypes are kept.
//
// When the primary rate limit is exhausted the page is retried after the
// reset time, unless that is more than an hour away. Any other API error ends
// the listing and the events read so far are returned.
func (g *GitHubGateway) FetchRepoEvents(ctx context.Context, owner, repo string, cutoff time.Time, maxPages int) ([]domain.RepoEvent, error) {
	g.logger.Infow("fetching repository events", "repo", owner+"/"+repo, "cutoff", cutoff)
	opts := &github.ListOptions{PerPage: 100, Page: 1}
	var out []domain.RepoEvent
	for page := 1; page <= maxPages; {
		events, resp, err := g.restClient.Activity.ListRepositoryEvents(ctx, owner, repo, opts)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				g.logger.Warnw("repository not found", "repo", owner+"/"+repo)
				return nil, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			var rle *github.RateLimitError
			if errors.As(err, &rle) && !rle.Rate.Reset.Time.IsZero() {
				wait := time.Until(rle.Rate.Reset.Time) + g.rateLimitPad
				if wait < maxRateLimitWait {
					g.logger.Warnw("rate limited, waiting for reset", "repo", owner+"/"+repo, "page", page, "wait", wait)
					if err := sleep(ctx, wait); err != nil {
						return out, err
					}
					continue
				}
				g.logger.Warnw("rate limit resets too late, stopping", "repo", owner+"/"+repo, "reset", rle.Rate.Reset.Time)
				return out, nil
			}
			g.logger.Warnw("failed to list repository events", "repo", owner+"/"+repo, "page", page, "error", err)
			return out, nil
		}
		for _, e := range events {
			if e.GetCreatedAt().Time.Before(cutoff) {
				// Events come newest first, everything after this is older.
				g.logger.Debugw("reached cutoff date", "repo", owner+"/"+repo, "page", page)
				return out, nil
			}
			if !backfillEventTypes[e.GetType()] {
				continue
			}
			out = append(out, toRepoEvent(e, owner, repo))
		}
		if resp.NextPage == 0 || page == maxPages {
			break
		}
		opts.Page = resp.NextPage
		page++
		if err := sleep(ctx, g.pagePause); err != nil {
			return out, err
		}
	}
	g.logger.Infow("completed fetching repository events", "repo", owner+"/"+repo, "count", len(out))
	return out, nil
}

func toRepoEvent(e *github.Event, owner, repo string) domain.RepoEvent {
	ev := domain.RepoEvent{
		EventID:     e.GetID(),
		Type:        e.GetType(),
		ActorID:     e.GetActor().GetID(),
		ActorLogin:  e.GetActor().GetLogin(),
		ActorAvatar: e.GetActor().GetAvatarURL(),
		RepoID:      e.GetRepo().GetID(),
		RepoOwner:   owner,
		RepoName:    repo,
		Public:      e.GetPublic(),
		CreatedAt:   e.GetCreatedAt().Time,
	}
	if full := e.GetRepo().GetName(); full != "" {
		if o, n, ok := strings.Cut(full, "/"); ok {
			ev.RepoOwner, ev.RepoName = o, n
		}
	}
	if e.RawPayload != nil {
		ev.Payload = append(json.RawMessage(nil), *e.RawPayload...)
		var p struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(ev.Payload, &p); err == nil {
			ev.Action = p.Action
		}
	}
	return ev
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
