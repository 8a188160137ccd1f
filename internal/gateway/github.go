// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/naka-gawa/github-insights/internal/domain"
)

// PRQueryState selects which pull requests FetchPullRequests returns.
type PRQueryState string

const (
	// PRQueryOpen returns open and draft pull requests.
	PRQueryOpen PRQueryState = "open"
	// PRQueryClosed returns closed and merged pull requests.
	PRQueryClosed PRQueryState = "closed"
)

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	FetchPullRequests(ctx context.Context, owner, repo string, state PRQueryState, since time.Time) ([]domain.PullRequest, error)
	FetchIssues(ctx context.Context, owner, repo string, since time.Time) ([]domain.Issue, error)
	FetchRepoEvents(ctx context.Context, owner, repo string, cutoff time.Time, maxPages int) ([]domain.RepoEvent, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *zap.SugaredLogger
	pagePause     time.Duration
	rateLimitPad  time.Duration
}

type pageInfo struct {
	HasNextPage bool
	EndCursor   githubv4.String
}

type actorNode struct {
	Typename  string `graphql:"__typename"`
	Login     string
	AvatarURL string `graphql:"avatarUrl"`
}

func (a actorNode) toDomain() domain.Actor {
	return domain.Actor{Login: a.Login, AvatarURL: a.AvatarURL, Type: a.Typename}
}

// authorDomain maps the author of a record together with its association.
func (a actorNode) authorDomain(assoc githubv4.CommentAuthorAssociation) domain.Actor {
	actor := a.toDomain()
	actor.Association = string(assoc)
	return actor
}

type labelConnection struct {
	Nodes []struct {
		Name string
	}
}

type commentConnection struct {
	Nodes []struct {
		Author            actorNode
		AuthorAssociation githubv4.CommentAuthorAssociation
		CreatedAt         githubv4.DateTime
	}
}

type pullRequestNode struct {
	DatabaseID        int64 `graphql:"databaseId"`
	Number            int
	Title             string
	URL               string `graphql:"url"`
	State             githubv4.PullRequestState
	IsDraft           bool
	CreatedAt         githubv4.DateTime
	UpdatedAt         githubv4.DateTime
	ClosedAt          *githubv4.DateTime
	MergedAt          *githubv4.DateTime
	MergedBy          *actorNode
	Additions         int
	Deletions         int
	Author            actorNode
	AuthorAssociation githubv4.CommentAuthorAssociation
	Labels            labelConnection `graphql:"labels(first: 20)"`
	ReviewRequests    struct {
		Nodes []struct {
			RequestedReviewer struct {
				User actorNode `graphql:"... on User"`
			}
		}
	} `graphql:"reviewRequests(first: 20)"`
	Reviews struct {
		Nodes []struct {
			Author            actorNode
			AuthorAssociation githubv4.CommentAuthorAssociation
			State             githubv4.PullRequestReviewState
			SubmittedAt       *githubv4.DateTime
		}
	} `graphql:"reviews(first: 50)"`
	Comments commentConnection `graphql:"comments(first: 50)"`
}

// pullRequestsQuery pages through a repository's pull requests, most recently updated first.
type pullRequestsQuery struct {
	Repository struct {
		PullRequests struct {
			PageInfo pageInfo
			Nodes    []pullRequestNode
		} `graphql:"pullRequests(first: 25, after: $cursor, states: $states, orderBy: {field: UPDATED_AT, direction: DESC})"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

type issueNode struct {
	Number    int
	Title     string
	State     githubv4.IssueState
	CreatedAt githubv4.DateTime
	UpdatedAt githubv4.DateTime
	ClosedAt  *githubv4.DateTime
	Author    actorNode
	Labels    labelConnection   `graphql:"labels(first: 20)"`
	Comments  commentConnection `graphql:"comments(first: 50)"`
}

type issuesQuery struct {
	Repository struct {
		Issues struct {
			PageInfo pageInfo
			Nodes    []issueNode
		} `graphql:"issues(first: 50, after: $cursor, states: $states, filterBy: $filterBy, orderBy: {field: UPDATED_AT, direction: DESC})"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, logger *zap.SugaredLogger) (Fetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger.Named("gateway"),
		pagePause:     DefaultEventPagePause,
		rateLimitPad:  DefaultRateLimitPad,
	}, nil
}

// FetchPullRequests returns the pull requests of owner/repo in the requested state.
// For closed pull requests, paging stops at the first one last updated before since.
func (g *GitHubGateway) FetchPullRequests(ctx context.Context, owner, repo string, state PRQueryState, since time.Time) ([]domain.PullRequest, error) {
	states := []githubv4.PullRequestState{githubv4.PullRequestStateOpen}
	if state == PRQueryClosed {
		states = []githubv4.PullRequestState{githubv4.PullRequestStateClosed, githubv4.PullRequestStateMerged}
	}
	variables := map[string]interface{}{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(repo),
		"states": states,
		"cursor": (*githubv4.String)(nil),
	}

	g.logger.Infow("fetching pull requests", "repo", owner+"/"+repo, "state", state)
	var prs []domain.PullRequest
	for {
		var q pullRequestsQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to execute GraphQL query for pull requests: %w", err)
		}
		for _, node := range q.Repository.PullRequests.Nodes {
			if state == PRQueryClosed && !since.IsZero() && node.UpdatedAt.Before(since) {
				g.logger.Debugw("reached since cutoff", "repo", owner+"/"+repo, "count", len(prs))
				return prs, nil
			}
			prs = append(prs, node.toDomain(owner+"/"+repo))
		}
		if !q.Repository.PullRequests.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Repository.PullRequests.PageInfo.EndCursor)
		g.logger.Debugw("fetching next page of pull requests", "repo", owner+"/"+repo)
	}
	g.logger.Infow("completed fetching pull requests", "repo", owner+"/"+repo, "count", len(prs))
	return prs, nil
}

func timePtr(dt *githubv4.DateTime) *time.Time {
	if dt == nil {
		return nil
	}
	t := dt.Time
	return &t
}

func labelNames(c labelConnection) []string {
	var out []string
	for _, l := range c.Nodes {
		out = append(out, l.Name)
	}
	return out
}

func comments(c commentConnection) []domain.Comment {
	var out []domain.Comment
	for _, n := range c.Nodes {
		out = append(out, domain.Comment{Author: n.Author.authorDomain(n.AuthorAssociation), CreatedAt: n.CreatedAt.Time})
	}
	return out
}

func (n pullRequestNode) toDomain(fullName string) domain.PullRequest {
	pr := domain.PullRequest{
		ID:         n.DatabaseID,
		Number:     n.Number,
		Title:      n.Title,
		URL:        n.URL,
		Repository: fullName,
		CreatedAt:  n.CreatedAt.Time,
		UpdatedAt:  n.UpdatedAt.Time,
		ClosedAt:   timePtr(n.ClosedAt),
		MergedAt:   timePtr(n.MergedAt),
		Additions:  n.Additions,
		Deletions:  n.Deletions,
		Author:     n.Author.authorDomain(n.AuthorAssociation),
		Labels:     labelNames(n.Labels),
		Comments:   comments(n.Comments),
	}
	switch {
	case n.State == githubv4.PullRequestStateOpen && n.IsDraft:
		pr.State = domain.PRStateDraft
	case n.State == githubv4.PullRequestStateOpen:
		pr.State = domain.PRStateOpen
	default:
		pr.State = domain.PRStateClosed
	}
	if n.MergedBy != nil && n.MergedBy.Login != "" {
		mb := n.MergedBy.toDomain()
		pr.MergedBy = &mb
	}
	for _, rr := range n.ReviewRequests.Nodes {
		// Team review requests have no login and are skipped.
		if rr.RequestedReviewer.User.Login != "" {
			pr.RequestedReviewers = append(pr.RequestedReviewers, rr.RequestedReviewer.User.toDomain())
		}
	}
	for _, r := range n.Reviews.Nodes {
		if r.SubmittedAt == nil {
			continue
		}
		pr.Reviews = append(pr.Reviews, domain.Review{
			Author:      r.Author.authorDomain(r.AuthorAssociation),
			State:       domain.ReviewState(r.State),
			SubmittedAt: r.SubmittedAt.Time,
		})
	}
	return pr
}

// FetchIssues returns every open issue plus the closed issues updated since since.
func (g *GitHubGateway) FetchIssues(ctx context.Context, owner, repo string, since time.Time) ([]domain.Issue, error) {
	g.logger.Infow("fetching issues", "repo", owner+"/"+repo, "since", since)
	open, err := g.fetchIssues(ctx, owner, repo, githubv4.IssueStateOpen, githubv4.IssueFilters{})
	if err != nil {
		return nil, err
	}
	filter := githubv4.IssueFilters{}
	if !since.IsZero() {
		filter.Since = &githubv4.DateTime{Time: since}
	}
	closed, err := g.fetchIssues(ctx, owner, repo, githubv4.IssueStateClosed, filter)
	if err != nil {
		return nil, err
	}
	g.logger.Infow("completed fetching issues", "repo", owner+"/"+repo, "open", len(open), "closed", len(closed))
	return append(open, closed...), nil
}

func (g *GitHubGateway) fetchIssues(ctx context.Context, owner, repo string, state githubv4.IssueState, filter githubv4.IssueFilters) ([]domain.Issue, error) {
	variables := map[string]interface{}{
		"owner":    githubv4.String(owner),
		"name":     githubv4.String(repo),
		"states":   []githubv4.IssueState{state},
		"filterBy": filter,
		"cursor":   (*githubv4.String)(nil),
	}
	var issues []domain.Issue
	for {
		var q issuesQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to execute GraphQL query for issues: %w", err)
		}
		for _, n := range q.Repository.Issues.Nodes {
			issues = append(issues, domain.Issue{
				Number:    n.Number,
				Title:     n.Title,
				State:     string(n.State),
				Author:    n.Author.toDomain(),
				Labels:    labelNames(n.Labels),
				CreatedAt: n.CreatedAt.Time,
				UpdatedAt: n.UpdatedAt.Time,
				ClosedAt:  timePtr(n.ClosedAt),
				Comments:  comments(n.Comments),
			})
		}
		if !q.Repository.Issues.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Repository.Issues.PageInfo.EndCursor)
		g.logger.Debugw("fetching next page of issues", "repo", owner+"/"+repo, "state", state)
	}
	return issues, nil
}
