package usecase

import (
	"slices"

	"github.com/naka-gawa/github-insights/internal/classifier"
	"github.com/naka-gawa/github-insights/internal/domain"
)

// UnreviewedLogin is the synthetic bucket for open PRs nobody was asked to review.
const UnreviewedLogin = "unreviewed"

// BotDetector decides whether an account is automated. *classifier.Classifier
// implements it; nil means classifier.IsBot.
type BotDetector interface {
	IsBot(actor domain.Actor) bool
}

func isBot(bots BotDetector, actor domain.Actor) bool {
	if bots == nil {
		return classifier.IsBot(actor)
	}
	return bots.IsBot(actor)
}

// DistributionOptions control both distribution builders.
type DistributionOptions struct {
	ExcludeBots bool
	ViewMode    domain.ViewMode
	// MaxVisible truncates the rows unless Expanded is set. Zero shows all.
	MaxVisible int
	Expanded   bool
	Bots       BotDetector
}

// ReviewerDistribution is the view-model behind the reviewer chart.
type ReviewerDistribution struct {
	Reviewers   []domain.ReviewerStatus `json:"reviewers"`
	TotalPRs    int                     `json:"totalPRs"`
	Unreviewed  int                     `json:"unreviewedPRs"`
	HiddenCount int                     `json:"hiddenCount"`
	ViewMode    domain.ViewMode         `json:"viewMode"`
}

// AuthorDistribution is the view-model behind the author status chart.
type AuthorDistribution struct {
	Authors     []domain.AuthorStatus `json:"authors"`
	TotalPRs    int                   `json:"totalPRs"`
	BlockedPRs  int                   `json:"blockedPRs"`
	ApprovedPRs int                   `json:"approvedPRs"`
	PendingPRs  int                   `json:"pendingPRs"`
	HiddenCount int                   `json:"hiddenCount"`
	ViewMode    domain.ViewMode       `json:"viewMode"`
}

type reviewStatus int

const (
	statusPending reviewStatus = iota
	statusApproved
	statusBlocked
)

type prReviewer struct {
	actor  domain.Actor
	status reviewStatus
}

// reviewersOf returns the reviewer set of pr: requested reviewers first, then
// everyone who submitted a review. A submitted review overrides the requested
// state, and a later COMMENTED review does not undo an approval or a block.
func reviewersOf(pr domain.PullRequest) []prReviewer {
	var out []prReviewer
	index := make(map[string]int)
	upsert := func(a domain.Actor) *prReviewer {
		if i, ok := index[a.Login]; ok {
			return &out[i]
		}
		index[a.Login] = len(out)
		out = append(out, prReviewer{actor: a, status: statusPending})
		return &out[len(out)-1]
	}

	for _, a := range pr.RequestedReviewers {
		if a.Login == "" {
			continue
		}
		upsert(a)
	}

	reviews := slices.Clone(pr.Reviews)
	slices.SortStableFunc(reviews, func(a, b domain.Review) int {
		return a.SubmittedAt.Compare(b.SubmittedAt)
	})
	for _, rv := range reviews {
		if rv.Author.Login == "" || rv.Author.Login == pr.Author.Login {
			continue
		}
		r := upsert(rv.Author)
		if r.actor.AvatarURL == "" {
			r.actor.AvatarURL = rv.Author.AvatarURL
		}
		switch rv.State {
		case domain.ReviewApproved:
			r.status = statusApproved
		case domain.ReviewChangesRequested:
			r.status = statusBlocked
		case domain.ReviewDismissed:
			r.status = statusPending
		}
	}
	return out
}

// prStatus collapses the reviewer states of one PR with precedence
// blocked > approved > pending.
func prStatus(reviewers []prReviewer) reviewStatus {
	status := statusPending
	for _, r := range reviewers {
		if r.status == statusBlocked {
			return statusBlocked
		}
		if r.status == statusApproved {
			status = statusApproved
		}
	}
	return status
}

// tally accumulates per-login counters and remembers first-seen order.
type tally struct {
	order []string
	rows  map[string]*domain.StatusCounts
}

func newTally() *tally {
	return &tally{rows: make(map[string]*domain.StatusCounts)}
}

func (t *tally) row(actor domain.Actor, bot bool) *domain.StatusCounts {
	if r, ok := t.rows[actor.Login]; ok {
		return r
	}
	r := &domain.StatusCounts{Login: actor.Login, AvatarURL: actor.AvatarURL, IsBot: bot}
	t.rows[actor.Login] = r
	t.order = append(t.order, actor.Login)
	return r
}

func (t *tally) add(r *domain.StatusCounts, s reviewStatus) {
	r.TotalPRs++
	switch s {
	case statusApproved:
		r.ApprovedPRs++
	case statusBlocked:
		r.BlockedPRs++
	default:
		r.PendingPRs++
	}
}

// ranked returns the rows ordered by the mode's count, descending, ties in
// first-seen order, with percentages of the mode's grand total. Rows with a
// zero count are dropped outside the total view.
func (t *tally) ranked(mode domain.ViewMode) []domain.StatusCounts {
	rows := make([]domain.StatusCounts, 0, len(t.order))
	sum := 0
	for _, login := range t.order {
		r := *t.rows[login]
		if mode != domain.ViewTotal && r.Count(mode) == 0 {
			continue
		}
		sum += r.Count(mode)
		rows = append(rows, r)
	}
	for i := range rows {
		if sum > 0 {
			rows[i].Percentage = float64(rows[i].Count(mode)) / float64(sum) * 100
		}
	}
	slices.SortStableFunc(rows, func(a, b domain.StatusCounts) int {
		return b.Count(mode) - a.Count(mode)
	})
	return rows
}

func truncate(rows []domain.StatusCounts, opts DistributionOptions) ([]domain.StatusCounts, int) {
	if opts.Expanded || opts.MaxVisible <= 0 || len(rows) <= opts.MaxVisible {
		return rows, 0
	}
	return rows[:opts.MaxVisible], len(rows) - opts.MaxVisible
}

func viewModeOf(opts DistributionOptions) domain.ViewMode {
	if opts.ViewMode == "" {
		return domain.ViewTotal
	}
	return opts.ViewMode
}

// BuildReviewerDistribution counts, per reviewer, the open and draft PRs they
// review, split by approval state. A reviewer counts once per PR, and can
// appear on any number of PRs.
//
// PRs with no reviewer at all land in the UnreviewedLogin bucket, which is only
// reported when bots are not excluded.
func BuildReviewerDistribution(prs []domain.PullRequest, opts DistributionOptions) ReviewerDistribution {
	mode := viewModeOf(opts)
	t := newTally()
	dist := ReviewerDistribution{ViewMode: mode}

	for _, pr := range prs {
		if !pr.IsOpen() {
			continue
		}
		if opts.ExcludeBots && isBot(opts.Bots, pr.Author) {
			continue
		}
		dist.TotalPRs++

		reviewers := reviewersOf(pr)
		if len(reviewers) == 0 {
			dist.Unreviewed++
			if !opts.ExcludeBots {
				t.add(t.row(domain.Actor{Login: UnreviewedLogin}, false), statusPending)
			}
			continue
		}
		for _, r := range reviewers {
			bot := isBot(opts.Bots, r.actor)
			if opts.ExcludeBots && bot {
				continue
			}
			t.add(t.row(r.actor, bot), r.status)
		}
	}

	rows, hidden := truncate(t.ranked(mode), opts)
	dist.HiddenCount = hidden
	dist.Reviewers = make([]domain.ReviewerStatus, 0, len(rows))
	for _, r := range rows {
		dist.Reviewers = append(dist.Reviewers, domain.ReviewerStatus{StatusCounts: r})
	}
	return dist
}

// BuildAuthorStatus puts every open and draft PR into exactly one bucket of
// its author: blocked if any reviewer requested changes, approved if any
// reviewer approved, pending otherwise.
func BuildAuthorStatus(prs []domain.PullRequest, opts DistributionOptions) AuthorDistribution {
	mode := viewModeOf(opts)
	t := newTally()
	dist := AuthorDistribution{ViewMode: mode}

	for _, pr := range prs {
		if !pr.IsOpen() || pr.Author.Login == "" {
			continue
		}
		bot := isBot(opts.Bots, pr.Author)
		if opts.ExcludeBots && bot {
			continue
		}
		status := prStatus(reviewersOf(pr))
		t.add(t.row(pr.Author, bot), status)

		dist.TotalPRs++
		switch status {
		case statusBlocked:
			dist.BlockedPRs++
		case statusApproved:
			dist.ApprovedPRs++
		default:
			dist.PendingPRs++
		}
	}

	rows, hidden := truncate(t.ranked(mode), opts)
	dist.HiddenCount = hidden
	dist.Authors = make([]domain.AuthorStatus, 0, len(rows))
	for _, r := range rows {
		dist.Authors = append(dist.Authors, domain.AuthorStatus{StatusCounts: r})
	}
	return dist
}
