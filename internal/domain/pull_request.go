// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPullRequest is returned by Validate when a record breaks a PR invariant.
var ErrInvalidPullRequest = errors.New("invalid pull request")

// PRState is the lifecycle state of a pull request.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
	PRStateDraft  PRState = "draft"
)

// ReviewState mirrors the GitHub review states.
type ReviewState string

const (
	ReviewApproved         ReviewState = "APPROVED"
	ReviewChangesRequested ReviewState = "CHANGES_REQUESTED"
	ReviewCommented        ReviewState = "COMMENTED"
	ReviewDismissed        ReviewState = "DISMISSED"
	ReviewPending          ReviewState = "PENDING"
)

// Actor is a GitHub account. Type is "User", "Bot" or "Organization" when known.
// Association is GitHub's author association of the account on the record it
// was read from (OWNER, MEMBER, COLLABORATOR, ...), empty when not reported.
type Actor struct {
	Login       string `json:"login"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Type        string `json:"type,omitempty"`
	Association string `json:"association,omitempty"`
}

var associationRank = map[string]int{
	"NONE":                   1,
	"FIRST_TIMER":            2,
	"FIRST_TIME_CONTRIBUTOR": 3,
	"MANNEQUIN":              3,
	"CONTRIBUTOR":            4,
	"COLLABORATOR":           5,
	"MEMBER":                 6,
	"OWNER":                  7,
}

// StrongerAssociation returns whichever of a and b grants more access to the
// repository. Unknown values rank below NONE.
func StrongerAssociation(a, b string) string {
	if associationRank[strings.ToUpper(b)] > associationRank[strings.ToUpper(a)] {
		return b
	}
	return a
}

// Review is a submitted review on a pull request.
type Review struct {
	Author      Actor       `json:"author"`
	State       ReviewState `json:"state"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// Comment is a conversation comment on a pull request or an issue.
type Comment struct {
	Author    Actor     `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// PullRequest is the raw record every derivation in this module starts from.
// Records are treated as immutable once handed to the usecase layer.
type PullRequest struct {
	ID                 int64      `json:"id"`
	Number             int        `json:"number"`
	Title              string     `json:"title"`
	URL                string     `json:"url,omitempty"`
	Repository         string     `json:"repository"`
	State              PRState    `json:"state"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
	MergedAt           *time.Time `json:"merged_at,omitempty"`
	MergedBy           *Actor     `json:"merged_by,omitempty"`
	Additions          int        `json:"additions"`
	Deletions          int        `json:"deletions"`
	Author             Actor      `json:"author"`
	RequestedReviewers []Actor    `json:"requested_reviewers,omitempty"`
	Reviews            []Review   `json:"reviews,omitempty"`
	Comments           []Comment  `json:"comments,omitempty"`
	Labels             []string   `json:"labels,omitempty"`
}

// IsMerged reports whether the pull request has been merged.
func (pr PullRequest) IsMerged() bool {
	return pr.MergedAt != nil
}

// IsOpen reports whether the pull request still awaits a decision (open or draft).
func (pr PullRequest) IsOpen() bool {
	return pr.State == PRStateOpen || pr.State == PRStateDraft
}

// Validate checks the record invariants. Missing optional fields are not errors.
func (pr PullRequest) Validate() error {
	switch pr.State {
	case PRStateOpen, PRStateClosed, PRStateDraft:
	default:
		return fmt.Errorf("%w: #%d has unknown state %q", ErrInvalidPullRequest, pr.Number, pr.State)
	}
	if pr.MergedAt != nil && pr.State != PRStateClosed {
		return fmt.Errorf("%w: #%d is merged but in state %q", ErrInvalidPullRequest, pr.Number, pr.State)
	}
	return nil
}

// Field exposes the record to the generic sort and filter helpers.
func (pr PullRequest) Field(key string) any {
	switch key {
	case "id":
		return pr.ID
	case "number":
		return pr.Number
	case "title":
		return pr.Title
	case "repository":
		return pr.Repository
	case "state", "status":
		return string(pr.State)
	case "author":
		return pr.Author.Login
	case "created_at":
		return pr.CreatedAt
	case "updated_at":
		return pr.UpdatedAt
	case "merged_at":
		return pr.MergedAt
	case "closed_at":
		return pr.ClosedAt
	case "additions":
		return pr.Additions
	case "deletions":
		return pr.Deletions
	case "changes":
		return pr.Additions + pr.Deletions
	case "reviews":
		return len(pr.Reviews)
	case "comments":
		return len(pr.Comments)
	}
	return nil
}
