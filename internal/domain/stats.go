package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidViewMode is returned by ParseViewMode for unknown modes.
var ErrInvalidViewMode = errors.New("invalid view mode")

// ContributorStats holds the activity counts for a single contributor of a repository.
// Association is the strongest author association seen on the contributor's activity.
type ContributorStats struct {
	Login       string `json:"login"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Association string `json:"association,omitempty"`
	OpenedPRs   int    `json:"opened_prs"`
	MergedPRs   int    `json:"merged_prs"`
	ClosedPRs   int    `json:"closed_prs"`
	Reviews     int    `json:"reviews"`
	Comments    int    `json:"comments"`
	Total       int    `json:"total"`
}

// Field exposes the stats to the generic sort helpers.
func (c ContributorStats) Field(key string) any {
	switch key {
	case "login":
		return c.Login
	case "association":
		return c.Association
	case "opened":
		return c.OpenedPRs
	case "merged":
		return c.MergedPRs
	case "closed":
		return c.ClosedPRs
	case "reviews":
		return c.Reviews
	case "comments":
		return c.Comments
	case "total":
		return c.Total
	}
	return nil
}

// ViewMode selects which counter a distribution is ranked by.
type ViewMode string

const (
	ViewTotal    ViewMode = "total"
	ViewApproved ViewMode = "approved"
	ViewPending  ViewMode = "pending"
	ViewBlocked  ViewMode = "blocked"
)

// ParseViewMode maps user input to a ViewMode. An empty string means ViewTotal.
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ViewTotal, nil
	case ViewTotal, ViewApproved, ViewPending, ViewBlocked:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidViewMode, s)
}

// StatusCounts are the per-user buckets shared by reviewer and author charts.
type StatusCounts struct {
	Login       string  `json:"username"`
	AvatarURL   string  `json:"avatar_url,omitempty"`
	IsBot       bool    `json:"isBot"`
	TotalPRs    int     `json:"totalPRs"`
	ApprovedPRs int     `json:"approvedPRs"`
	PendingPRs  int     `json:"pendingPRs"`
	BlockedPRs  int     `json:"blockedPRs"`
	Percentage  float64 `json:"percentage"`
}

// Count returns the counter selected by mode.
func (s StatusCounts) Count(mode ViewMode) int {
	switch mode {
	case ViewApproved:
		return s.ApprovedPRs
	case ViewPending:
		return s.PendingPRs
	case ViewBlocked:
		return s.BlockedPRs
	}
	return s.TotalPRs
}

// ReviewerStatus is one row of the reviewer distribution.
type ReviewerStatus struct {
	StatusCounts
}

// AuthorStatus is one row of the author status distribution.
type AuthorStatus struct {
	StatusCounts
}
