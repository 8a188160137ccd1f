package domain

import "time"

// Issue is a repository issue as returned by the data source.
type Issue struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	Author    Actor      `json:"author"`
	Labels    []string   `json:"labels,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	Comments  []Comment  `json:"comments,omitempty"`
}

// IsOpen reports whether the issue is still open.
func (i Issue) IsOpen() bool {
	return i.ClosedAt == nil && i.State != "closed" && i.State != "CLOSED"
}

// MetricsStatus tells the presentation layer whether a snapshot is usable.
type MetricsStatus string

const (
	StatusSuccess MetricsStatus = "success"
	StatusError   MetricsStatus = "error"
)

// StaleRatio splits open issues into stale and active ones.
type StaleRatio struct {
	Stale      int     `json:"stale"`
	Active     int     `json:"active"`
	Percentage float64 `json:"percentage"`
}

// UserCount pairs a login with a count.
type UserCount struct {
	Login string `json:"username"`
	Count int    `json:"count"`
}

// ActivityPatterns summarises who triages and who reports.
type ActivityPatterns struct {
	MostActiveTriager *UserCount  `json:"mostActiveTriager"`
	FirstResponders   []UserCount `json:"firstResponders"`
	RepeatReporters   []UserCount `json:"repeatReporters"`
}

// IssueMetrics is a point-in-time health snapshot for one (owner, repo, timeRange) query.
type IssueMetrics struct {
	Status                  MetricsStatus    `json:"status"`
	Message                 string           `json:"message,omitempty"`
	StaleVsActiveRatio      StaleRatio       `json:"staleVsActiveRatio"`
	IssueHalfLife           float64          `json:"issueHalfLife"`
	LegitimateBugPercentage float64          `json:"legitimateBugPercentage"`
	ActivityPatterns        ActivityPatterns `json:"activityPatterns"`
}

// IssueTrendData compares one metric across two consecutive windows.
type IssueTrendData struct {
	Metric   string  `json:"metric"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Change   int     `json:"change"`
	Trend    string  `json:"trend"`
	Unit     string  `json:"unit,omitempty"`
	Insight  string  `json:"insight,omitempty"`
}

// IssueTrendReport wraps the trend rows with the same status contract as IssueMetrics.
type IssueTrendReport struct {
	Status  MetricsStatus    `json:"status"`
	Message string           `json:"message,omitempty"`
	Trends  []IssueTrendData `json:"trends"`
}
