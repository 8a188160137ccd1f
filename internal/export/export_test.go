package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/github-insights/internal/domain"
)

func TestLimiter_Check(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(2, time.Minute, func() time.Time { return now })

	r := l.Check("alice")
	assert.Equal(t, Result{Allowed: true, Remaining: 1}, r)
	r = l.Check("alice")
	assert.Equal(t, Result{Allowed: true, Remaining: 0}, r)

	r = l.Check("alice")
	assert.False(t, r.Allowed)
	assert.Equal(t, 0, r.Remaining)
	assert.Contains(t, r.Reason, "export limit of 2")
	assert.Equal(t, time.Minute, r.RetryAfter)

	// Keys are independent.
	assert.True(t, l.Check("bob").Allowed)

	// A new window restores the budget.
	now = now.Add(time.Minute)
	r = l.Check("alice")
	assert.Equal(t, Result{Allowed: true, Remaining: 1}, r)
}

func TestLimiter_DropsExpiredWindows(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(1, time.Minute, func() time.Time { return now })

	for _, key := range []string{"alice", "bob", "carol"} {
		require.True(t, l.Check(key).Allowed)
	}
	assert.Equal(t, 3, l.Len())

	now = now.Add(30 * time.Second)
	assert.False(t, l.Check("alice").Allowed)
	assert.Equal(t, 3, l.Len(), "open windows are kept")

	now = now.Add(time.Minute)
	assert.True(t, l.Check("dave").Allowed)
	assert.Equal(t, 1, l.Len(), "only the new key remains once the others expire")
	assert.True(t, l.Check("alice").Allowed, "an evicted key starts with a fresh budget")
}

func TestWriteStatusCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []domain.StatusCounts{
		{Login: "alice", TotalPRs: 3, ApprovedPRs: 2, PendingPRs: 1, Percentage: 75},
		{Login: "bob, jr", TotalPRs: 1, BlockedPRs: 1, Percentage: 25},
	}
	require.NoError(t, WriteStatusCSV(&buf, rows))
	want := "username,total_prs,approved_prs,pending_prs,blocked_prs,percentage\n" +
		"alice,3,2,1,0,75.0\n" +
		"\"bob, jr\",1,0,0,1,25.0\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteEventsCSV(t *testing.T) {
	var buf bytes.Buffer
	events := []domain.ActivityEvent{{
		Type:        domain.EventMerged,
		Actor:       domain.Actor{Login: "carol"},
		Repository:  "acme/nexus",
		PullRequest: domain.PRRef{Number: 303, Title: "Implement async connection pool"},
		Timestamp:   time.Date(2025, 2, 15, 10, 0, 0, 0, time.UTC),
	}}
	require.NoError(t, WriteEventsCSV(&buf, events))
	assert.Equal(t, "timestamp,type,actor,repository,number,title\n"+
		"2025-02-15T10:00:00Z,merged,carol,acme/nexus,303,Implement async connection pool\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())

	assert.ErrorContains(t, WriteJSON(&buf, make(chan int)), "failed to marshal")
}
