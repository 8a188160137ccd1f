package domain

import "time"

// EventType is the kind of an ActivityEvent.
type EventType string

const (
	EventOpened    EventType = "opened"
	EventClosed    EventType = "closed"
	EventMerged    EventType = "merged"
	EventReviewed  EventType = "reviewed"
	EventCommented EventType = "commented"
)

// EventTypes lists every activity type in display order.
var EventTypes = []EventType{EventOpened, EventClosed, EventMerged, EventReviewed, EventCommented}

// PRRef is the slice of a pull request an activity event carries around.
type PRRef struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url,omitempty"`
}

// ActivityEvent is derived from pull requests on every aggregation pass and never stored.
type ActivityEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Actor       Actor     `json:"actor"`
	PullRequest PRRef     `json:"pullRequest"`
	Repository  string    `json:"repository"`
	Timestamp   time.Time `json:"timestamp"`
}

// Field exposes the event to the generic sort and filter helpers.
func (e ActivityEvent) Field(key string) any {
	switch key {
	case "id":
		return e.ID
	case "type":
		return string(e.Type)
	case "actor":
		return e.Actor.Login
	case "title":
		return e.PullRequest.Title
	case "repository":
		return e.Repository
	case "timestamp", "created_at":
		return e.Timestamp
	}
	return nil
}
