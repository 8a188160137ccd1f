package domain

import (
	"encoding/json"
	"time"
)

// RepoEvent is a raw GitHub repository event kept in the events cache.
type RepoEvent struct {
	EventID     string          `json:"event_id"`
	Type        string          `json:"event_type"`
	ActorID     int64           `json:"actor_id"`
	ActorLogin  string          `json:"actor_login"`
	ActorAvatar string          `json:"actor_avatar,omitempty"`
	RepoID      int64           `json:"repo_id"`
	RepoOwner   string          `json:"repository_owner"`
	RepoName    string          `json:"repository_name"`
	Action      string          `json:"action,omitempty"`
	Public      bool            `json:"public"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// WorkspaceRepo is a repository tracked by a workspace.
type WorkspaceRepo struct {
	Owner     string `json:"owner"`
	Name      string `json:"name"`
	Workspace string `json:"workspace"`
}

// FullName returns "owner/name".
func (r WorkspaceRepo) FullName() string {
	return r.Owner + "/" + r.Name
}
