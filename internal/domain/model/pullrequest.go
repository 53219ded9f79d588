package model

import "time"

// PullRequest represents a GitHub pull request. ID is the external node ID
// and primary key.
type PullRequest struct {
	ID        string
	RepoID    string
	State     string // "OPEN", "CLOSED", or "MERGED".
	CreatedAt time.Time
	// ClosedAt is nil while the pull request is open.
	ClosedAt *time.Time
}
