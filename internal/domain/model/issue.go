package model

import "time"

// Issue represents a GitHub issue. ID is the external node ID and primary key.
type Issue struct {
	ID        string
	RepoID    string
	State     string // "OPEN" or "CLOSED".
	CreatedAt time.Time
	// ClosedAt is nil while the issue is open.
	ClosedAt *time.Time
}

// ScopedIssue pairs an issue with the owning repository's name as derived
// from the issue's repository URL. Produced only by the scope-wide REST
// fallback listing, where the issue's RepoID is not yet known.
type ScopedIssue struct {
	Issue    Issue
	RepoName string
}
