package model

import "time"

// Repository represents a GitHub repository discovered during a sync pass.
// ID is the stable external node ID assigned by GitHub and serves as the
// primary key; rows are upserted on every pass and never deleted.
type Repository struct {
	ID            string
	Org           string // Organization login, or the personal owner's login.
	Name          string
	DefaultBranch string
	// LastSyncedAt is the persisted incremental cursor: commit history is
	// fetched since this timestamp on the next pass. Nil before the first
	// successful sync.
	LastSyncedAt *time.Time
	AddedAt      time.Time
}

// FullName returns the "org/name" form used by the GitHub REST API.
func (r Repository) FullName() string {
	return r.Org + "/" + r.Name
}
