package model

import "time"

// Commit represents a single commit on a repository's default branch.
// ID is the external node ID and primary key; re-syncing the same commit
// overwrites the row rather than duplicating it.
type Commit struct {
	ID     string
	RepoID string
	// Author is the display name from the commit's author identity. History
	// nodes may omit author identity entirely, in which case Author is nil;
	// such commits are stored but excluded from contributor aggregation.
	Author      *string
	CommittedAt time.Time
	Additions   int
	Deletions   int
	// LinesChanged is always computed as Additions - Deletions at
	// normalization time and persisted, so read paths never recompute it.
	LinesChanged int
}
