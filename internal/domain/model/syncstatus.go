package model

import "time"

// ScopeFailure records a repository (or whole scope) that failed during a
// sync run. Failures are collected, never raised past the run.
type ScopeFailure struct {
	Scope  string `json:"scope"`
	Repo   string `json:"repo,omitempty"`
	Reason string `json:"reason"`
}

// SyncStatus is a point-in-time snapshot of a sync run, suitable for a
// polling caller. Progress is the fraction of repository tasks completed,
// in [0, 1].
type SyncStatus struct {
	Running    bool           `json:"running"`
	Progress   float64        `json:"progress"`
	Repos      int            `json:"repos"`
	Commits    int            `json:"commits"`
	Issues     int            `json:"issues"`
	Pulls      int            `json:"pull_requests"`
	Failures   []ScopeFailure `json:"failures"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}
