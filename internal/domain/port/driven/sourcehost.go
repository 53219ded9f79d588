package driven

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// Sentinel errors returned by SourceHost implementations. The orchestrator
// keys its retry and abort decisions off these, so adapters must classify
// upstream failures into exactly one of them (or leave the error unwrapped,
// which is treated as transient and retryable).
var (
	// ErrAuthExpired indicates the credential was rejected. It is fatal to the
	// current sync run and must propagate untouched so the caller can force
	// re-authentication.
	ErrAuthExpired = errors.New("source credentials expired or rejected")

	// ErrScopeGone indicates the repository or organization no longer exists
	// upstream (deleted or access revoked). Recorded as a scope failure,
	// never retried.
	ErrScopeGone = errors.New("repository or organization gone upstream")
)

// RateLimitError indicates the source host throttled the request. Distinct
// from generic transient errors so the orchestrator can back off for the
// host-reported duration instead of its default schedule.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by source host, retry after %s", e.RetryAfter)
}

// SourceHost defines the driven port for the remote source-control platform.
// Implementations paginate internally: each method walks the cursor chain in
// order and returns the full normalized result set. All methods take the
// caller's context; no credential state is mutated after construction.
type SourceHost interface {
	// ListScopes returns every organization the credential belongs to plus
	// the credential holder's personal scope (always last).
	ListScopes(ctx context.Context) ([]model.Scope, error)

	// ListRepositories enumerates the repositories of a scope. For a personal
	// scope only non-organization repositories owned by the user are returned.
	ListRepositories(ctx context.Context, scope model.Scope) ([]model.Repository, error)

	// FetchCommits walks the default branch's commit history, bounded
	// server-side by since (zero means unbounded). A repository whose default
	// branch target is not a commit-bearing reference yields an empty slice.
	FetchCommits(ctx context.Context, repo model.Repository, since time.Time) ([]model.Commit, error)

	// FetchIssues returns all issues of a repository, open and closed.
	FetchIssues(ctx context.Context, repo model.Repository) ([]model.Issue, error)

	// FetchPullRequests returns all pull requests of a repository.
	FetchPullRequests(ctx context.Context, repo model.Repository) ([]model.PullRequest, error)

	// ListScopeIssues is the REST fallback issue source: it lists issues
	// across a whole scope and reports, per issue, the owning repository name
	// derived from the issue's repository URL.
	ListScopeIssues(ctx context.Context, scope model.Scope) ([]model.ScopedIssue, error)
}
