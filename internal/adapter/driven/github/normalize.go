package github

import (
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// This file holds the pure node-to-entity mapping layer. Every nullable
// upstream field is resolved here, once, so downstream consumers never see a
// partially-mapped entity. Mapping functions return ok=false for nodes
// missing their stable external ID; callers skip and log those.

// mapRepository converts a go-github Repository to a domain Repository under
// the given scope login.
func mapRepository(r *gh.Repository, org string) model.Repository {
	return model.Repository{
		ID:            r.GetNodeID(),
		Org:           org,
		Name:          r.GetName(),
		DefaultBranch: r.GetDefaultBranch(),
	}
}

// mapCommitNode converts a GraphQL history node to a domain Commit. A node
// without author identity maps to a nil Author rather than failing; the
// lines-changed total is fixed here as additions minus deletions.
func mapCommitNode(n commitNode, repoID string) (model.Commit, bool) {
	if n.ID == "" {
		return model.Commit{}, false
	}

	var author *string
	if n.Author != nil && n.Author.Name != nil && *n.Author.Name != "" {
		author = n.Author.Name
	}

	return model.Commit{
		ID:           n.ID,
		RepoID:       repoID,
		Author:       author,
		CommittedAt:  n.CommittedDate,
		Additions:    n.Additions,
		Deletions:    n.Deletions,
		LinesChanged: n.Additions - n.Deletions,
	}, true
}

// mapIssue converts a go-github Issue to a domain Issue. A missing closed
// timestamp maps to a nil ClosedAt (still open).
func mapIssue(i *gh.Issue, repoID string) (model.Issue, bool) {
	if i.GetNodeID() == "" {
		return model.Issue{}, false
	}

	return model.Issue{
		ID:        i.GetNodeID(),
		RepoID:    repoID,
		State:     strings.ToUpper(i.GetState()),
		CreatedAt: i.GetCreatedAt().Time,
		ClosedAt:  optionalTimestamp(i.ClosedAt),
	}, true
}

// mapPullRequest converts a go-github PullRequest to a domain PullRequest.
// A merged PR reports state "closed" over REST; the merge timestamp
// disambiguates it.
func mapPullRequest(p *gh.PullRequest, repoID string) (model.PullRequest, bool) {
	if p.GetNodeID() == "" {
		return model.PullRequest{}, false
	}

	state := strings.ToUpper(p.GetState())
	if !p.GetMergedAt().Time.IsZero() {
		state = "MERGED"
	}

	return model.PullRequest{
		ID:        p.GetNodeID(),
		RepoID:    repoID,
		State:     state,
		CreatedAt: p.GetCreatedAt().Time,
		ClosedAt:  optionalTimestamp(p.ClosedAt),
	}, true
}

// mapScopedIssue converts a go-github Issue from a scope-wide listing. The
// owning repository name is derived from the trailing segment of the issue's
// repository URL, since the scope-wide endpoints do not carry a repository
// node ID.
func mapScopedIssue(i *gh.Issue) (model.ScopedIssue, bool) {
	if i.GetNodeID() == "" {
		return model.ScopedIssue{}, false
	}

	repoURL := i.GetRepositoryURL()
	slash := strings.LastIndex(repoURL, "/")
	if slash < 0 || slash == len(repoURL)-1 {
		return model.ScopedIssue{}, false
	}

	return model.ScopedIssue{
		Issue: model.Issue{
			ID:        i.GetNodeID(),
			State:     strings.ToUpper(i.GetState()),
			CreatedAt: i.GetCreatedAt().Time,
			ClosedAt:  optionalTimestamp(i.ClosedAt),
		},
		RepoName: repoURL[slash+1:],
	}, true
}

// optionalTimestamp converts go-github's nullable timestamp to a *time.Time.
func optionalTimestamp(ts *gh.Timestamp) *time.Time {
	if ts == nil || ts.Time.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}
