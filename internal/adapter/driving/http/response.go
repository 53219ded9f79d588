package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/application"
	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// RepoResponse is the JSON representation of a synced repository.
type RepoResponse struct {
	ID            string `json:"id"`
	Org           string `json:"org"`
	Name          string `json:"name"`
	DefaultBranch string `json:"default_branch"`
	LastSyncedAt  string `json:"last_synced_at,omitempty"`
}

// CommitResponse is the JSON representation of a commit. Author is null for
// commits whose author identity is unknown upstream.
type CommitResponse struct {
	ID           string  `json:"id"`
	Author       *string `json:"author"`
	CommittedAt  string  `json:"committed_at"`
	Additions    int     `json:"additions"`
	Deletions    int     `json:"deletions"`
	LinesChanged int     `json:"lines_changed"`
}

// IssueResponse is the JSON representation of an issue.
type IssueResponse struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
	ClosedAt  string `json:"closed_at,omitempty"`
}

// PRResponse is the JSON representation of a pull request.
type PRResponse struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
	ClosedAt  string `json:"closed_at,omitempty"`
}

// RepoActivityResponse is one repository with its nested synced entities.
type RepoActivityResponse struct {
	Repository   RepoResponse    `json:"repository"`
	Commits      []CommitResponse `json:"commits"`
	Issues       []IssueResponse  `json:"issues"`
	PullRequests []PRResponse     `json:"pull_requests"`
}

// OrgStatsResponse is the full organization stats payload: repositories with
// nested entities plus the contributor rollup across them.
type OrgStatsResponse struct {
	Org          string                   `json:"org"`
	Window       string                   `json:"window,omitempty"`
	Repositories []RepoActivityResponse   `json:"repositories"`
	Contributors []model.ContributorStats `json:"contributors"`
}

// SyncStatusResponse is the JSON representation of a sync run's status.
type SyncStatusResponse struct {
	Running      bool                  `json:"running"`
	Progress     float64               `json:"progress"`
	Repos        int                   `json:"repos"`
	Commits      int                   `json:"commits"`
	Issues       int                   `json:"issues"`
	PullRequests int                   `json:"pull_requests"`
	Failures     []model.ScopeFailure  `json:"failures"`
	StartedAt    string                `json:"started_at,omitempty"`
	FinishedAt   string                `json:"finished_at,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toRepoResponse converts a domain Repository to its JSON representation.
func toRepoResponse(r model.Repository) RepoResponse {
	return RepoResponse{
		ID:            r.ID,
		Org:           r.Org,
		Name:          r.Name,
		DefaultBranch: r.DefaultBranch,
		LastSyncedAt:  optionalRFC3339(r.LastSyncedAt),
	}
}

// toCommitResponse converts a domain Commit to its JSON representation.
func toCommitResponse(c model.Commit) CommitResponse {
	return CommitResponse{
		ID:           c.ID,
		Author:       c.Author,
		CommittedAt:  c.CommittedAt.UTC().Format(time.RFC3339),
		Additions:    c.Additions,
		Deletions:    c.Deletions,
		LinesChanged: c.LinesChanged,
	}
}

// toIssueResponse converts a domain Issue to its JSON representation.
func toIssueResponse(i model.Issue) IssueResponse {
	return IssueResponse{
		ID:        i.ID,
		State:     i.State,
		CreatedAt: i.CreatedAt.UTC().Format(time.RFC3339),
		ClosedAt:  optionalRFC3339(i.ClosedAt),
	}
}

// toPRResponse converts a domain PullRequest to its JSON representation.
func toPRResponse(p model.PullRequest) PRResponse {
	return PRResponse{
		ID:        p.ID,
		State:     p.State,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		ClosedAt:  optionalRFC3339(p.ClosedAt),
	}
}

// toOrgStatsResponse converts a stats result to its JSON representation.
func toOrgStatsResponse(org, window string, result *application.OrgStatsResult) OrgStatsResponse {
	activities := make([]RepoActivityResponse, 0, len(result.Repositories))
	for _, a := range result.Repositories {
		commits := make([]CommitResponse, 0, len(a.Commits))
		for _, c := range a.Commits {
			commits = append(commits, toCommitResponse(c))
		}
		issues := make([]IssueResponse, 0, len(a.Issues))
		for _, i := range a.Issues {
			issues = append(issues, toIssueResponse(i))
		}
		prs := make([]PRResponse, 0, len(a.PullRequests))
		for _, p := range a.PullRequests {
			prs = append(prs, toPRResponse(p))
		}

		activities = append(activities, RepoActivityResponse{
			Repository:   toRepoResponse(a.Repository),
			Commits:      commits,
			Issues:       issues,
			PullRequests: prs,
		})
	}

	contributors := result.Contributors
	if contributors == nil {
		contributors = []model.ContributorStats{}
	}

	return OrgStatsResponse{
		Org:          org,
		Window:       window,
		Repositories: activities,
		Contributors: contributors,
	}
}

// toSyncStatusResponse converts a sync status snapshot to its JSON representation.
func toSyncStatusResponse(s model.SyncStatus) SyncStatusResponse {
	failures := s.Failures
	if failures == nil {
		failures = []model.ScopeFailure{}
	}

	return SyncStatusResponse{
		Running:      s.Running,
		Progress:     s.Progress,
		Repos:        s.Repos,
		Commits:      s.Commits,
		Issues:       s.Issues,
		PullRequests: s.Pulls,
		Failures:     failures,
		StartedAt:    optionalRFC3339(s.StartedAt),
		FinishedAt:   optionalRFC3339(s.FinishedAt),
	}
}

func optionalRFC3339(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
