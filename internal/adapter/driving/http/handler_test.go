package httphandler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/gitpulse/internal/adapter/driving/http"
	"github.com/ericfisherdev/gitpulse/internal/application"
	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// --- Stub stores ---

type stubRepoStore struct {
	repos []model.Repository
}

func (s *stubRepoStore) Upsert(context.Context, model.Repository) error { return nil }
func (s *stubRepoStore) GetByID(context.Context, string) (*model.Repository, error) {
	return nil, nil
}
func (s *stubRepoStore) ListByOrg(_ context.Context, org string, names []string) ([]model.Repository, error) {
	nameSet := make(map[string]bool, len(names))
	for _, n := range names {
		nameSet[n] = true
	}

	var out []model.Repository
	for _, r := range s.repos {
		if r.Org != org {
			continue
		}
		if len(names) > 0 && !nameSet[r.Name] {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
func (s *stubRepoStore) ListAll(context.Context) ([]model.Repository, error) { return s.repos, nil }
func (s *stubRepoStore) SetLastSynced(context.Context, string, time.Time) error {
	return nil
}

type stubCommitStore struct {
	commits []model.Commit
}

func (s *stubCommitStore) Upsert(context.Context, model.Commit) error       { return nil }
func (s *stubCommitStore) UpsertBatch(context.Context, []model.Commit) error { return nil }
func (s *stubCommitStore) ListByRepoSince(_ context.Context, repoIDs []string, since time.Time) ([]model.Commit, error) {
	idSet := make(map[string]bool, len(repoIDs))
	for _, id := range repoIDs {
		idSet[id] = true
	}

	var out []model.Commit
	for _, c := range s.commits {
		if !idSet[c.RepoID] {
			continue
		}
		if !since.IsZero() && !c.CommittedAt.After(since) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

type stubIssueStore struct {
	issues []model.Issue
}

func (s *stubIssueStore) Upsert(context.Context, model.Issue) error        { return nil }
func (s *stubIssueStore) UpsertBatch(context.Context, []model.Issue) error { return nil }
func (s *stubIssueStore) ListByRepos(_ context.Context, repoIDs []string) ([]model.Issue, error) {
	idSet := make(map[string]bool, len(repoIDs))
	for _, id := range repoIDs {
		idSet[id] = true
	}

	var out []model.Issue
	for _, i := range s.issues {
		if idSet[i.RepoID] {
			out = append(out, i)
		}
	}
	return out, nil
}

type stubPRStore struct {
	prs []model.PullRequest
}

func (s *stubPRStore) Upsert(context.Context, model.PullRequest) error        { return nil }
func (s *stubPRStore) UpsertBatch(context.Context, []model.PullRequest) error { return nil }
func (s *stubPRStore) ListByRepos(_ context.Context, repoIDs []string) ([]model.PullRequest, error) {
	idSet := make(map[string]bool, len(repoIDs))
	for _, id := range repoIDs {
		idSet[id] = true
	}

	var out []model.PullRequest
	for _, p := range s.prs {
		if idSet[p.RepoID] {
			out = append(out, p)
		}
	}
	return out, nil
}

// stubSource is a SourceHost whose ListScopes can be gated so tests can hold
// a sync run open.
type stubSource struct {
	mu   sync.Mutex
	gate chan struct{}
}

func (s *stubSource) ListScopes(context.Context) ([]model.Scope, error) {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return nil, nil
}

func (s *stubSource) ListRepositories(context.Context, model.Scope) ([]model.Repository, error) {
	return nil, nil
}

func (s *stubSource) FetchCommits(context.Context, model.Repository, time.Time) ([]model.Commit, error) {
	return nil, nil
}

func (s *stubSource) FetchIssues(context.Context, model.Repository) ([]model.Issue, error) {
	return nil, nil
}

func (s *stubSource) FetchPullRequests(context.Context, model.Repository) ([]model.PullRequest, error) {
	return nil, nil
}

func (s *stubSource) ListScopeIssues(context.Context, model.Scope) ([]model.ScopedIssue, error) {
	return nil, nil
}

func strptr(s string) *string { return &s }

func newTestRouter(t *testing.T, source *stubSource) (http.Handler, *application.SyncService) {
	t.Helper()

	now := time.Now().UTC()
	repoStore := &stubRepoStore{repos: []model.Repository{
		{ID: "R1", Org: "acme", Name: "api", DefaultBranch: "main"},
		{ID: "R2", Org: "acme", Name: "web", DefaultBranch: "main"},
	}}
	commitStore := &stubCommitStore{commits: []model.Commit{
		{ID: "C1", RepoID: "R1", Author: strptr("alice"), CommittedAt: now, Additions: 3, Deletions: 1, LinesChanged: 2},
	}}
	issueStore := &stubIssueStore{issues: []model.Issue{
		{ID: "I1", RepoID: "R1", State: "OPEN", CreatedAt: now},
	}}
	prStore := &stubPRStore{prs: []model.PullRequest{
		{ID: "P1", RepoID: "R2", State: "MERGED", CreatedAt: now},
	}}

	statsSvc := application.NewStatsService(repoStore, commitStore, issueStore, prStore)
	syncSvc := application.NewSyncService(source, repoStore, commitStore, issueStore, prStore, time.Hour, 1)

	h := httphandler.NewHandler(statsSvc, syncSvc, slog.Default())
	return httphandler.NewRouter(h, slog.Default()), syncSvc
}

// --- Tests ---

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, &stubSource{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["time"])
}

func TestOrgStats(t *testing.T) {
	router, _ := newTestRouter(t, &stubSource{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orgs/acme/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Org          string `json:"org"`
		Repositories []struct {
			Repository struct {
				Name string `json:"name"`
			} `json:"repository"`
			Commits      []json.RawMessage `json:"commits"`
			Issues       []json.RawMessage `json:"issues"`
			PullRequests []json.RawMessage `json:"pull_requests"`
		} `json:"repositories"`
		Contributors []model.ContributorStats `json:"contributors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "acme", body.Org)
	require.Len(t, body.Repositories, 2)
	assert.Len(t, body.Repositories[0].Commits, 1)
	assert.Len(t, body.Repositories[0].Issues, 1)
	assert.Len(t, body.Repositories[1].PullRequests, 1)

	require.Len(t, body.Contributors, 1)
	assert.Equal(t, "alice", body.Contributors[0].Author)
	assert.Equal(t, 3, body.Contributors[0].Additions)
}

func TestOrgStats_RepoFilter(t *testing.T) {
	router, _ := newTestRouter(t, &stubSource{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orgs/acme/stats?repos=web", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Repositories []struct {
			Repository struct {
				Name string `json:"name"`
			} `json:"repository"`
		} `json:"repositories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Repositories, 1)
	assert.Equal(t, "web", body.Repositories[0].Repository.Name)
}

func TestTriggerSync_ConflictWhileRunning(t *testing.T) {
	gate := make(chan struct{})
	source := &stubSource{gate: gate}
	router, syncSvc := newTestRouter(t, source)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	// The triggered run is parked inside ListScopes; a second trigger must
	// be rejected.
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil))
	assert.Equal(t, http.StatusConflict, rec2.Code)

	close(gate)

	// The run finishes in the background.
	require.Eventually(t, func() bool {
		return !syncSvc.Status().Running
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSyncStatus(t *testing.T) {
	router, _ := newTestRouter(t, &stubSource{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body httphandler.SyncStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Running)
	assert.NotNil(t, body.Failures)
}
