package application_test

import (
	"context"
	"sync"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// --- Mock implementations shared across application tests ---

// mockSource is a SourceHost whose behavior is driven by function fields.
// Unset fields return empty results.
type mockSource struct {
	mu sync.Mutex

	listScopesFn      func(ctx context.Context) ([]model.Scope, error)
	listReposFn       func(ctx context.Context, scope model.Scope) ([]model.Repository, error)
	fetchCommitsFn    func(ctx context.Context, repo model.Repository, since time.Time) ([]model.Commit, error)
	fetchIssuesFn     func(ctx context.Context, repo model.Repository) ([]model.Issue, error)
	fetchPRsFn        func(ctx context.Context, repo model.Repository) ([]model.PullRequest, error)
	listScopeIssuesFn func(ctx context.Context, scope model.Scope) ([]model.ScopedIssue, error)

	commitSinceArgs    map[string][]time.Time
	scopeIssuesQueried []string
}

func (m *mockSource) ListScopes(ctx context.Context) ([]model.Scope, error) {
	if m.listScopesFn == nil {
		return nil, nil
	}
	return m.listScopesFn(ctx)
}

func (m *mockSource) ListRepositories(ctx context.Context, scope model.Scope) ([]model.Repository, error) {
	if m.listReposFn == nil {
		return nil, nil
	}
	return m.listReposFn(ctx, scope)
}

func (m *mockSource) FetchCommits(ctx context.Context, repo model.Repository, since time.Time) ([]model.Commit, error) {
	m.mu.Lock()
	if m.commitSinceArgs == nil {
		m.commitSinceArgs = make(map[string][]time.Time)
	}
	m.commitSinceArgs[repo.ID] = append(m.commitSinceArgs[repo.ID], since)
	m.mu.Unlock()

	if m.fetchCommitsFn == nil {
		return nil, nil
	}
	return m.fetchCommitsFn(ctx, repo, since)
}

func (m *mockSource) FetchIssues(ctx context.Context, repo model.Repository) ([]model.Issue, error) {
	if m.fetchIssuesFn == nil {
		return nil, nil
	}
	return m.fetchIssuesFn(ctx, repo)
}

func (m *mockSource) FetchPullRequests(ctx context.Context, repo model.Repository) ([]model.PullRequest, error) {
	if m.fetchPRsFn == nil {
		return nil, nil
	}
	return m.fetchPRsFn(ctx, repo)
}

func (m *mockSource) ListScopeIssues(ctx context.Context, scope model.Scope) ([]model.ScopedIssue, error) {
	m.mu.Lock()
	m.scopeIssuesQueried = append(m.scopeIssuesQueried, scope.Login)
	m.mu.Unlock()

	if m.listScopeIssuesFn == nil {
		return nil, nil
	}
	return m.listScopeIssuesFn(ctx, scope)
}

// mockRepoStore keeps repositories in a map keyed by external ID, mirroring
// the real store's upsert semantics (the sync cursor only advances through
// SetLastSynced).
type mockRepoStore struct {
	mu    sync.Mutex
	repos map[string]model.Repository
}

func newMockRepoStore() *mockRepoStore {
	return &mockRepoStore{repos: make(map[string]model.Repository)}
}

func (m *mockRepoStore) Upsert(_ context.Context, repo model.Repository) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.repos[repo.ID]; ok {
		repo.LastSyncedAt = existing.LastSyncedAt
	}
	m.repos[repo.ID] = repo
	return nil
}

func (m *mockRepoStore) GetByID(_ context.Context, id string) (*model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	repo, ok := m.repos[id]
	if !ok {
		return nil, nil
	}
	return &repo, nil
}

func (m *mockRepoStore) ListByOrg(_ context.Context, org string, names []string) ([]model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nameSet := make(map[string]bool, len(names))
	for _, n := range names {
		nameSet[n] = true
	}

	var out []model.Repository
	for _, r := range m.repos {
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

func (m *mockRepoStore) ListAll(_ context.Context) ([]model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Repository, 0, len(m.repos))
	for _, r := range m.repos {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRepoStore) SetLastSynced(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if repo, ok := m.repos[id]; ok {
		repo.LastSyncedAt = &at
		m.repos[id] = repo
	}
	return nil
}

// mockCommitStore records upserts keyed by commit ID.
type mockCommitStore struct {
	mu      sync.Mutex
	commits map[string]model.Commit
}

func newMockCommitStore() *mockCommitStore {
	return &mockCommitStore{commits: make(map[string]model.Commit)}
}

func (m *mockCommitStore) Upsert(_ context.Context, c model.Commit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits[c.ID] = c
	return nil
}

func (m *mockCommitStore) UpsertBatch(ctx context.Context, commits []model.Commit) error {
	for _, c := range commits {
		if err := m.Upsert(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockCommitStore) ListByRepoSince(_ context.Context, repoIDs []string, since time.Time) ([]model.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idSet := make(map[string]bool, len(repoIDs))
	for _, id := range repoIDs {
		idSet[id] = true
	}

	var out []model.Commit
	for _, c := range m.commits {
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

// mockIssueStore records upserts keyed by issue ID.
type mockIssueStore struct {
	mu     sync.Mutex
	issues map[string]model.Issue
}

func newMockIssueStore() *mockIssueStore {
	return &mockIssueStore{issues: make(map[string]model.Issue)}
}

func (m *mockIssueStore) Upsert(_ context.Context, i model.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues[i.ID] = i
	return nil
}

func (m *mockIssueStore) UpsertBatch(ctx context.Context, issues []model.Issue) error {
	for _, i := range issues {
		if err := m.Upsert(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockIssueStore) ListByRepos(_ context.Context, repoIDs []string) ([]model.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idSet := make(map[string]bool, len(repoIDs))
	for _, id := range repoIDs {
		idSet[id] = true
	}

	var out []model.Issue
	for _, i := range m.issues {
		if idSet[i.RepoID] {
			out = append(out, i)
		}
	}
	return out, nil
}

// mockPRStore records upserts keyed by pull request ID.
type mockPRStore struct {
	mu  sync.Mutex
	prs map[string]model.PullRequest
}

func newMockPRStore() *mockPRStore {
	return &mockPRStore{prs: make(map[string]model.PullRequest)}
}

func (m *mockPRStore) Upsert(_ context.Context, p model.PullRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prs[p.ID] = p
	return nil
}

func (m *mockPRStore) UpsertBatch(ctx context.Context, prs []model.PullRequest) error {
	for _, p := range prs {
		if err := m.Upsert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockPRStore) ListByRepos(_ context.Context, repoIDs []string) ([]model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idSet := make(map[string]bool, len(repoIDs))
	for _, id := range repoIDs {
		idSet[id] = true
	}

	var out []model.PullRequest
	for _, p := range m.prs {
		if idSet[p.RepoID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func strptr(s string) *string { return &s }
