package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

const (
	// maxFetchAttempts bounds retries of a single fetch before the owning
	// repository is recorded as failed.
	maxFetchAttempts = 3

	// retryBaseDelay is the first backoff step for transient fetch failures;
	// it doubles per attempt. Rate-limit responses use the host-reported
	// delay instead.
	retryBaseDelay = 2 * time.Second
)

// ErrSyncAlreadyRunning is returned when a sync is triggered while a run is
// in flight. Concurrent runs would converge to the same rows anyway (every
// write is an idempotent upsert), so this guard only avoids redundant API
// usage.
var ErrSyncAlreadyRunning = errors.New("a sync run is already in progress")

// repoTask is one unit of sync work: a repository under its scope.
type repoTask struct {
	scope model.Scope
	repo  model.Repository
}

// SyncService orchestrates a full refresh of commits, issues, and pull
// requests across every organization the credential can see plus the
// personal scope. Repository tasks fan out with bounded concurrency; a
// failure in one repository never aborts its siblings.
type SyncService struct {
	source      driven.SourceHost
	repoStore   driven.RepoStore
	commitStore driven.CommitStore
	issueStore  driven.IssueStore
	prStore     driven.PRStore
	interval    time.Duration
	concurrency int

	mu         sync.Mutex
	baseCtx    context.Context
	running    bool
	startedAt  *time.Time
	finishedAt *time.Time
	totalTasks int
	doneTasks  int
	repos      int
	commits    int
	issues     int
	pulls      int
	failures   []model.ScopeFailure
}

// NewSyncService creates a SyncService with all required dependencies.
// concurrency bounds how many repositories sync in parallel; values below 1
// are treated as 1.
func NewSyncService(
	source driven.SourceHost,
	repoStore driven.RepoStore,
	commitStore driven.CommitStore,
	issueStore driven.IssueStore,
	prStore driven.PRStore,
	interval time.Duration,
	concurrency int,
) *SyncService {
	if concurrency < 1 {
		concurrency = 1
	}

	return &SyncService{
		source:      source,
		repoStore:   repoStore,
		commitStore: commitStore,
		issueStore:  issueStore,
		prStore:     prStore,
		interval:    interval,
		concurrency: concurrency,
	}
}

// Start begins the periodic sync loop: an immediate run, then one per
// interval. Start blocks until the context is canceled. Cancellation stops
// scheduling of new repository tasks; in-flight tasks complete and persist.
func (s *SyncService) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	if err := s.SyncOnce(ctx); err != nil {
		slog.Error("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync service stopped")
			return
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil && !errors.Is(err, ErrSyncAlreadyRunning) {
				slog.Error("sync cycle failed", "error", err)
			}
		}
	}
}

// TriggerSync starts a run in the background and returns immediately.
// Returns ErrSyncAlreadyRunning if a run is in flight. The run is bound to
// the service's lifecycle context, not the trigger's, so it survives the
// triggering request.
func (s *SyncService) TriggerSync() error {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	if !s.begin() {
		return ErrSyncAlreadyRunning
	}

	go func() {
		if err := s.run(ctx); err != nil {
			slog.Error("triggered sync failed", "error", err)
		}
	}()

	return nil
}

// SyncOnce performs one complete synchronous sync run. Returns
// ErrSyncAlreadyRunning if a run is in flight, and driven.ErrAuthExpired if
// the credential was rejected mid-run (the run stops; everything already
// upserted stays).
func (s *SyncService) SyncOnce(ctx context.Context) error {
	if !s.begin() {
		return ErrSyncAlreadyRunning
	}
	return s.run(ctx)
}

// Status returns a snapshot of the current (or most recent) sync run.
func (s *SyncService) Status() model.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	progress := 0.0
	switch {
	case s.totalTasks > 0:
		progress = float64(s.doneTasks) / float64(s.totalTasks)
	case s.finishedAt != nil:
		progress = 1.0
	}

	failures := make([]model.ScopeFailure, len(s.failures))
	copy(failures, s.failures)

	return model.SyncStatus{
		Running:    s.running,
		Progress:   progress,
		Repos:      s.repos,
		Commits:    s.commits,
		Issues:     s.issues,
		Pulls:      s.pulls,
		Failures:   failures,
		StartedAt:  s.startedAt,
		FinishedAt: s.finishedAt,
	}
}

// begin atomically transitions to running and resets the run's counters.
// Returns false if a run is already in flight.
func (s *SyncService) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}

	now := time.Now().UTC()
	s.running = true
	s.startedAt = &now
	s.finishedAt = nil
	s.totalTasks = 0
	s.doneTasks = 0
	s.repos = 0
	s.commits = 0
	s.issues = 0
	s.pulls = 0
	s.failures = nil

	return true
}

func (s *SyncService) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.running = false
	s.finishedAt = &now
}

// run executes one sync pass. Only credential rejection propagates; every
// other failure is recorded against its scope and the pass continues.
func (s *SyncService) run(ctx context.Context) error {
	defer s.finish()
	start := time.Now()

	scopes, err := s.source.ListScopes(ctx)
	if err != nil {
		s.recordFailure("", "", err)
		return fmt.Errorf("enumerate scopes: %w", err)
	}

	var tasks []repoTask
	for _, scope := range scopes {
		repos, err := s.listRepositories(ctx, scope)
		if err != nil {
			if errors.Is(err, driven.ErrAuthExpired) {
				s.recordFailure(scope.Login, "", err)
				return err
			}
			s.recordFailure(scope.Login, "", err)
			continue
		}
		for _, repo := range repos {
			tasks = append(tasks, repoTask{scope: scope, repo: repo})
		}
	}

	s.mu.Lock()
	s.totalTasks = len(tasks)
	s.mu.Unlock()

	// Scopes whose repositories could not deliver issues; backfilled below
	// through the scope-wide REST listing.
	fallbackScopes := make(map[string]model.Scope)
	var fallbackMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			// Cancellation stops scheduling; tasks already started run to
			// completion inside syncRepo.
			if gctx.Err() != nil {
				s.taskDone()
				return nil
			}

			issueFallback, err := s.syncRepo(gctx, task.scope, task.repo)
			s.taskDone()

			if issueFallback {
				fallbackMu.Lock()
				fallbackScopes[task.scope.Login] = task.scope
				fallbackMu.Unlock()
			}

			if err != nil {
				if errors.Is(err, driven.ErrAuthExpired) {
					s.recordFailure(task.scope.Login, task.repo.FullName(), err)
					return err // Cancels the group: re-auth is required.
				}
				s.recordFailure(task.scope.Login, task.repo.FullName(), err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, scope := range fallbackScopes {
		s.backfillScopeIssues(ctx, scope)
	}

	status := s.Status()
	slog.Info("sync run complete",
		"scopes", len(scopes),
		"repos", status.Repos,
		"commits", status.Commits,
		"issues", status.Issues,
		"pull_requests", status.Pulls,
		"failures", len(status.Failures),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

func (s *SyncService) listRepositories(ctx context.Context, scope model.Scope) ([]model.Repository, error) {
	var repos []model.Repository
	err := s.withRetry(ctx, "repositories/"+scope.Login, func() error {
		var ferr error
		repos, ferr = s.source.ListRepositories(ctx, scope)
		return ferr
	})
	return repos, err
}

// syncRepo synchronizes one repository: upsert the repo row, walk commit
// history since the persisted cursor, re-scan issues and pull requests in
// full, then advance the cursor. The returned bool asks the caller to
// backfill this repository's scope through the issue fallback listing.
func (s *SyncService) syncRepo(ctx context.Context, scope model.Scope, repo model.Repository) (bool, error) {
	logger := slog.With("scope", scope.Login, "repo", repo.FullName())

	if err := s.upsertWithRetry(ctx, "repository", func() error {
		return s.repoStore.Upsert(ctx, repo)
	}); err != nil {
		return false, fmt.Errorf("upsert repository: %w", err)
	}

	// Incremental cursor: only commits since the last successful sync are
	// requested. Issues and PRs are always re-scanned in full because state
	// transitions and backfilled closure dates would otherwise be missed.
	var since time.Time
	if stored, err := s.repoStore.GetByID(ctx, repo.ID); err == nil && stored != nil && stored.LastSyncedAt != nil {
		since = *stored.LastSyncedAt
	}

	// Taken before the fetch so commits landing mid-sync are re-fetched next
	// pass; the overlap is harmless because upserts are idempotent.
	syncStart := time.Now().UTC()

	var commits []model.Commit
	if err := s.withRetry(ctx, "commits/"+repo.FullName(), func() error {
		var ferr error
		commits, ferr = s.source.FetchCommits(ctx, repo, since)
		return ferr
	}); err != nil {
		return false, fmt.Errorf("fetch commits: %w", err)
	}

	if err := s.upsertWithRetry(ctx, "commits", func() error {
		return s.commitStore.UpsertBatch(ctx, commits)
	}); err != nil {
		return false, fmt.Errorf("store commits: %w", err)
	}

	issueFallback := false
	var issues []model.Issue
	if err := s.withRetry(ctx, "issues/"+repo.FullName(), func() error {
		var ferr error
		issues, ferr = s.source.FetchIssues(ctx, repo)
		return ferr
	}); err != nil {
		if errors.Is(err, driven.ErrAuthExpired) {
			return false, fmt.Errorf("fetch issues: %w", err)
		}
		// Issues alone failing does not fail the repository; the scope-wide
		// fallback listing can still deliver them.
		logger.Warn("issue fetch failed, deferring to scope fallback", "error", err)
		issueFallback = true
	} else if err := s.upsertWithRetry(ctx, "issues", func() error {
		return s.issueStore.UpsertBatch(ctx, issues)
	}); err != nil {
		return false, fmt.Errorf("store issues: %w", err)
	}

	var prs []model.PullRequest
	if err := s.withRetry(ctx, "pulls/"+repo.FullName(), func() error {
		var ferr error
		prs, ferr = s.source.FetchPullRequests(ctx, repo)
		return ferr
	}); err != nil {
		return issueFallback, fmt.Errorf("fetch pull requests: %w", err)
	}

	if err := s.upsertWithRetry(ctx, "pull requests", func() error {
		return s.prStore.UpsertBatch(ctx, prs)
	}); err != nil {
		return issueFallback, fmt.Errorf("store pull requests: %w", err)
	}

	if err := s.repoStore.SetLastSynced(ctx, repo.ID, syncStart); err != nil {
		return issueFallback, fmt.Errorf("advance sync cursor: %w", err)
	}

	s.addCounts(1, len(commits), len(issues), len(prs))

	logger.Debug("repository synced",
		"commits", len(commits),
		"issues", len(issues),
		"pull_requests", len(prs),
	)

	return issueFallback, nil
}

// backfillScopeIssues runs the REST fallback issue listing for a scope whose
// per-repository issue fetch failed, matching issues to stored repositories
// by the name derived from each issue's repository URL.
func (s *SyncService) backfillScopeIssues(ctx context.Context, scope model.Scope) {
	var scoped []model.ScopedIssue
	if err := s.withRetry(ctx, "scope-issues/"+scope.Login, func() error {
		var ferr error
		scoped, ferr = s.source.ListScopeIssues(ctx, scope)
		return ferr
	}); err != nil {
		s.recordFailure(scope.Login, "", fmt.Errorf("issue fallback listing: %w", err))
		return
	}

	repos, err := s.repoStore.ListByOrg(ctx, scope.Login, nil)
	if err != nil {
		s.recordFailure(scope.Login, "", fmt.Errorf("issue fallback repo lookup: %w", err))
		return
	}

	idByName := make(map[string]string, len(repos))
	for _, r := range repos {
		idByName[r.Name] = r.ID
	}

	issues := make([]model.Issue, 0, len(scoped))
	for _, si := range scoped {
		repoID, ok := idByName[si.RepoName]
		if !ok {
			continue // Issue of a repository we have never synced.
		}
		issue := si.Issue
		issue.RepoID = repoID
		issues = append(issues, issue)
	}

	if err := s.upsertWithRetry(ctx, "fallback issues", func() error {
		return s.issueStore.UpsertBatch(ctx, issues)
	}); err != nil {
		s.recordFailure(scope.Login, "", fmt.Errorf("store fallback issues: %w", err))
		return
	}

	s.addCounts(0, 0, len(issues), 0)

	slog.Info("scope issues backfilled", "scope", scope.Login, "issues", len(issues))
}

// withRetry runs fn up to maxFetchAttempts times. Credential rejections and
// gone-upstream errors are never retried. Rate limits wait for the
// host-reported delay; other failures back off with doubling delays.
func (s *SyncService) withRetry(ctx context.Context, op string, fn func() error) error {
	delay := retryBaseDelay

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, driven.ErrAuthExpired) || errors.Is(err, driven.ErrScopeGone) {
			return err
		}
		if attempt >= maxFetchAttempts {
			return err
		}

		wait := delay
		var rateErr *driven.RateLimitError
		if errors.As(err, &rateErr) {
			wait = rateErr.RetryAfter
		} else {
			delay *= 2
		}

		slog.Warn("fetch failed, backing off",
			"op", op,
			"attempt", attempt,
			"wait", wait.Round(time.Millisecond),
			"error", err,
		)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// upsertWithRetry retries a store write exactly once before giving up.
func (s *SyncService) upsertWithRetry(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	slog.Warn("store write failed, retrying once", "op", op, "error", err)
	return fn()
}

func (s *SyncService) recordFailure(scope, repo string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = append(s.failures, model.ScopeFailure{
		Scope:  scope,
		Repo:   repo,
		Reason: err.Error(),
	})
}

func (s *SyncService) taskDone() {
	s.mu.Lock()
	s.doneTasks++
	s.mu.Unlock()
}

func (s *SyncService) addCounts(repos, commits, issues, pulls int) {
	s.mu.Lock()
	s.repos += repos
	s.commits += commits
	s.issues += issues
	s.pulls += pulls
	s.mu.Unlock()
}
