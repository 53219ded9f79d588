package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// RepoActivity is one repository with its synced entities, filtered to the
// requested window where applicable.
type RepoActivity struct {
	Repository   model.Repository    `json:"repository"`
	Commits      []model.Commit      `json:"commits"`
	Issues       []model.Issue       `json:"issues"`
	PullRequests []model.PullRequest `json:"pull_requests"`
}

// OrgStatsResult is the full read-path response for one organization:
// repositories with nested entities plus the contributor rollup across them.
type OrgStatsResult struct {
	Repositories []RepoActivity           `json:"repositories"`
	Contributors []model.ContributorStats `json:"contributors"`
}

// StatsService serves scope-filtered reads over persisted sync data. It only
// reads; every result is recomputed from stored rows on each call.
type StatsService struct {
	repoStore   driven.RepoStore
	commitStore driven.CommitStore
	issueStore  driven.IssueStore
	prStore     driven.PRStore
}

// NewStatsService creates a StatsService over the given stores.
func NewStatsService(
	repoStore driven.RepoStore,
	commitStore driven.CommitStore,
	issueStore driven.IssueStore,
	prStore driven.PRStore,
) *StatsService {
	return &StatsService{
		repoStore:   repoStore,
		commitStore: commitStore,
		issueStore:  issueStore,
		prStore:     prStore,
	}
}

// OrgStats returns the repositories of an organization (optionally restricted
// to a name set), each with its commits, issues, and pull requests, plus the
// contributor aggregate over the selected commits. The window name is
// resolved against the current clock; commits are filtered to the window,
// while issues and pull requests are returned in full since their lifecycle
// state is what callers chart.
func (s *StatsService) OrgStats(ctx context.Context, org string, repoNames []string, window string) (*OrgStatsResult, error) {
	cutoff, _ := ResolveWindow(window, time.Now().UTC())

	repos, err := s.repoStore.ListByOrg(ctx, org, repoNames)
	if err != nil {
		return nil, fmt.Errorf("list repositories of %s: %w", org, err)
	}

	repoIDs := make([]string, len(repos))
	for i, r := range repos {
		repoIDs[i] = r.ID
	}

	commits, err := s.commitStore.ListByRepoSince(ctx, repoIDs, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}

	issues, err := s.issueStore.ListByRepos(ctx, repoIDs)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}

	prs, err := s.prStore.ListByRepos(ctx, repoIDs)
	if err != nil {
		return nil, fmt.Errorf("list pull requests: %w", err)
	}

	commitsByRepo := make(map[string][]model.Commit, len(repos))
	for _, c := range commits {
		commitsByRepo[c.RepoID] = append(commitsByRepo[c.RepoID], c)
	}
	issuesByRepo := make(map[string][]model.Issue, len(repos))
	for _, i := range issues {
		issuesByRepo[i.RepoID] = append(issuesByRepo[i.RepoID], i)
	}
	prsByRepo := make(map[string][]model.PullRequest, len(repos))
	for _, pr := range prs {
		prsByRepo[pr.RepoID] = append(prsByRepo[pr.RepoID], pr)
	}

	activities := make([]RepoActivity, 0, len(repos))
	for _, r := range repos {
		activities = append(activities, RepoActivity{
			Repository:   r,
			Commits:      emptyIfNil(commitsByRepo[r.ID]),
			Issues:       emptyIfNil(issuesByRepo[r.ID]),
			PullRequests: emptyIfNil(prsByRepo[r.ID]),
		})
	}

	return &OrgStatsResult{
		Repositories: activities,
		Contributors: AggregateContributors(commits),
	}, nil
}

// AggregateContributors groups commits by author and sums their line counts.
// Commits without author identity carry no contributor bucket and are
// excluded. The result is ordered by additions descending, with ties broken
// by author name ascending so equal inputs always produce equal output.
func AggregateContributors(commits []model.Commit) []model.ContributorStats {
	byAuthor := make(map[string]*model.ContributorStats)

	for _, c := range commits {
		if c.Author == nil {
			continue
		}

		stats, ok := byAuthor[*c.Author]
		if !ok {
			stats = &model.ContributorStats{Author: *c.Author}
			byAuthor[*c.Author] = stats
		}

		stats.Additions += c.Additions
		stats.Deletions += c.Deletions
		stats.LinesChanged += c.LinesChanged
		stats.Commits++
		stats.Activity++
	}

	result := make([]model.ContributorStats, 0, len(byAuthor))
	for _, stats := range byAuthor {
		result = append(result, *stats)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Additions != result[j].Additions {
			return result[i].Additions > result[j].Additions
		}
		return result[i].Author < result[j].Author
	})

	return result
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
