// Package github implements the SourceHost port using the go-github library
// for REST queries and a hand-rolled GraphQL client for commit history.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SourceHost = (*Client)(nil)

// perPage is the page size requested for every paginated listing.
const perPage = 100

// Client implements the driven.SourceHost port against the GitHub API.
type Client struct {
	gh         *gh.Client
	token      string // Stored for GraphQL Authorization header.
	graphqlURL string // "https://api.github.com/graphql" in production; derived from baseURL in tests.
	httpClient *http.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
//
// The token is fixed at construction; per-call state is carried entirely by
// the context, so one Client is safe for concurrent sync jobs.
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{
		gh:         client,
		token:      token,
		graphqlURL: "https://api.github.com/graphql",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	// Derive graphqlURL from baseURL so httptest servers can intercept GraphQL requests.
	graphqlU := *u
	graphqlU.Path = "/graphql"

	return &Client{
		gh:         client,
		token:      token,
		graphqlURL: graphqlU.String(),
		httpClient: httpClient,
	}, nil
}

// ListScopes returns every organization the credential belongs to, followed
// by the credential holder's personal scope. It handles pagination and maps
// failures onto the port's error taxonomy.
func (c *Client) ListScopes(ctx context.Context) ([]model.Scope, error) {
	opts := &gh.ListOptions{PerPage: perPage}
	var scopes []model.Scope

	for {
		orgs, resp, err := c.gh.Organizations.List(ctx, "", opts)
		if err != nil {
			return nil, fmt.Errorf("listing organizations (page %d): %w", opts.Page, classifyError(resp, err))
		}

		logRateLimit(resp, "orgs", opts.Page, len(orgs))

		for _, org := range orgs {
			scopes = append(scopes, model.Scope{Login: org.GetLogin()})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	viewer, resp, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("fetching viewer profile: %w", classifyError(resp, err))
	}

	scopes = append(scopes, model.Scope{Login: viewer.GetLogin(), Personal: true})

	return scopes, nil
}

// ListRepositories enumerates the repositories of a scope. Organization
// scopes list the org's repositories; the personal scope lists repositories
// owned by the authenticated user, excluding any that belong to an
// organization.
func (c *Client) ListRepositories(ctx context.Context, scope model.Scope) ([]model.Repository, error) {
	if scope.Personal {
		return c.listPersonalRepositories(ctx, scope)
	}

	opts := &gh.RepositoryListByOrgOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	var repos []model.Repository

	for {
		page, resp, err := c.gh.Repositories.ListByOrg(ctx, scope.Login, opts)
		if err != nil {
			return nil, fmt.Errorf("listing repositories of %s (page %d): %w", scope, opts.Page, classifyError(resp, err))
		}

		logRateLimit(resp, scope.Login+"/repos", opts.Page, len(page))

		for _, r := range page {
			repos = append(repos, mapRepository(r, scope.Login))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return repos, nil
}

func (c *Client) listPersonalRepositories(ctx context.Context, scope model.Scope) ([]model.Repository, error) {
	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Affiliation: "owner",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	var repos []model.Repository

	for {
		page, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("listing personal repositories (page %d): %w", opts.Page, classifyError(resp, err))
		}

		logRateLimit(resp, "user/repos", opts.Page, len(page))

		for _, r := range page {
			// Repos owned through an organization are synced under that
			// organization's scope instead.
			if r.GetOwner().GetType() == "Organization" {
				continue
			}
			repos = append(repos, mapRepository(r, scope.Login))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return repos, nil
}

// FetchIssues returns all issues of a repository, open and closed. The
// Issues API also reports pull requests; those nodes are skipped here and
// fetched through FetchPullRequests instead.
func (c *Client) FetchIssues(ctx context.Context, repo model.Repository) ([]model.Issue, error) {
	opts := &gh.IssueListByRepoOptions{
		State:       "all",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	var issues []model.Issue

	for {
		page, resp, err := c.gh.Issues.ListByRepo(ctx, repo.Org, repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("listing issues of %s (page %d): %w", repo.FullName(), opts.ListOptions.Page, classifyError(resp, err))
		}

		logRateLimit(resp, repo.FullName()+"/issues", opts.ListOptions.Page, len(page))

		for _, i := range page {
			if i.IsPullRequest() {
				continue
			}
			issue, ok := mapIssue(i, repo.ID)
			if !ok {
				slog.Warn("skipping unmappable issue node", "repo", repo.FullName(), "number", i.GetNumber())
				continue
			}
			issues = append(issues, issue)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}

	return issues, nil
}

// FetchPullRequests returns all pull requests of a repository.
func (c *Client) FetchPullRequests(ctx context.Context, repo model.Repository) ([]model.PullRequest, error) {
	opts := &gh.PullRequestListOptions{
		State:       "all",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	var prs []model.PullRequest

	for {
		page, resp, err := c.gh.PullRequests.List(ctx, repo.Org, repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("listing pull requests of %s (page %d): %w", repo.FullName(), opts.Page, classifyError(resp, err))
		}

		logRateLimit(resp, repo.FullName()+"/pulls", opts.Page, len(page))

		for _, p := range page {
			pr, ok := mapPullRequest(p, repo.ID)
			if !ok {
				slog.Warn("skipping unmappable pull request node", "repo", repo.FullName(), "number", p.GetNumber())
				continue
			}
			prs = append(prs, pr)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return prs, nil
}

// ListScopeIssues is the REST fallback issue source. It lists issues across
// a whole scope in one paginated walk; the owning repository name is derived
// client-side from each issue's repository URL.
func (c *Client) ListScopeIssues(ctx context.Context, scope model.Scope) ([]model.ScopedIssue, error) {
	var scoped []model.ScopedIssue

	list := func(page int) ([]*gh.Issue, *gh.Response, error) {
		if scope.Personal {
			opts := &gh.IssueListOptions{
				Filter:      "all",
				State:       "all",
				ListOptions: gh.ListOptions{PerPage: perPage, Page: page},
			}
			return c.gh.Issues.List(ctx, false, opts)
		}
		opts := &gh.IssueListOptions{
			Filter:      "all",
			State:       "all",
			ListOptions: gh.ListOptions{PerPage: perPage, Page: page},
		}
		return c.gh.Issues.ListByOrg(ctx, scope.Login, opts)
	}

	page := 0
	for {
		issues, resp, err := list(page)
		if err != nil {
			return nil, fmt.Errorf("listing scope issues of %s (page %d): %w", scope, page, classifyError(resp, err))
		}

		logRateLimit(resp, scope.Login+"/scope-issues", page, len(issues))

		for _, i := range issues {
			si, ok := mapScopedIssue(i)
			if !ok {
				slog.Warn("skipping unmappable scope issue node", "scope", scope.Login, "number", i.GetNumber())
				continue
			}
			scoped = append(scoped, si)
		}

		if resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	return scoped, nil
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
