package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// commitHistoryQuery walks the default branch's commit history one page at a
// time. The branch target is a tagged union: only a Commit-typed target
// carries history, so the __typename is fetched and checked explicitly.
const commitHistoryQuery = `query($owner: String!, $repo: String!, $cursor: String, $since: GitTimestamp) {
	repository(owner: $owner, name: $repo) {
		defaultBranchRef {
			target {
				__typename
				... on Commit {
					history(first: 100, after: $cursor, since: $since) {
						pageInfo {
							endCursor
							hasNextPage
						}
						nodes {
							id
							author { name }
							committedDate
							additions
							deletions
						}
					}
				}
			}
		}
	}
}`

// graphqlRequest is the JSON body sent to the GitHub GraphQL API.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// commitNode is one history node as returned by the GraphQL API.
type commitNode struct {
	ID     string `json:"id"`
	Author *struct {
		Name *string `json:"name"`
	} `json:"author"`
	CommittedDate time.Time `json:"committedDate"`
	Additions     int       `json:"additions"`
	Deletions     int       `json:"deletions"`
}

// commitHistoryResponse is the expected response shape for commitHistoryQuery.
// DefaultBranchRef is nil on an empty repository; History is nil when the
// branch target is not a Commit.
type commitHistoryResponse struct {
	Data struct {
		Repository *struct {
			DefaultBranchRef *struct {
				Target struct {
					Typename string `json:"__typename"`
					History  *struct {
						PageInfo struct {
							EndCursor   string `json:"endCursor"`
							HasNextPage bool   `json:"hasNextPage"`
						} `json:"pageInfo"`
						Nodes []commitNode `json:"nodes"`
					} `json:"history"`
				} `json:"target"`
			} `json:"defaultBranchRef"`
		} `json:"repository"`
	} `json:"data"`
	Errors []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchCommits walks the default branch's commit history, bounded server-side
// by since (zero means the full history). Pages are consumed strictly in
// cursor order; the walk stops exactly when the API reports no further page.
func (c *Client) FetchCommits(ctx context.Context, repo model.Repository, since time.Time) ([]model.Commit, error) {
	var commits []model.Commit
	var cursor string

	for {
		nodes, nextCursor, err := c.fetchCommitPage(ctx, repo, cursor, since)
		if err != nil {
			return nil, err
		}

		for _, n := range nodes {
			commit, ok := mapCommitNode(n, repo.ID)
			if !ok {
				slog.Warn("skipping unmappable commit node", "repo", repo.FullName())
				continue
			}
			commits = append(commits, commit)
		}

		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	return commits, nil
}

// fetchCommitPage requests a single history page. An empty cursor requests
// the first page; a non-empty returned cursor means more pages remain.
func (c *Client) fetchCommitPage(ctx context.Context, repo model.Repository, cursor string, since time.Time) ([]commitNode, string, error) {
	variables := map[string]any{
		"owner": repo.Org,
		"repo":  repo.Name,
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}
	if !since.IsZero() {
		variables["since"] = since.UTC().Format(time.RFC3339)
	}

	bodyBytes, err := json.Marshal(graphqlRequest{Query: commitHistoryQuery, Variables: variables})
	if err != nil {
		return nil, "", fmt.Errorf("marshal commit history query: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("create commit history request: %w", err)
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("bearer %s", c.token))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("fetch commit history for %s: %w", repo.FullName(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		if classified := classifyStatus(resp.StatusCode, resp.Header.Get("Retry-After")); classified != nil {
			return nil, "", fmt.Errorf("fetch commit history for %s: %w", repo.FullName(), classified)
		}
		return nil, "", fmt.Errorf("fetch commit history for %s: unexpected status %d", repo.FullName(), resp.StatusCode)
	}

	var gqlResp commitHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return nil, "", fmt.Errorf("decode commit history for %s: %w", repo.FullName(), err)
	}

	if len(gqlResp.Errors) > 0 {
		return nil, "", fmt.Errorf("fetch commit history for %s: %s", repo.FullName(), gqlResp.Errors[0].Message)
	}

	repoData := gqlResp.Data.Repository
	if repoData == nil || repoData.DefaultBranchRef == nil {
		// Empty repository or no default branch: no history, not an error.
		return nil, "", nil
	}

	target := repoData.DefaultBranchRef.Target
	if target.Typename != "Commit" || target.History == nil {
		// Branch ref points at a non-commit object (e.g. an annotated tag
		// chain). Treat as empty history.
		return nil, "", nil
	}

	nextCursor := ""
	if target.History.PageInfo.HasNextPage {
		nextCursor = target.History.PageInfo.EndCursor
	}

	return target.History.Nodes, nextCursor, nil
}
