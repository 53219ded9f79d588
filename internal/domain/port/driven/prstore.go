package driven

import (
	"context"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// PRStore defines the driven port for pull request persistence.
type PRStore interface {
	Upsert(ctx context.Context, pr model.PullRequest) error
	UpsertBatch(ctx context.Context, prs []model.PullRequest) error
	ListByRepos(ctx context.Context, repoIDs []string) ([]model.PullRequest, error)
}
