package driven

import (
	"context"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// IssueStore defines the driven port for issue persistence.
type IssueStore interface {
	Upsert(ctx context.Context, issue model.Issue) error
	UpsertBatch(ctx context.Context, issues []model.Issue) error
	ListByRepos(ctx context.Context, repoIDs []string) ([]model.Issue, error)
}
