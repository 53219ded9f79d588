package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// CommitStore defines the driven port for commit persistence.
type CommitStore interface {
	Upsert(ctx context.Context, commit model.Commit) error
	// UpsertBatch upserts all commits in a single transaction. Upserting the
	// same external ID twice leaves exactly one row with the latest payload.
	UpsertBatch(ctx context.Context, commits []model.Commit) error
	// ListByRepoSince returns commits of the given repositories committed
	// strictly after since (zero means unbounded), ordered by committed_at
	// descending.
	ListByRepoSince(ctx context.Context, repoIDs []string, since time.Time) ([]model.Commit, error)
}
