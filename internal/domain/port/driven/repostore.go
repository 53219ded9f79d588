package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// RepoStore defines the driven port for repository persistence. Upsert is
// idempotent: inserting an existing external ID overwrites all mutable fields
// and never creates a second row.
type RepoStore interface {
	Upsert(ctx context.Context, repo model.Repository) error
	GetByID(ctx context.Context, id string) (*model.Repository, error)
	// ListByOrg returns the repositories of an organization, optionally
	// restricted to a name set (nil or empty means all), ordered by name.
	ListByOrg(ctx context.Context, org string, names []string) ([]model.Repository, error)
	ListAll(ctx context.Context) ([]model.Repository, error)
	// SetLastSynced persists the incremental sync cursor for a repository.
	SetLastSynced(ctx context.Context, id string, at time.Time) error
}
