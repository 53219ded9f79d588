package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

func TestPRRepo_UpsertTracksMergeTransition(t *testing.T) {
	db := setupTestDB(t)
	seedRepo(t, db, "R1", "acme", "api")
	prs := NewPRRepo(db)
	ctx := context.Background()

	createdAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, prs.Upsert(ctx, model.PullRequest{
		ID: "P1", RepoID: "R1", State: "OPEN", CreatedAt: createdAt,
	}))

	mergedAt := createdAt.Add(6 * time.Hour)
	require.NoError(t, prs.Upsert(ctx, model.PullRequest{
		ID: "P1", RepoID: "R1", State: "MERGED", CreatedAt: createdAt, ClosedAt: &mergedAt,
	}))

	got, err := prs.ListByRepos(ctx, []string{"R1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "MERGED", got[0].State)
	require.NotNil(t, got[0].ClosedAt)
	assert.True(t, got[0].ClosedAt.Equal(mergedAt))
}

func TestPRRepo_ListByReposFiltersAndOrders(t *testing.T) {
	db := setupTestDB(t)
	seedRepo(t, db, "R1", "acme", "api")
	seedRepo(t, db, "R2", "acme", "web")
	prs := NewPRRepo(db)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, prs.UpsertBatch(ctx, []model.PullRequest{
		{ID: "P1", RepoID: "R1", State: "OPEN", CreatedAt: base},
		{ID: "P2", RepoID: "R1", State: "CLOSED", CreatedAt: base.Add(time.Hour)},
		{ID: "P3", RepoID: "R2", State: "OPEN", CreatedAt: base},
	}))

	got, err := prs.ListByRepos(ctx, []string{"R1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "P2", got[0].ID) // created_at descending.
	assert.Equal(t, "P1", got[1].ID)

	empty, err := prs.ListByRepos(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
