package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PRStore = (*PRRepo)(nil)

const upsertPRQuery = `
	INSERT INTO pull_requests (id, repo_id, state, created_at, closed_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		repo_id = excluded.repo_id,
		state = excluded.state,
		created_at = excluded.created_at,
		closed_at = excluded.closed_at
`

// PRRepo is the SQLite implementation of the PRStore port interface.
type PRRepo struct {
	db *DB
}

// NewPRRepo creates a new PRRepo backed by the given DB.
func NewPRRepo(db *DB) *PRRepo {
	return &PRRepo{db: db}
}

// Upsert inserts or replaces a single pull request keyed by its external ID.
func (r *PRRepo) Upsert(ctx context.Context, pr model.PullRequest) error {
	_, err := r.db.Writer.ExecContext(ctx, upsertPRQuery, prArgs(pr)...)
	if err != nil {
		return fmt.Errorf("upsert pull request %s: %w", pr.ID, err)
	}

	return nil
}

// UpsertBatch upserts all pull requests in a single transaction.
func (r *PRRepo) UpsertBatch(ctx context.Context, prs []model.PullRequest) error {
	if len(prs) == 0 {
		return nil
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin pull request batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertPRQuery)
	if err != nil {
		return fmt.Errorf("prepare pull request upsert: %w", err)
	}
	defer stmt.Close()

	for _, pr := range prs {
		if _, err := stmt.ExecContext(ctx, prArgs(pr)...); err != nil {
			return fmt.Errorf("upsert pull request %s: %w", pr.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch of %d pull requests: %w", len(prs), err)
	}

	return nil
}

// ListByRepos returns the pull requests of the given repositories ordered by
// created_at descending.
func (r *PRRepo) ListByRepos(ctx context.Context, repoIDs []string) ([]model.PullRequest, error) {
	if len(repoIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, repo_id, state, created_at, closed_at
		FROM pull_requests WHERE repo_id IN (` + placeholders(len(repoIDs)) + `)
		ORDER BY created_at DESC`
	args := make([]any, 0, len(repoIDs))
	for _, id := range repoIDs {
		args = append(args, id)
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pull requests: %w", err)
	}
	defer rows.Close()

	var prs []model.PullRequest
	for rows.Next() {
		var pr model.PullRequest
		var createdAt string
		var closedAt sql.NullString

		if err := rows.Scan(&pr.ID, &pr.RepoID, &pr.State, &createdAt, &closedAt); err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}

		pr.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}

		if closedAt.Valid {
			t, err := parseTime(closedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse closed_at: %w", err)
			}
			pr.ClosedAt = &t
		}

		prs = append(prs, pr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pull requests: %w", err)
	}

	return prs, nil
}

func prArgs(pr model.PullRequest) []any {
	var closedAt sql.NullString
	if pr.ClosedAt != nil {
		closedAt = sql.NullString{String: pr.ClosedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	return []any{pr.ID, pr.RepoID, pr.State, pr.CreatedAt.UTC().Format(time.RFC3339), closedAt}
}
