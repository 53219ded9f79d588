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
var _ driven.IssueStore = (*IssueRepo)(nil)

const upsertIssueQuery = `
	INSERT INTO issues (id, repo_id, state, created_at, closed_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		repo_id = excluded.repo_id,
		state = excluded.state,
		created_at = excluded.created_at,
		closed_at = excluded.closed_at
`

// IssueRepo is the SQLite implementation of the IssueStore port interface.
type IssueRepo struct {
	db *DB
}

// NewIssueRepo creates a new IssueRepo backed by the given DB.
func NewIssueRepo(db *DB) *IssueRepo {
	return &IssueRepo{db: db}
}

// Upsert inserts or replaces a single issue keyed by its external ID. A
// re-sync that carries a newly backfilled closed_at overwrites the open row.
func (r *IssueRepo) Upsert(ctx context.Context, issue model.Issue) error {
	_, err := r.db.Writer.ExecContext(ctx, upsertIssueQuery, issueArgs(issue)...)
	if err != nil {
		return fmt.Errorf("upsert issue %s: %w", issue.ID, err)
	}

	return nil
}

// UpsertBatch upserts all issues in a single transaction.
func (r *IssueRepo) UpsertBatch(ctx context.Context, issues []model.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin issue batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertIssueQuery)
	if err != nil {
		return fmt.Errorf("prepare issue upsert: %w", err)
	}
	defer stmt.Close()

	for _, i := range issues {
		if _, err := stmt.ExecContext(ctx, issueArgs(i)...); err != nil {
			return fmt.Errorf("upsert issue %s: %w", i.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch of %d issues: %w", len(issues), err)
	}

	return nil
}

// ListByRepos returns the issues of the given repositories ordered by
// created_at descending.
func (r *IssueRepo) ListByRepos(ctx context.Context, repoIDs []string) ([]model.Issue, error) {
	if len(repoIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, repo_id, state, created_at, closed_at
		FROM issues WHERE repo_id IN (` + placeholders(len(repoIDs)) + `)
		ORDER BY created_at DESC`
	args := make([]any, 0, len(repoIDs))
	for _, id := range repoIDs {
		args = append(args, id)
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	var issues []model.Issue
	for rows.Next() {
		var issue model.Issue
		var createdAt string
		var closedAt sql.NullString

		if err := rows.Scan(&issue.ID, &issue.RepoID, &issue.State, &createdAt, &closedAt); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}

		issue.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}

		if closedAt.Valid {
			t, err := parseTime(closedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse closed_at: %w", err)
			}
			issue.ClosedAt = &t
		}

		issues = append(issues, issue)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}

	return issues, nil
}

func issueArgs(i model.Issue) []any {
	var closedAt sql.NullString
	if i.ClosedAt != nil {
		closedAt = sql.NullString{String: i.ClosedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	return []any{i.ID, i.RepoID, i.State, i.CreatedAt.UTC().Format(time.RFC3339), closedAt}
}
