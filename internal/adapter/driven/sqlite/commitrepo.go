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
var _ driven.CommitStore = (*CommitRepo)(nil)

const upsertCommitQuery = `
	INSERT INTO commits (id, repo_id, author, committed_at, additions, deletions, lines_changed)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		repo_id = excluded.repo_id,
		author = excluded.author,
		committed_at = excluded.committed_at,
		additions = excluded.additions,
		deletions = excluded.deletions,
		lines_changed = excluded.lines_changed
`

// CommitRepo is the SQLite implementation of the CommitStore port interface.
type CommitRepo struct {
	db *DB
}

// NewCommitRepo creates a new CommitRepo backed by the given DB.
func NewCommitRepo(db *DB) *CommitRepo {
	return &CommitRepo{db: db}
}

// Upsert inserts or replaces a single commit keyed by its external ID.
func (r *CommitRepo) Upsert(ctx context.Context, commit model.Commit) error {
	_, err := r.db.Writer.ExecContext(ctx, upsertCommitQuery, commitArgs(commit)...)
	if err != nil {
		return fmt.Errorf("upsert commit %s: %w", commit.ID, err)
	}

	return nil
}

// UpsertBatch upserts all commits in a single transaction. The batch is
// all-or-nothing; on error nothing is written and the caller may retry the
// whole batch safely.
func (r *CommitRepo) UpsertBatch(ctx context.Context, commits []model.Commit) error {
	if len(commits) == 0 {
		return nil
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertCommitQuery)
	if err != nil {
		return fmt.Errorf("prepare commit upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range commits {
		if _, err := stmt.ExecContext(ctx, commitArgs(c)...); err != nil {
			return fmt.Errorf("upsert commit %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch of %d commits: %w", len(commits), err)
	}

	return nil
}

// ListByRepoSince returns commits of the given repositories committed strictly
// after since, ordered by committed_at descending. A zero since returns the
// full history; an empty repoIDs slice returns nothing.
func (r *CommitRepo) ListByRepoSince(ctx context.Context, repoIDs []string, since time.Time) ([]model.Commit, error) {
	if len(repoIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, repo_id, author, committed_at, additions, deletions, lines_changed
		FROM commits WHERE repo_id IN (` + placeholders(len(repoIDs)) + `)`
	args := make([]any, 0, len(repoIDs)+1)
	for _, id := range repoIDs {
		args = append(args, id)
	}

	if !since.IsZero() {
		query += ` AND committed_at > ?`
		args = append(args, since.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY committed_at DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	var commits []model.Commit
	for rows.Next() {
		commit, err := scanCommit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		commits = append(commits, *commit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}

	return commits, nil
}

func commitArgs(c model.Commit) []any {
	var author sql.NullString
	if c.Author != nil {
		author = sql.NullString{String: *c.Author, Valid: true}
	}

	return []any{
		c.ID, c.RepoID, author, c.CommittedAt.UTC().Format(time.RFC3339),
		c.Additions, c.Deletions, c.LinesChanged,
	}
}

func scanCommit(s scanner) (*model.Commit, error) {
	var commit model.Commit
	var author sql.NullString
	var committedAt string

	err := s.Scan(&commit.ID, &commit.RepoID, &author, &committedAt,
		&commit.Additions, &commit.Deletions, &commit.LinesChanged)
	if err != nil {
		return nil, err
	}

	if author.Valid {
		commit.Author = &author.String
	}

	commit.CommittedAt, err = parseTime(committedAt)
	if err != nil {
		return nil, fmt.Errorf("parse committed_at: %w", err)
	}

	return &commit, nil
}
