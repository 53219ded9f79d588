package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoStore = (*RepoRepo)(nil)

// RepoRepo is the SQLite implementation of the RepoStore port interface.
type RepoRepo struct {
	db *DB
}

// NewRepoRepo creates a new RepoRepo backed by the given DB.
func NewRepoRepo(db *DB) *RepoRepo {
	return &RepoRepo{db: db}
}

// Upsert inserts or replaces a repository keyed by its external ID. The
// last_synced_at cursor is deliberately not touched here; it only advances
// through SetLastSynced after a successful sync.
func (r *RepoRepo) Upsert(ctx context.Context, repo model.Repository) error {
	const query = `
		INSERT INTO repositories (id, org, name, default_branch, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			org = excluded.org,
			name = excluded.name,
			default_branch = excluded.default_branch
	`

	addedAt := repo.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		repo.ID, repo.Org, repo.Name, repo.DefaultBranch, addedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert repository %s: %w", repo.FullName(), err)
	}

	return nil
}

// GetByID retrieves a repository by its external ID. Returns nil, nil if it
// does not exist.
func (r *RepoRepo) GetByID(ctx context.Context, id string) (*model.Repository, error) {
	const query = `
		SELECT id, org, name, default_branch, last_synced_at, added_at
		FROM repositories WHERE id = ?
	`

	repo, err := scanRepository(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %s: %w", id, err)
	}

	return repo, nil
}

// ListByOrg returns the repositories of an organization ordered by name.
// A non-empty names slice restricts the result to those repository names.
func (r *RepoRepo) ListByOrg(ctx context.Context, org string, names []string) ([]model.Repository, error) {
	query := `
		SELECT id, org, name, default_branch, last_synced_at, added_at
		FROM repositories WHERE org = ?
	`
	args := []any{org}

	if len(names) > 0 {
		query += ` AND name IN (` + placeholders(len(names)) + `)`
		for _, n := range names {
			args = append(args, n)
		}
	}
	query += ` ORDER BY name`

	return r.queryRepos(ctx, query, args...)
}

// ListAll returns all repositories ordered by org then name.
func (r *RepoRepo) ListAll(ctx context.Context) ([]model.Repository, error) {
	const query = `
		SELECT id, org, name, default_branch, last_synced_at, added_at
		FROM repositories ORDER BY org, name
	`

	return r.queryRepos(ctx, query)
}

// SetLastSynced persists the incremental sync cursor for a repository.
func (r *RepoRepo) SetLastSynced(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE repositories SET last_synced_at = ? WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("set last synced for %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set last synced: repository %s not found", id)
	}

	return nil
}

func (r *RepoRepo) queryRepos(ctx context.Context, query string, args ...any) ([]model.Repository, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query repositories: %w", err)
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repositories: %w", err)
	}

	return repos, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRepository(s scanner) (*model.Repository, error) {
	var repo model.Repository
	var lastSynced sql.NullString
	var addedAt string

	err := s.Scan(&repo.ID, &repo.Org, &repo.Name, &repo.DefaultBranch, &lastSynced, &addedAt)
	if err != nil {
		return nil, err
	}

	if lastSynced.Valid {
		t, err := parseTime(lastSynced.String)
		if err != nil {
			return nil, fmt.Errorf("parse last_synced_at: %w", err)
		}
		repo.LastSyncedAt = &t
	}

	repo.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, fmt.Errorf("parse added_at: %w", err)
	}

	return &repo, nil
}

// placeholders returns n comma-separated SQL placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
