package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"repowatch/internal/errors"
)

// TrackedRepository is a repository registered for incremental scanning.
type TrackedRepository struct {
	ID                  string
	Name                string
	Path                string
	AutoScanEnabled     bool
	Active              bool
	ScanIntervalMinutes int
	LastScanCheck       *time.Time // nil means due immediately
	LastAnalyzed        *time.Time
	LastCommitHash      string // "" when no commit has been seen
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RepositoryStore provides CRUD operations for tracked_repositories
type RepositoryStore struct {
	db  *DB
	now func() time.Time
}

// NewRepositoryStore creates a new repository store
func NewRepositoryStore(db *DB) *RepositoryStore {
	return &RepositoryStore{db: db, now: time.Now}
}

const repositoryColumns = `id, name, path, auto_scan_enabled, active, scan_interval_minutes,
	last_scan_check, last_analyzed, last_commit_hash, created_at, updated_at`

// Add registers a repository. Auto-scan starts disabled; path must already be
// resolved by the caller.
func (s *RepositoryStore) Add(ctx context.Context, name, path string, intervalMinutes int) (*TrackedRepository, error) {
	if name == "" || path == "" {
		return nil, errors.Newf(errors.InvalidArgument, "repository name and path are required")
	}
	if intervalMinutes <= 0 {
		return nil, errors.Newf(errors.InvalidArgument, "scan interval must be positive, got %d", intervalMinutes)
	}

	now := s.now().UTC()
	repo := &TrackedRepository{
		ID:                  uuid.NewString(),
		Name:                name,
		Path:                path,
		Active:              true,
		ScanIntervalMinutes: intervalMinutes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracked_repositories (
			id, name, path, auto_scan_enabled, active, scan_interval_minutes, created_at, updated_at
		) VALUES (?, ?, ?, 0, 1, ?, ?, ?)
	`, repo.ID, repo.Name, repo.Path, repo.ScanIntervalMinutes, formatTime(now), formatTime(now))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, errors.New(errors.InvalidArgument, fmt.Sprintf("repository %q or path %s is already tracked", name, path), err)
		}
		return nil, errors.New(errors.StoreUnavailable, "failed to add repository", err)
	}
	return repo, nil
}

// Get returns the repository with the given id
func (s *RepositoryStore) Get(ctx context.Context, id string) (*TrackedRepository, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+repositoryColumns+` FROM tracked_repositories WHERE id = ?`, id)
	repo, err := scanRepository(row)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.RepoNotFound, "repository %s not found", id)
	}
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "failed to load repository", err)
	}
	return repo, nil
}

// Find resolves a user reference: id, then name, then path.
func (s *RepositoryStore) Find(ctx context.Context, ref string) (*TrackedRepository, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+repositoryColumns+` FROM tracked_repositories
		WHERE id = ? OR name = ? OR path = ?
		ORDER BY CASE WHEN id = ? THEN 0 WHEN name = ? THEN 1 ELSE 2 END
		LIMIT 1
	`, ref, ref, ref, ref, ref)
	repo, err := scanRepository(row)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.RepoNotFound, "no tracked repository matches %q", ref)
	}
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "failed to load repository", err)
	}
	return repo, nil
}

// List returns all repositories ordered by name
func (s *RepositoryStore) List(ctx context.Context) ([]*TrackedRepository, error) {
	return s.query(ctx, `SELECT `+repositoryColumns+` FROM tracked_repositories ORDER BY name`)
}

// ListSchedulable returns repositories with auto-scan enabled that are active
func (s *RepositoryStore) ListSchedulable(ctx context.Context) ([]*TrackedRepository, error) {
	return s.query(ctx, `
		SELECT `+repositoryColumns+` FROM tracked_repositories
		WHERE auto_scan_enabled = 1 AND active = 1
		ORDER BY name
	`)
}

func (s *RepositoryStore) query(ctx context.Context, q string, args ...interface{}) ([]*TrackedRepository, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "failed to list repositories", err)
	}
	defer rows.Close()

	var repos []*TrackedRepository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, errors.New(errors.StoreUnavailable, "failed to read repository row", err)
		}
		repos = append(repos, repo)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.StoreUnavailable, "failed to list repositories", err)
	}
	return repos, nil
}

// Remove deletes a repository from the registry. Cached analysis results are
// content-addressed and stay in the cache.
func (s *RepositoryStore) Remove(ctx context.Context, id string) error {
	return s.update(ctx, id, `DELETE FROM tracked_repositories WHERE id = ?`, id)
}

// SetActive marks a repository active or inactive
func (s *RepositoryStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.update(ctx, id, `UPDATE tracked_repositories SET active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), formatTime(s.now()), id)
}

// SetAutoScan toggles auto-scan. intervalMinutes <= 0 keeps the stored interval.
func (s *RepositoryStore) SetAutoScan(ctx context.Context, id string, enabled bool, intervalMinutes int) error {
	if intervalMinutes > 0 {
		return s.update(ctx, id, `
			UPDATE tracked_repositories
			SET auto_scan_enabled = ?, scan_interval_minutes = ?, updated_at = ?
			WHERE id = ?
		`, boolToInt(enabled), intervalMinutes, formatTime(s.now()), id)
	}
	return s.update(ctx, id, `
		UPDATE tracked_repositories SET auto_scan_enabled = ?, updated_at = ? WHERE id = ?
	`, boolToInt(enabled), formatTime(s.now()), id)
}

// ClaimScan records that a scan was dispatched at the given time
func (s *RepositoryStore) ClaimScan(ctx context.Context, id string, at time.Time) error {
	return s.update(ctx, id, `UPDATE tracked_repositories SET last_scan_check = ?, updated_at = ? WHERE id = ?`,
		formatTime(at), formatTime(s.now()), id)
}

// ResetScanCheck clears last_scan_check so the repository is due on the next wake
func (s *RepositoryStore) ResetScanCheck(ctx context.Context, id string) error {
	return s.update(ctx, id, `UPDATE tracked_repositories SET last_scan_check = NULL, updated_at = ? WHERE id = ?`,
		formatTime(s.now()), id)
}

// RecordCommit stores the last committed revision seen for a repository
func (s *RepositoryStore) RecordCommit(ctx context.Context, id, commit string) error {
	return s.update(ctx, id, `UPDATE tracked_repositories SET last_commit_hash = ?, updated_at = ? WHERE id = ?`,
		nullString(commit), formatTime(s.now()), id)
}

// RecordAnalyzed stores the completion time of a successful analysis pass
func (s *RepositoryStore) RecordAnalyzed(ctx context.Context, id string, at time.Time) error {
	return s.update(ctx, id, `UPDATE tracked_repositories SET last_analyzed = ?, updated_at = ? WHERE id = ?`,
		formatTime(at), formatTime(s.now()), id)
}

func (s *RepositoryStore) update(ctx context.Context, id string, q string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return errors.New(errors.StoreUnavailable, "failed to update repository", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.New(errors.StoreUnavailable, "failed to update repository", err)
	}
	if n == 0 {
		return errors.Newf(errors.RepoNotFound, "repository %s not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRepository(row rowScanner) (*TrackedRepository, error) {
	var (
		repo                    TrackedRepository
		autoScan, active        int
		lastCheck, lastAnalyzed sql.NullString
		lastCommit              sql.NullString
		createdAt, updatedAt    string
	)
	err := row.Scan(
		&repo.ID, &repo.Name, &repo.Path, &autoScan, &active, &repo.ScanIntervalMinutes,
		&lastCheck, &lastAnalyzed, &lastCommit, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	repo.AutoScanEnabled = autoScan != 0
	repo.Active = active != 0
	repo.LastCommitHash = lastCommit.String
	if repo.LastScanCheck, err = parseNullTime(lastCheck); err != nil {
		return nil, err
	}
	if repo.LastAnalyzed, err = parseNullTime(lastAnalyzed); err != nil {
		return nil, err
	}
	if repo.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if repo.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, err
	}
	return &repo, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
