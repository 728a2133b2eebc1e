package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"jobapplier-backend/internal/shared/apperr"
	"jobapplier-backend/internal/shared/storage/db"
)

// PGRepo implements ArtifactsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const artifactColumns = `id, user_id, document_id, target_id, content, word_count, usage_units, model, notes, created_at, updated_at`

// Create inserts a new artifact.
func (r *PGRepo) Create(ctx context.Context, artifact Artifact) error {
	const query = `
INSERT INTO artifacts (
    id,
    user_id,
    document_id,
    target_id,
    content,
    word_count,
    usage_units,
    model,
    notes,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	updatedAt := artifact.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = artifact.CreatedAt
	}
	var notes any
	if artifact.Notes != "" {
		notes = artifact.Notes
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		artifact.ID,
		artifact.UserID,
		artifact.DocumentID,
		artifact.TargetID,
		artifact.Content,
		artifact.WordCount,
		artifact.UsageUnits,
		artifact.Model,
		notes,
		artifact.CreatedAt,
		updatedAt,
	)
	if db.IsUniqueViolation(err) {
		return apperr.ErrConflict
	}
	return err
}

// GetByID fetches a live artifact by ID.
func (r *PGRepo) GetByID(ctx context.Context, artifactID string) (Artifact, error) {
	const query = `
SELECT ` + artifactColumns + `
FROM artifacts
WHERE id = $1 AND deleted_at IS NULL
LIMIT 1`
	return scanArtifact(r.DB.QueryRowContext(ctx, query, artifactID))
}

// GetByDocumentAndTarget fetches the live artifact for a pair.
func (r *PGRepo) GetByDocumentAndTarget(ctx context.Context, documentID, targetID string) (Artifact, error) {
	const query = `
SELECT ` + artifactColumns + `
FROM artifacts
WHERE document_id = $1 AND target_id = $2 AND deleted_at IS NULL
LIMIT 1`
	return scanArtifact(r.DB.QueryRowContext(ctx, query, documentID, targetID))
}

// ListByUser lists artifacts newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userId string, limit, offset int) ([]Artifact, error) {
	limit, offset = normalizePage(limit, offset)
	const query = `
SELECT ` + artifactColumns + `
FROM artifacts
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	return r.list(ctx, query, userId, limit, offset)
}

// ListByDocument lists all live artifacts generated from a document.
func (r *PGRepo) ListByDocument(ctx context.Context, documentID string) ([]Artifact, error) {
	const query = `
SELECT ` + artifactColumns + `
FROM artifacts
WHERE document_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC`
	return r.list(ctx, query, documentID)
}

// UpdateContent replaces the letter text and its word count.
func (r *PGRepo) UpdateContent(ctx context.Context, artifactID, content string, wordCount int, at time.Time) error {
	const query = `
UPDATE artifacts
SET content = $1, word_count = $2, updated_at = $3
WHERE id = $4 AND deleted_at IS NULL`
	return r.exec(ctx, query, content, wordCount, at, artifactID)
}

// UpdateNotes replaces the user's notes.
func (r *PGRepo) UpdateNotes(ctx context.Context, artifactID, notes string, at time.Time) error {
	const query = `
UPDATE artifacts
SET notes = $1, updated_at = $2
WHERE id = $3 AND deleted_at IS NULL`
	return r.exec(ctx, query, notes, at, artifactID)
}

// SoftDelete marks an artifact deleted.
func (r *PGRepo) SoftDelete(ctx context.Context, artifactID string, at time.Time) error {
	const query = `
UPDATE artifacts
SET deleted_at = $1, updated_at = $1
WHERE id = $2 AND deleted_at IS NULL`
	return r.exec(ctx, query, at, artifactID)
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]Artifact, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Artifact{}
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, artifact)
	}
	return out, rows.Err()
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if db.IsInvalidInput(err) {
		return apperr.NotFound("artifact")
	}
	if err != nil {
		return err
	}
	if updated, _ := res.RowsAffected(); updated == 0 {
		return apperr.NotFound("artifact")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (Artifact, error) {
	var artifact Artifact
	var notes sql.NullString
	err := row.Scan(
		&artifact.ID,
		&artifact.UserID,
		&artifact.DocumentID,
		&artifact.TargetID,
		&artifact.Content,
		&artifact.WordCount,
		&artifact.UsageUnits,
		&artifact.Model,
		&notes,
		&artifact.CreatedAt,
		&artifact.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || db.IsInvalidInput(err) {
			return Artifact{}, apperr.NotFound("artifact")
		}
		return Artifact{}, err
	}
	artifact.Notes = notes.String
	return artifact, nil
}

var _ ArtifactsRepo = (*PGRepo)(nil)
