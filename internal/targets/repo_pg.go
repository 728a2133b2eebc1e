package targets

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"jobapplier-backend/internal/shared/apperr"
	"jobapplier-backend/internal/shared/storage/db"
)

// PGRepo implements TargetsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const targetColumns = `id, user_id, content, source_kind, ocr, image_key, image_file_name, image_size_bytes, title, company, created_at, updated_at`

// Create inserts a new target.
func (r *PGRepo) Create(ctx context.Context, target Target) error {
	const query = `
INSERT INTO targets (
    id,
    user_id,
    content,
    source_kind,
    ocr,
    image_key,
    image_file_name,
    image_size_bytes,
    title,
    company,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	updatedAt := target.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = target.CreatedAt
	}
	var imageSize any
	if target.SourceKind == SourceImage {
		imageSize = target.ImageSizeBytes
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		target.ID,
		target.UserID,
		target.Content,
		string(target.SourceKind),
		target.OCR,
		nullable(target.ImageKey),
		nullable(target.ImageFileName),
		imageSize,
		nullable(target.Title),
		nullable(target.Company),
		target.CreatedAt,
		updatedAt,
	)
	return err
}

// GetByID fetches a live target by ID.
func (r *PGRepo) GetByID(ctx context.Context, targetID string) (Target, error) {
	const query = `
SELECT ` + targetColumns + `
FROM targets
WHERE id = $1 AND deleted_at IS NULL
LIMIT 1`
	return scanTarget(r.DB.QueryRowContext(ctx, query, targetID))
}

// ListByUser lists targets newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userId string, limit, offset int) ([]Target, error) {
	limit, offset = normalizePage(limit, offset)
	const query = `
SELECT ` + targetColumns + `
FROM targets
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userId, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Target{}
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, target)
	}
	return out, rows.Err()
}

// UpdateText replaces the target's text.
func (r *PGRepo) UpdateText(ctx context.Context, targetID, content string, at time.Time) error {
	const query = `
UPDATE targets
SET content = $1, updated_at = $2
WHERE id = $3 AND deleted_at IS NULL`
	return r.exec(ctx, query, content, at, targetID)
}

// UpdateLabels replaces the optional title and company.
func (r *PGRepo) UpdateLabels(ctx context.Context, targetID, title, company string, at time.Time) error {
	const query = `
UPDATE targets
SET title = $1, company = $2, updated_at = $3
WHERE id = $4 AND deleted_at IS NULL`
	return r.exec(ctx, query, nullable(title), nullable(company), at, targetID)
}

// SoftDelete marks a target deleted.
func (r *PGRepo) SoftDelete(ctx context.Context, targetID string, at time.Time) error {
	const query = `
UPDATE targets
SET deleted_at = $1, updated_at = $1
WHERE id = $2 AND deleted_at IS NULL`
	return r.exec(ctx, query, at, targetID)
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if db.IsInvalidInput(err) {
		return apperr.NotFound("target")
	}
	if err != nil {
		return err
	}
	if updated, _ := res.RowsAffected(); updated == 0 {
		return apperr.NotFound("target")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTarget(row rowScanner) (Target, error) {
	var target Target
	var sourceKind string
	var imageKey, imageFileName, title, company sql.NullString
	var imageSize sql.NullInt64
	err := row.Scan(
		&target.ID,
		&target.UserID,
		&target.Content,
		&sourceKind,
		&target.OCR,
		&imageKey,
		&imageFileName,
		&imageSize,
		&title,
		&company,
		&target.CreatedAt,
		&target.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || db.IsInvalidInput(err) {
			return Target{}, apperr.NotFound("target")
		}
		return Target{}, err
	}
	target.SourceKind = SourceKind(sourceKind)
	target.ImageKey = imageKey.String
	target.ImageFileName = imageFileName.String
	target.ImageSizeBytes = imageSize.Int64
	target.Title = title.String
	target.Company = company.String
	return target, nil
}

// nullable stores empty strings as NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ TargetsRepo = (*PGRepo)(nil)
