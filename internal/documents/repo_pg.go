package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"jobapplier-backend/internal/shared/apperr"
	"jobapplier-backend/internal/shared/storage/db"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, user_id, file_name, media_kind, mime_type, size_bytes, storage_provider, storage_key, checksum, extracted_text, structured_profile, structured_at, created_at, updated_at`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    user_id,
    file_name,
    media_kind,
    mime_type,
    size_bytes,
    storage_provider,
    storage_key,
    checksum,
    extracted_text,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	storageProvider := doc.StorageProvider
	if storageProvider == "" {
		storageProvider = "local"
	}
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = doc.CreatedAt
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		string(doc.MediaKind),
		doc.MimeType,
		doc.SizeBytes,
		storageProvider,
		doc.StorageKey,
		doc.Checksum,
		doc.ExtractedText,
		doc.CreatedAt,
		updatedAt,
	)
	if db.IsUniqueViolation(err) {
		return apperr.ErrConflict
	}
	return err
}

// GetByID fetches a live document by ID.
func (r *PGRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1 AND deleted_at IS NULL
LIMIT 1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, documentID))
}

// GetByOwnerAndChecksum fetches the live document with the given checksum.
func (r *PGRepo) GetByOwnerAndChecksum(ctx context.Context, userId, checksum string) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND checksum = $2 AND deleted_at IS NULL
LIMIT 1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, userId, checksum))
}

// ListByUser lists documents ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userId string, limit, offset int) ([]Document, error) {
	limit, offset = normalizePage(limit, offset)
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userId, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// MarkStructured stores the profile if the document is still pending.
func (r *PGRepo) MarkStructured(ctx context.Context, documentID string, profile json.RawMessage, at time.Time) (bool, error) {
	const query = `
UPDATE documents
SET structured_profile = $1, structured_at = $2, updated_at = $2
WHERE id = $3 AND structured_at IS NULL AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, []byte(profile), at, documentID)
	if err != nil {
		return false, err
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return updated > 0, nil
}

// SoftDelete marks a document deleted.
func (r *PGRepo) SoftDelete(ctx context.Context, documentID string, at time.Time) error {
	const query = `
UPDATE documents
SET deleted_at = $1, updated_at = $1
WHERE id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, at, documentID)
	if db.IsInvalidInput(err) {
		return apperr.NotFound("document")
	}
	if err != nil {
		return err
	}
	if updated, _ := res.RowsAffected(); updated == 0 {
		return apperr.NotFound("document")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var mediaKind string
	var profile []byte
	var structuredAt sql.NullTime
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&mediaKind,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StorageProvider,
		&doc.StorageKey,
		&doc.Checksum,
		&doc.ExtractedText,
		&profile,
		&structuredAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || db.IsInvalidInput(err) {
			return Document{}, apperr.NotFound("document")
		}
		return Document{}, err
	}
	doc.MediaKind = MediaKind(mediaKind)
	if len(profile) > 0 {
		doc.StructuredProfile = json.RawMessage(profile)
	}
	if structuredAt.Valid {
		doc.StructuredAt = &structuredAt.Time
	}
	return doc, nil
}

var _ DocumentsRepo = (*PGRepo)(nil)
