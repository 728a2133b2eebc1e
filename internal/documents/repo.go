package documents

import (
	"context"
	"encoding/json"
	"time"
)

// DocumentsRepo defines persistence operations for documents.
// Reads never return soft-deleted rows. Create returns apperr.ErrConflict when
// a live document with the same (user, checksum) exists.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, documentID string) (Document, error)
	GetByOwnerAndChecksum(ctx context.Context, userId, checksum string) (Document, error)
	ListByUser(ctx context.Context, userId string, limit, offset int) ([]Document, error)
	// MarkStructured stores the profile only if the document is still pending.
	// It reports whether a row was updated.
	MarkStructured(ctx context.Context, documentID string, profile json.RawMessage, at time.Time) (bool, error)
	SoftDelete(ctx context.Context, documentID string, at time.Time) error
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
