package documents

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"jobapplier-backend/internal/shared/apperr"
)

// MemoryRepo is an in-memory implementation of DocumentsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // documentId -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
	}
}

// Create stores a new document, enforcing one live row per (user, checksum).
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data {
		if existing.DeletedAt == nil && existing.UserID == doc.UserID && existing.Checksum == doc.Checksum {
			return apperr.ErrConflict
		}
	}
	if _, ok := r.data[doc.ID]; ok {
		return apperr.ErrConflict
	}
	r.data[doc.ID] = cloneDocument(doc)
	return nil
}

// GetByID returns a live document by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[documentID]
	if !ok || doc.DeletedAt != nil {
		return Document{}, apperr.NotFound("document")
	}
	return cloneDocument(doc), nil
}

// GetByOwnerAndChecksum returns the live document with the given checksum.
func (r *MemoryRepo) GetByOwnerAndChecksum(ctx context.Context, userId, checksum string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.data {
		if doc.DeletedAt == nil && doc.UserID == userId && doc.Checksum == checksum {
			return cloneDocument(doc), nil
		}
	}
	return Document{}, apperr.NotFound("document")
}

// ListByUser returns documents for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userId string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)

	r.mu.RLock()
	docs := make([]Document, 0)
	for _, doc := range r.data {
		if doc.DeletedAt == nil && doc.UserID == userId {
			docs = append(docs, cloneDocument(doc))
		}
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	if offset >= len(docs) {
		return []Document{}, nil
	}
	end := len(docs)
	if offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

// MarkStructured stores the profile if the document is still pending.
func (r *MemoryRepo) MarkStructured(ctx context.Context, documentID string, profile json.RawMessage, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok || doc.DeletedAt != nil || doc.StructuredAt != nil {
		return false, nil
	}
	doc.StructuredProfile = append(json.RawMessage(nil), profile...)
	doc.StructuredAt = &at
	doc.UpdatedAt = at
	r.data[documentID] = doc
	return true, nil
}

// SoftDelete marks a document deleted.
func (r *MemoryRepo) SoftDelete(ctx context.Context, documentID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok || doc.DeletedAt != nil {
		return apperr.NotFound("document")
	}
	doc.DeletedAt = &at
	doc.UpdatedAt = at
	r.data[documentID] = doc
	return nil
}

func cloneDocument(doc Document) Document {
	if doc.StructuredProfile != nil {
		doc.StructuredProfile = append(json.RawMessage(nil), doc.StructuredProfile...)
	}
	return doc
}

var _ DocumentsRepo = (*MemoryRepo)(nil)
