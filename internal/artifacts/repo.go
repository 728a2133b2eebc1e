package artifacts

import (
	"context"
	"time"
)

// ArtifactsRepo defines persistence operations for artifacts.
// Create returns apperr.ErrConflict when a live artifact exists for the same
// (document, target) pair.
type ArtifactsRepo interface {
	Create(ctx context.Context, artifact Artifact) error
	GetByID(ctx context.Context, artifactID string) (Artifact, error)
	GetByDocumentAndTarget(ctx context.Context, documentID, targetID string) (Artifact, error)
	ListByUser(ctx context.Context, userId string, limit, offset int) ([]Artifact, error)
	ListByDocument(ctx context.Context, documentID string) ([]Artifact, error)
	UpdateContent(ctx context.Context, artifactID, content string, wordCount int, at time.Time) error
	UpdateNotes(ctx context.Context, artifactID, notes string, at time.Time) error
	SoftDelete(ctx context.Context, artifactID string, at time.Time) error
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
