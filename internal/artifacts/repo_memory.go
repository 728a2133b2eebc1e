package artifacts

import (
	"context"
	"sort"
	"sync"
	"time"

	"jobapplier-backend/internal/shared/apperr"
)

// MemoryRepo is an in-memory implementation of ArtifactsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Artifact
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Artifact)}
}

func (r *MemoryRepo) Create(ctx context.Context, artifact Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[artifact.ID]; ok {
		return apperr.ErrConflict
	}
	for _, existing := range r.data {
		if existing.DeletedAt == nil && existing.DocumentID == artifact.DocumentID && existing.TargetID == artifact.TargetID {
			return apperr.ErrConflict
		}
	}
	r.data[artifact.ID] = artifact
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, artifactID string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	artifact, ok := r.data[artifactID]
	if !ok || artifact.DeletedAt != nil {
		return Artifact{}, apperr.NotFound("artifact")
	}
	return artifact, nil
}

func (r *MemoryRepo) GetByDocumentAndTarget(ctx context.Context, documentID, targetID string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, artifact := range r.data {
		if artifact.DeletedAt == nil && artifact.DocumentID == documentID && artifact.TargetID == targetID {
			return artifact, nil
		}
	}
	return Artifact{}, apperr.NotFound("artifact")
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userId string, limit, offset int) ([]Artifact, error) {
	limit, offset = normalizePage(limit, offset)
	out, err := r.filter(ctx, func(a Artifact) bool { return a.UserID == userId })
	if err != nil {
		return nil, err
	}
	if offset >= len(out) {
		return []Artifact{}, nil
	}
	end := len(out)
	if offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string) ([]Artifact, error) {
	return r.filter(ctx, func(a Artifact) bool { return a.DocumentID == documentID })
}

func (r *MemoryRepo) UpdateContent(ctx context.Context, artifactID, content string, wordCount int, at time.Time) error {
	return r.update(ctx, artifactID, func(a *Artifact) {
		a.Content = content
		a.WordCount = wordCount
		a.UpdatedAt = at
	})
}

func (r *MemoryRepo) UpdateNotes(ctx context.Context, artifactID, notes string, at time.Time) error {
	return r.update(ctx, artifactID, func(a *Artifact) {
		a.Notes = notes
		a.UpdatedAt = at
	})
}

func (r *MemoryRepo) SoftDelete(ctx context.Context, artifactID string, at time.Time) error {
	return r.update(ctx, artifactID, func(a *Artifact) {
		a.DeletedAt = &at
		a.UpdatedAt = at
	})
}

// filter returns live artifacts matching keep, newest first.
func (r *MemoryRepo) filter(ctx context.Context, keep func(Artifact) bool) ([]Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Artifact, 0)
	for _, artifact := range r.data {
		if artifact.DeletedAt == nil && keep(artifact) {
			out = append(out, artifact)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) update(ctx context.Context, artifactID string, fn func(*Artifact)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	artifact, ok := r.data[artifactID]
	if !ok || artifact.DeletedAt != nil {
		return apperr.NotFound("artifact")
	}
	fn(&artifact)
	r.data[artifactID] = artifact
	return nil
}

var _ ArtifactsRepo = (*MemoryRepo)(nil)
