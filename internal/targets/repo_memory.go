package targets

import (
	"context"
	"sort"
	"sync"
	"time"

	"jobapplier-backend/internal/shared/apperr"
)

// MemoryRepo is an in-memory implementation of TargetsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Target
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Target)}
}

func (r *MemoryRepo) Create(ctx context.Context, target Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[target.ID]; ok {
		return apperr.ErrConflict
	}
	r.data[target.ID] = target
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, targetID string) (Target, error) {
	if err := ctx.Err(); err != nil {
		return Target{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	target, ok := r.data[targetID]
	if !ok || target.DeletedAt != nil {
		return Target{}, apperr.NotFound("target")
	}
	return target, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userId string, limit, offset int) ([]Target, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)

	r.mu.RLock()
	out := make([]Target, 0)
	for _, target := range r.data {
		if target.DeletedAt == nil && target.UserID == userId {
			out = append(out, target)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []Target{}, nil
	}
	end := len(out)
	if offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func (r *MemoryRepo) UpdateText(ctx context.Context, targetID, content string, at time.Time) error {
	return r.update(ctx, targetID, func(t *Target) {
		t.Content = content
		t.UpdatedAt = at
	})
}

func (r *MemoryRepo) UpdateLabels(ctx context.Context, targetID, title, company string, at time.Time) error {
	return r.update(ctx, targetID, func(t *Target) {
		t.Title = title
		t.Company = company
		t.UpdatedAt = at
	})
}

func (r *MemoryRepo) SoftDelete(ctx context.Context, targetID string, at time.Time) error {
	return r.update(ctx, targetID, func(t *Target) {
		t.DeletedAt = &at
		t.UpdatedAt = at
	})
}

func (r *MemoryRepo) update(ctx context.Context, targetID string, fn func(*Target)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.data[targetID]
	if !ok || target.DeletedAt != nil {
		return apperr.NotFound("target")
	}
	fn(&target)
	r.data[targetID] = target
	return nil
}

var _ TargetsRepo = (*MemoryRepo)(nil)
