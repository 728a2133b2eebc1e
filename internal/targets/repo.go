package targets

import (
	"context"
	"time"
)

// TargetsRepo defines persistence operations for targets.
// Reads never return soft-deleted rows.
type TargetsRepo interface {
	Create(ctx context.Context, target Target) error
	GetByID(ctx context.Context, targetID string) (Target, error)
	ListByUser(ctx context.Context, userId string, limit, offset int) ([]Target, error)
	UpdateText(ctx context.Context, targetID, content string, at time.Time) error
	UpdateLabels(ctx context.Context, targetID, title, company string, at time.Time) error
	SoftDelete(ctx context.Context, targetID string, at time.Time) error
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
