package opportunity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for opportunity persistence
type Repository interface {
	// Upsert writes opportunities keyed by (keyword, type). Existing rows keep
	// their ID and creation time; updated_at is set to at.
	Upsert(ctx context.Context, opps []Opportunity, at time.Time) error

	// RetireStale dismisses active opportunities of a type not refreshed since before
	RetireStale(ctx context.Context, typ Type, before time.Time) (int64, error)

	// List retrieves opportunities matching the filter ordered by score
	List(ctx context.Context, filter Filter) ([]Opportunity, error)

	// CountByType counts opportunities with the given status per type
	CountByType(ctx context.Context, status Status) (map[Type]int64, error)

	// Dismiss marks an opportunity as dismissed by a user
	Dismiss(ctx context.Context, id uuid.UUID) error
}
