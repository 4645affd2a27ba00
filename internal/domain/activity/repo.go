package activity

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the activity and assigns its monotonic sequence.
	Create(ctx context.Context, act *Activity) error
	Get(ctx context.Context, id uuid.UUID) (*Activity, error)
	Update(ctx context.Context, act *Activity) error
	Search(ctx context.Context, f Filter, order Order) ([]*Activity, error)
}
