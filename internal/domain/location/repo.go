package location

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, loc *Location) error
	GetByID(ctx context.Context, id uuid.UUID) (*Location, error)
	GetByCode(ctx context.Context, code string) (*Location, error)
	Update(ctx context.Context, loc *Location) error
	List(ctx context.Context, limit, offset int) ([]*Location, int, error)
	// DescendantBeds returns every active bed-usage location in the
	// subtree rooted at rootID (inclusive). A nil root means the whole
	// tree.
	DescendantBeds(ctx context.Context, rootID *uuid.UUID) ([]*Location, error)
	// Occupants returns the ids of patients whose current location is the
	// given one.
	Occupants(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)

	// POS records
	CreatePOS(ctx context.Context, pos *POS) error
	GetPOS(ctx context.Context, id uuid.UUID) (*POS, error)
}
