package spell

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *Spell) error
	GetByID(ctx context.Context, id uuid.UUID) (*Spell, error)
	GetByActivityID(ctx context.Context, activityID uuid.UUID) (*Spell, error)
	Update(ctx context.Context, s *Spell) error
}
