package ops

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores the workflow payloads. Each payload row belongs to
// exactly one activity and is looked up by that activity's id.
type Repository interface {
	CreateMovement(ctx context.Context, m *Movement) error
	MovementByActivity(ctx context.Context, activityID uuid.UUID) (*Movement, error)
	UpdateMovement(ctx context.Context, m *Movement) error

	CreateSwap(ctx context.Context, s *Swap) error
	SwapByActivity(ctx context.Context, activityID uuid.UUID) (*Swap, error)
	UpdateSwap(ctx context.Context, s *Swap) error

	CreatePlacement(ctx context.Context, p *Placement) error
	PlacementByActivity(ctx context.Context, activityID uuid.UUID) (*Placement, error)
	UpdatePlacement(ctx context.Context, p *Placement) error

	CreateDischarge(ctx context.Context, d *Discharge) error
	DischargeByActivity(ctx context.Context, activityID uuid.UUID) (*Discharge, error)
	UpdateDischarge(ctx context.Context, d *Discharge) error

	CreateAdmission(ctx context.Context, a *Admission) error
	AdmissionByActivity(ctx context.Context, activityID uuid.UUID) (*Admission, error)
	UpdateAdmission(ctx context.Context, a *Admission) error
}
