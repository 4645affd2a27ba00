package ops

import (
	"context"

	"github.com/google/uuid"

	"github.com/nhflow/flow/internal/domain/activity"
	"github.com/nhflow/flow/internal/domain/location"
	"github.com/nhflow/flow/internal/domain/patient"
	"github.com/nhflow/flow/internal/domain/spell"
)

// LocationDirectory is the slice of the location tree the workflows need:
// ancestry, occupancy and bed availability. Satisfied by location.Directory.
type LocationDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*location.Location, error)
	GetByCode(ctx context.Context, code string) (*location.Location, error)
	ClosestParentID(ctx context.Context, id uuid.UUID, usage location.Usage) (uuid.UUID, error)
	Occupants(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	IsAvailable(ctx context.Context, id uuid.UUID) (bool, error)
	AvailableBedsUnder(ctx context.Context, rootID uuid.UUID) ([]*location.Location, error)
	POSByID(ctx context.Context, id uuid.UUID) (*location.POS, error)
}

// PatientRegistry is satisfied by patient.Service.
type PatientRegistry interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	SetCurrentLocation(ctx context.Context, patientID, locationID uuid.UUID) error
}

// SpellRegistry is satisfied by spell.Registry.
type SpellRegistry interface {
	GetByPatientID(ctx context.Context, patientID uuid.UUID, expect activity.Expect) (*activity.Activity, error)
	PayloadByActivity(ctx context.Context, activityID uuid.UUID) (*spell.Spell, error)
}

// Deps bundles the collaborators shared by every workflow variant.
type Deps struct {
	Repo     Repository
	Dir      LocationDirectory
	Patients PatientRegistry
	Spells   SpellRegistry
	// DischargeLocationCode is the code of the virtual location discharged
	// patients are moved to.
	DischargeLocationCode string
}

// Register wires all five patient-flow workflow variants into the engine.
func Register(eng *activity.Engine, deps Deps) {
	eng.Register(NewMovementData(deps))
	eng.Register(NewSwapData(deps))
	eng.Register(NewPlacementData(deps))
	eng.Register(NewDischargeData(deps))
	eng.Register(NewAdmissionData(deps))
}
