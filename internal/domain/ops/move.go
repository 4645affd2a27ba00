package ops

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nhflow/flow/internal/domain/activity"
)

// movementData is the relocation audit workflow. Completion is the only
// place the patient's current location is written.
type movementData struct {
	deps Deps
}

func NewMovementData(deps Deps) activity.Data {
	return &movementData{deps: deps}
}

func (d *movementData) Model() string { return ModelMovement }

func (d *movementData) Create(ctx context.Context, eng *activity.Engine, act *activity.Activity, vals activity.Values) error {
	pid, ok := vals.UUID("patient_id")
	if !ok {
		return activity.MissingFieldf("movement requires a patient_id")
	}

	m := &Movement{
		ID:         uuid.New(),
		ActivityID: act.ID,
		PatientID:  pid,
	}
	if lid, ok := vals.UUID("location_id"); ok {
		m.LocationID = &lid
		act.LocationID = &lid
	}
	if reason, ok := vals.String("reason"); ok {
		m.Reason = &reason
	}
	if dt, ok := vals.Time("move_datetime"); ok {
		m.MoveDatetime = &dt
	}

	if err := d.deps.Repo.CreateMovement(ctx, m); err != nil {
		return err
	}
	act.DataRef = m.ID
	act.PatientID = &pid
	return nil
}

// Submit binds the movement under the patient's open spell when the caller
// did not set a parent explicitly. Absence of an open spell is tolerated:
// the movement simply stays parentless.
func (d *movementData) Submit(ctx context.Context, eng *activity.Engine, act *activity.Activity, vals activity.Values) error {
	m, err := d.deps.Repo.MovementByActivity(ctx, act.ID)
	if err != nil {
		return activity.NotFoundf("movement payload for activity %s not found", act.ID)
	}

	if act.ParentID == nil {
		spellAct, err := d.deps.Spells.GetByPatientID(ctx, m.PatientID, activity.NoCheck)
		if err != nil {
			return err
		}
		if spellAct != nil {
			act.ParentID = &spellAct.ID
		}
	}

	if lid, ok := vals.UUID("location_id"); ok {
		m.LocationID = &lid
	}
	if reason, ok := vals.String("reason"); ok {
		m.Reason = &reason
	}
	if dt, ok := vals.Time("move_datetime"); ok {
		m.MoveDatetime = &dt
	}
	if err := d.deps.Repo.UpdateMovement(ctx, m); err != nil {
		return err
	}
	return eng.SubmitBase(ctx, act, vals)
}

func (d *movementData) Complete(ctx context.Context, eng *activity.Engine, act *activity.Activity) error {
	m, err := d.deps.Repo.MovementByActivity(ctx, act.ID)
	if err != nil {
		return activity.NotFoundf("movement payload for activity %s not found", act.ID)
	}
	if m.LocationID == nil {
		return activity.MissingFieldf("no destination location for movement %s", act.ID)
	}

	// The previous completed movement's destination becomes this one's
	// origin, forming the audit chain.
	prev, err := d.lastCompleted(ctx, eng, m.PatientID)
	if err != nil {
		return err
	}
	if prev != nil {
		m.FromLocationID = prev.LocationID
	}

	if err := d.deps.Patients.SetCurrentLocation(ctx, m.PatientID, *m.LocationID); err != nil {
		return err
	}
	if act.ParentID != nil {
		if err := eng.Submit(ctx, *act.ParentID, activity.Values{"location_id": *m.LocationID}); err != nil {
			return err
		}
	}
	if err := eng.CompleteBase(ctx, act); err != nil {
		return err
	}
	// Default timestamping happens after the base transition so it never
	// races the finalize step.
	if m.MoveDatetime == nil {
		now := time.Now().UTC()
		m.MoveDatetime = &now
	}
	return d.deps.Repo.UpdateMovement(ctx, m)
}

func (d *movementData) Cancel(ctx context.Context, eng *activity.Engine, act *activity.Activity) error {
	return eng.CancelBase(ctx, act)
}

func (d *movementData) lastCompleted(ctx context.Context, eng *activity.Engine, patientID uuid.UUID) (*Movement, error) {
	acts, err := eng.Search(ctx, activity.Filter{
		DataModel: ModelMovement,
		PatientID: &patientID,
		States:    []activity.State{activity.StateCompleted},
	}, activity.OrderSequenceDesc)
	if err != nil {
		return nil, err
	}
	if len(acts) == 0 {
		return nil, nil
	}
	return d.deps.Repo.MovementByActivity(ctx, acts[0].ID)
}
