package ops

import (
	"context"

	"github.com/google/uuid"

	"github.com/nhflow/flow/internal/domain/activity"
	"github.com/nhflow/flow/internal/domain/location"
)

// dischargeData closes a patient's spell and records the exit movement.
// Cancelling a completed discharge reopens the spell and moves the patient
// back toward the bed they left.
type dischargeData struct {
	deps Deps
}

func NewDischargeData(deps Deps) activity.Data {
	return &dischargeData{deps: deps}
}

func (d *dischargeData) Model() string { return ModelDischarge }

func (d *dischargeData) Create(ctx context.Context, eng *activity.Engine, act *activity.Activity, vals activity.Values) error {
	pid, ok := vals.UUID("patient_id")
	if !ok {
		return activity.MissingFieldf("patient required for discharge")
	}

	dis := &Discharge{
		ID:         uuid.New(),
		ActivityID: act.ID,
		PatientID:  pid,
	}
	if dt, ok := vals.Time("discharge_date"); ok {
		dis.DischargeDate = &dt
	}
	if err := d.deps.Repo.CreateDischarge(ctx, dis); err != nil {
		return err
	}
	act.DataRef = dis.ID
	act.PatientID = &pid
	return nil
}

// Submit anchors the discharge under the patient's open spell and derives
// the pre-discharge location from it.
func (d *dischargeData) Submit(ctx context.Context, eng *activity.Engine, act *activity.Activity, vals activity.Values) error {
	dis, err := d.deps.Repo.DischargeByActivity(ctx, act.ID)
	if err != nil {
		return activity.NotFoundf("discharge payload for activity %s not found", act.ID)
	}

	spellAct, err := d.deps.Spells.GetByPatientID(ctx, dis.PatientID, activity.RaiseIfNotFound)
	if err != nil {
		return err
	}
	act.ParentID = &spellAct.ID

	sp, err := d.deps.Spells.PayloadByActivity(ctx, spellAct.ID)
	if err != nil {
		return err
	}
	dis.LocationID = sp.LocationID
	if dis.LocationID != nil {
		act.LocationID = dis.LocationID
	}
	if dt, ok := vals.Time("discharge_date"); ok {
		dis.DischargeDate = &dt
	}
	if err := d.deps.Repo.UpdateDischarge(ctx, dis); err != nil {
		return err
	}
	return eng.SubmitBase(ctx, act, vals)
}

func (d *dischargeData) Complete(ctx context.Context, eng *activity.Engine, act *activity.Activity) error {
	dis, err := d.deps.Repo.DischargeByActivity(ctx, act.ID)
	if err != nil {
		return activity.NotFoundf("discharge payload for activity %s not found", act.ID)
	}
	if act.ParentID == nil {
		return activity.Invariantf("discharge %s is not bound to a spell", act.ID)
	}
	spellActID := *act.ParentID

	if err := eng.CompleteBase(ctx, act); err != nil {
		return err
	}

	exitLoc, err := d.exitLocationID(ctx, spellActID)
	if err != nil {
		return err
	}

	sysCtx := activity.WithSystemActor(ctx)
	mvVals := activity.Values{"patient_id": dis.PatientID, "location_id": exitLoc}
	if dis.DischargeDate != nil {
		mvVals["move_datetime"] = *dis.DischargeDate
	}
	mvID, err := eng.Create(sysCtx, ModelMovement,
		activity.Refs{ParentID: &spellActID, CreatorID: &act.ID}, mvVals)
	if err != nil {
		return err
	}
	if err := eng.Complete(sysCtx, mvID); err != nil {
		return err
	}

	if err := eng.Complete(sysCtx, spellActID); err != nil {
		return err
	}
	if dis.DischargeDate != nil {
		spellAct, err := eng.Browse(ctx, spellActID)
		if err != nil {
			return err
		}
		if err := eng.StampTerminated(ctx, spellAct, *dis.DischargeDate); err != nil {
			return err
		}
	}
	return nil
}

// exitLocationID resolves the virtual discharge location by its configured
// code, falling back to the admitting point-of-service's default location.
func (d *dischargeData) exitLocationID(ctx context.Context, spellActID uuid.UUID) (uuid.UUID, error) {
	loc, err := d.deps.Dir.GetByCode(ctx, d.deps.DischargeLocationCode)
	if err != nil {
		return uuid.Nil, err
	}
	if loc != nil {
		return loc.ID, nil
	}
	sp, err := d.deps.Spells.PayloadByActivity(ctx, spellActID)
	if err != nil {
		return uuid.Nil, err
	}
	if sp.POSID == nil {
		return uuid.Nil, activity.NotFoundf("no discharge location configured and spell has no point of service")
	}
	pos, err := d.deps.Dir.POSByID(ctx, *sp.POSID)
	if err != nil {
		return uuid.Nil, err
	}
	return pos.LocationID, nil
}

// Cancel reopens the spell and moves the patient back to the bed they were
// discharged from, or to its ward when the bed is gone.
func (d *dischargeData) Cancel(ctx context.Context, eng *activity.Engine, act *activity.Activity) error {
	dis, err := d.deps.Repo.DischargeByActivity(ctx, act.ID)
	if err != nil {
		return activity.NotFoundf("discharge payload for activity %s not found", act.ID)
	}
	// A pending discharge never closed the spell, so cancelling it needs no
	// reopening cascade.
	if act.State != activity.StateCompleted {
		return eng.CancelBase(ctx, act)
	}
	if _, err := LastAdmission(ctx, eng, dis.PatientID, activity.RaiseIfFound); err != nil {
		return err
	}
	if err := eng.RevokeBase(ctx, act); err != nil {
		return err
	}
	if act.ParentID == nil {
		return activity.Invariantf("discharge %s is not bound to a spell", act.ID)
	}
	spellAct, err := eng.Browse(ctx, *act.ParentID)
	if err != nil {
		return err
	}
	if err := eng.ReopenBase(ctx, spellAct); err != nil {
		return err
	}

	if dis.LocationID == nil {
		return nil
	}
	prior := *dis.LocationID

	sysCtx := activity.WithSystemActor(ctx)
	available, err := d.deps.Dir.IsAvailable(ctx, prior)
	if err != nil {
		return err
	}
	if available {
		return d.moveBack(sysCtx, eng, act, spellAct.ID, dis, prior)
	}

	loc, err := d.deps.Dir.Get(ctx, prior)
	if err != nil {
		return err
	}
	wardID := loc.ID
	if loc.Usage != location.UsageWard {
		wardID, err = d.deps.Dir.ClosestParentID(ctx, prior, location.UsageWard)
		if err != nil {
			return err
		}
	}
	if err := d.moveBack(sysCtx, eng, act, spellAct.ID, dis, wardID); err != nil {
		return err
	}
	eng.TriggerPolicy(ctx, wardID)
	return nil
}

// moveBack records the return movement, dated with the discharge's own
// effective date when one was given.
func (d *dischargeData) moveBack(ctx context.Context, eng *activity.Engine, act *activity.Activity, spellActID uuid.UUID, dis *Discharge, locationID uuid.UUID) error {
	vals := activity.Values{"patient_id": dis.PatientID, "location_id": locationID}
	if dis.DischargeDate != nil {
		vals["move_datetime"] = *dis.DischargeDate
	}
	mvID, err := eng.Create(ctx, ModelMovement,
		activity.Refs{ParentID: &spellActID, CreatorID: &act.ID}, vals)
	if err != nil {
		return err
	}
	return eng.Complete(ctx, mvID)
}

// LastDischarge returns the most recent completed discharge whose spell is
// also completed. The expect flag turns presence or absence into an error.
func LastDischarge(ctx context.Context, eng *activity.Engine, patientID uuid.UUID, expect activity.Expect) (*activity.Activity, error) {
	acts, err := eng.Search(ctx, activity.Filter{
		DataModel:    ModelDischarge,
		PatientID:    &patientID,
		States:       []activity.State{activity.StateCompleted},
		ParentStates: []activity.State{activity.StateCompleted},
	}, activity.OrderTerminatedDesc)
	if err != nil {
		return nil, err
	}

	switch expect {
	case activity.RaiseIfFound:
		if len(acts) > 0 {
			return nil, activity.Invariantf("patient %s is already discharged", patientID)
		}
		return nil, nil
	case activity.RaiseIfNotFound:
		if len(acts) == 0 {
			return nil, activity.NotFoundf("no discharge found for patient %s", patientID)
		}
	}
	if len(acts) == 0 {
		return nil, nil
	}
	return acts[0], nil
}
