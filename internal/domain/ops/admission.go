package ops

import (
	"context"

	"github.com/google/uuid"

	"github.com/nhflow/flow/internal/domain/activity"
	"github.com/nhflow/flow/internal/domain/spell"
)

// admissionData opens a hospital visit: its completion creates and starts
// the spell the rest of the stay hangs off.
type admissionData struct {
	deps Deps
}

func NewAdmissionData(deps Deps) activity.Data {
	return &admissionData{deps: deps}
}

func (d *admissionData) Model() string { return ModelAdmission }

func (d *admissionData) Create(ctx context.Context, eng *activity.Engine, act *activity.Activity, vals activity.Values) error {
	pid, ok := vals.UUID("patient_id")
	if !ok {
		return activity.MissingFieldf("patient required for admission")
	}
	posID, ok := vals.UUID("pos_id")
	if !ok {
		return activity.MissingFieldf("admission requires a pos_id")
	}
	lid, ok := vals.UUID("location_id")
	if !ok {
		return activity.MissingFieldf("admission requires a location_id")
	}

	a := &Admission{
		ID:         uuid.New(),
		ActivityID: act.ID,
		PatientID:  pid,
		POSID:      posID,
		LocationID: lid,
	}
	if code, ok := vals.String("code"); ok {
		a.Code = &code
	}
	if dt, ok := vals.Time("start_date"); ok {
		a.StartDate = &dt
	}
	if ids, ok := vals.UUIDSlice("ref_doctor_ids"); ok {
		a.RefDoctorIDs = ids
	}
	if ids, ok := vals.UUIDSlice("con_doctor_ids"); ok {
		a.ConDoctorIDs = ids
	}
	if err := d.deps.Repo.CreateAdmission(ctx, a); err != nil {
		return err
	}
	act.DataRef = a.ID
	act.PatientID = &pid
	act.LocationID = &lid
	return nil
}

// Submit rejects admission of a patient who already has an open spell.
func (d *admissionData) Submit(ctx context.Context, eng *activity.Engine, act *activity.Activity, vals activity.Values) error {
	a, err := d.deps.Repo.AdmissionByActivity(ctx, act.ID)
	if err != nil {
		return activity.NotFoundf("admission payload for activity %s not found", act.ID)
	}
	if _, err := d.deps.Spells.GetByPatientID(ctx, a.PatientID, activity.RaiseIfFound); err != nil {
		return err
	}

	if lid, ok := vals.UUID("location_id"); ok {
		a.LocationID = lid
	}
	if code, ok := vals.String("code"); ok {
		a.Code = &code
	}
	if dt, ok := vals.Time("start_date"); ok {
		a.StartDate = &dt
	}
	if ids, ok := vals.UUIDSlice("ref_doctor_ids"); ok {
		a.RefDoctorIDs = ids
	}
	if ids, ok := vals.UUIDSlice("con_doctor_ids"); ok {
		a.ConDoctorIDs = ids
	}
	if err := d.deps.Repo.UpdateAdmission(ctx, a); err != nil {
		return err
	}
	return eng.SubmitBase(ctx, act, vals)
}

func (d *admissionData) Complete(ctx context.Context, eng *activity.Engine, act *activity.Activity) error {
	a, err := d.deps.Repo.AdmissionByActivity(ctx, act.ID)
	if err != nil {
		return activity.NotFoundf("admission payload for activity %s not found", act.ID)
	}
	if _, err := d.deps.Spells.GetByPatientID(ctx, a.PatientID, activity.RaiseIfFound); err != nil {
		return err
	}
	if err := eng.CompleteBase(ctx, act); err != nil {
		return err
	}

	sysCtx := activity.WithSystemActor(ctx)
	spellVals := activity.Values{
		"patient_id":  a.PatientID,
		"pos_id":      a.POSID,
		"location_id": a.LocationID,
	}
	if a.Code != nil {
		spellVals["code"] = *a.Code
	}
	if a.StartDate != nil {
		spellVals["start_date"] = *a.StartDate
	}
	if len(a.RefDoctorIDs) > 0 {
		spellVals["ref_doctor_ids"] = a.RefDoctorIDs
	}
	if len(a.ConDoctorIDs) > 0 {
		spellVals["con_doctor_ids"] = a.ConDoctorIDs
	}
	spellActID, err := eng.Create(sysCtx, spell.Model, activity.Refs{CreatorID: &act.ID}, spellVals)
	if err != nil {
		return err
	}
	if err := eng.Start(sysCtx, spellActID); err != nil {
		return err
	}
	if err := eng.SetParent(ctx, act, spellActID); err != nil {
		return err
	}

	mvVals := activity.Values{"patient_id": a.PatientID, "location_id": a.LocationID}
	if a.StartDate != nil {
		mvVals["move_datetime"] = *a.StartDate
	}
	mvID, err := eng.Create(sysCtx, ModelMovement,
		activity.Refs{ParentID: &spellActID, CreatorID: &act.ID}, mvVals)
	if err != nil {
		return err
	}
	if err := eng.Complete(sysCtx, mvID); err != nil {
		return err
	}
	eng.TriggerPolicy(ctx, a.LocationID)
	return nil
}

// Cancel aborts the admission and cancels every open activity left in the
// spell subtree, the spell included.
func (d *admissionData) Cancel(ctx context.Context, eng *activity.Engine, act *activity.Activity) error {
	if err := eng.CancelBase(ctx, act); err != nil {
		return err
	}
	if act.ParentID == nil {
		return nil
	}

	open, err := eng.Search(ctx, activity.Filter{
		ChildOf:   act.ParentID,
		NotStates: []activity.State{activity.StateCompleted, activity.StateCancelled},
	}, activity.OrderSequenceAsc)
	if err != nil {
		return err
	}
	sysCtx := activity.WithSystemActor(ctx)
	for _, child := range open {
		if err := eng.Cancel(sysCtx, child.ID); err != nil {
			return err
		}
	}
	return nil
}

// LastAdmission returns the most recent completed admission whose spell is
// still started. The expect flag turns presence or absence into an error.
func LastAdmission(ctx context.Context, eng *activity.Engine, patientID uuid.UUID, expect activity.Expect) (*activity.Activity, error) {
	acts, err := eng.Search(ctx, activity.Filter{
		DataModel:    ModelAdmission,
		PatientID:    &patientID,
		States:       []activity.State{activity.StateCompleted},
		ParentStates: []activity.State{activity.StateStarted},
	}, activity.OrderTerminatedDesc)
	if err != nil {
		return nil, err
	}

	switch expect {
	case activity.RaiseIfFound:
		if len(acts) > 0 {
			return nil, activity.Invariantf("patient %s already has an active admission", patientID)
		}
		return nil, nil
	case activity.RaiseIfNotFound:
		if len(acts) == 0 {
			return nil, activity.NotFoundf("no active admission found for patient %s", patientID)
		}
	}
	if len(acts) == 0 {
		return nil, nil
	}
	return acts[0], nil
}
