package spell

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nhflow/flow/internal/domain/activity"
)

// dataType is the spell workflow variant. A spell carries no completion
// cascade of its own: admissions start it, discharges complete it, and
// movements inside it keep its location mirror current through submit.
type dataType struct {
	repo Repository
}

func NewData(repo Repository) activity.Data {
	return &dataType{repo: repo}
}

func (d *dataType) Model() string { return Model }

func (d *dataType) Create(ctx context.Context, eng *activity.Engine, act *activity.Activity, vals activity.Values) error {
	pid, ok := vals.UUID("patient_id")
	if !ok {
		return activity.MissingFieldf("spell requires a patient_id")
	}

	s := &Spell{
		ID:         uuid.New(),
		ActivityID: act.ID,
		PatientID:  pid,
		StartDate:  time.Now().UTC(),
	}
	if start, ok := vals.Time("start_date"); ok {
		s.StartDate = start
	}
	if posID, ok := vals.UUID("pos_id"); ok {
		s.POSID = &posID
	}
	if code, ok := vals.String("code"); ok {
		s.Code = &code
	}
	if ids, ok := vals.UUIDSlice("ref_doctor_ids"); ok {
		s.RefDoctorIDs = ids
	}
	if ids, ok := vals.UUIDSlice("con_doctor_ids"); ok {
		s.ConDoctorIDs = ids
	}
	if lid, ok := vals.UUID("location_id"); ok {
		s.LocationID = &lid
		act.LocationID = &lid
	}

	if err := d.repo.Create(ctx, s); err != nil {
		return err
	}
	act.DataRef = s.ID
	act.PatientID = &pid
	return nil
}

func (d *dataType) Submit(ctx context.Context, eng *activity.Engine, act *activity.Activity, vals activity.Values) error {
	s, err := d.repo.GetByActivityID(ctx, act.ID)
	if err != nil {
		return activity.NotFoundf("spell payload for activity %s not found", act.ID)
	}
	if lid, ok := vals.UUID("location_id"); ok {
		s.LocationID = &lid
	}
	if code, ok := vals.String("code"); ok {
		s.Code = &code
	}
	if start, ok := vals.Time("start_date"); ok {
		s.StartDate = start
	}
	if err := d.repo.Update(ctx, s); err != nil {
		return err
	}
	return eng.SubmitBase(ctx, act, vals)
}

func (d *dataType) Complete(ctx context.Context, eng *activity.Engine, act *activity.Activity) error {
	return eng.CompleteBase(ctx, act)
}

func (d *dataType) Cancel(ctx context.Context, eng *activity.Engine, act *activity.Activity) error {
	return eng.CancelBase(ctx, act)
}
