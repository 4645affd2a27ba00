package ops

import (
	"context"

	"github.com/google/uuid"

	"github.com/nhflow/flow/internal/domain/activity"
	"github.com/nhflow/flow/internal/domain/location"
)

// swapData exchanges the occupants of two beds in the same ward. Cross-ward
// moves go through the transfer path, not a swap.
type swapData struct {
	deps Deps
}

func NewSwapData(deps Deps) activity.Data {
	return &swapData{deps: deps}
}

func (d *swapData) Model() string { return ModelSwap }

func (d *swapData) Create(ctx context.Context, eng *activity.Engine, act *activity.Activity, vals activity.Values) error {
	loc1, ok := vals.UUID("location1_id")
	if !ok {
		return activity.MissingFieldf("swap requires location1_id")
	}
	loc2, ok := vals.UUID("location2_id")
	if !ok {
		return activity.MissingFieldf("swap requires location2_id")
	}

	s := &Swap{
		ID:          uuid.New(),
		ActivityID:  act.ID,
		Location1ID: loc1,
		Location2ID: loc2,
	}
	if err := d.deps.Repo.CreateSwap(ctx, s); err != nil {
		return err
	}
	act.DataRef = s.ID
	return nil
}

func (d *swapData) Submit(ctx context.Context, eng *activity.Engine, act *activity.Activity, vals activity.Values) error {
	s, err := d.deps.Repo.SwapByActivity(ctx, act.ID)
	if err != nil {
		return activity.NotFoundf("swap payload for activity %s not found", act.ID)
	}
	if lid, ok := vals.UUID("location1_id"); ok {
		s.Location1ID = lid
	}
	if lid, ok := vals.UUID("location2_id"); ok {
		s.Location2ID = lid
	}
	if err := d.deps.Repo.UpdateSwap(ctx, s); err != nil {
		return err
	}
	if err := eng.SubmitBase(ctx, act, vals); err != nil {
		return err
	}
	return d.validate(ctx, s)
}

func (d *swapData) validate(ctx context.Context, s *Swap) error {
	for _, id := range []uuid.UUID{s.Location1ID, s.Location2ID} {
		loc, err := d.deps.Dir.Get(ctx, id)
		if err != nil {
			return err
		}
		if loc.Usage != location.UsageBed {
			return activity.Invariantf("location %s is not a bed", loc.Name)
		}
		occ, err := d.deps.Dir.Occupants(ctx, id)
		if err != nil {
			return err
		}
		if len(occ) == 0 {
			return activity.Invariantf("no patient in location %s", loc.Name)
		}
	}

	ward1, err := d.deps.Dir.ClosestParentID(ctx, s.Location1ID, location.UsageWard)
	if err != nil {
		return err
	}
	ward2, err := d.deps.Dir.ClosestParentID(ctx, s.Location2ID, location.UsageWard)
	if err != nil {
		return err
	}
	if ward1 != ward2 {
		return activity.Invariantf("cannot swap patients in different wards")
	}
	return nil
}

// Complete moves each occupant to the other bed through two movements that
// commit together with the swap itself.
func (d *swapData) Complete(ctx context.Context, eng *activity.Engine, act *activity.Activity) error {
	s, err := d.deps.Repo.SwapByActivity(ctx, act.ID)
	if err != nil {
		return activity.NotFoundf("swap payload for activity %s not found", act.ID)
	}
	if err := d.validate(ctx, s); err != nil {
		return err
	}

	occ1, err := d.deps.Dir.Occupants(ctx, s.Location1ID)
	if err != nil {
		return err
	}
	occ2, err := d.deps.Dir.Occupants(ctx, s.Location2ID)
	if err != nil {
		return err
	}
	patient1, patient2 := occ1[0], occ2[0]

	sysCtx := activity.WithSystemActor(ctx)
	if err := d.moveTo(sysCtx, eng, act, patient1, s.Location2ID); err != nil {
		return err
	}
	if err := d.moveTo(sysCtx, eng, act, patient2, s.Location1ID); err != nil {
		return err
	}
	return eng.CompleteBase(ctx, act)
}

func (d *swapData) moveTo(ctx context.Context, eng *activity.Engine, act *activity.Activity, patientID, locationID uuid.UUID) error {
	spellAct, err := d.deps.Spells.GetByPatientID(ctx, patientID, activity.RaiseIfNotFound)
	if err != nil {
		return err
	}
	mvID, err := eng.Create(ctx, ModelMovement,
		activity.Refs{ParentID: &spellAct.ID, CreatorID: &act.ID},
		activity.Values{"patient_id": patientID, "location_id": locationID})
	if err != nil {
		return err
	}
	return eng.Complete(ctx, mvID)
}

func (d *swapData) Cancel(ctx context.Context, eng *activity.Engine, act *activity.Activity) error {
	return eng.CancelBase(ctx, act)
}
