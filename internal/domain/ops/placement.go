package ops

import (
	"context"

	"github.com/google/uuid"

	"github.com/nhflow/flow/internal/domain/activity"
)

// placementData assigns a destination bed to an admitted patient waiting in
// a holding location.
type placementData struct {
	deps Deps
}

func NewPlacementData(deps Deps) activity.Data {
	return &placementData{deps: deps}
}

func (d *placementData) Model() string { return ModelPlacement }

// Create enforces the single-open-placement rule: every other non-terminal
// placement for the patient is cancelled before this one exists.
func (d *placementData) Create(ctx context.Context, eng *activity.Engine, act *activity.Activity, vals activity.Values) error {
	pid, ok := vals.UUID("patient_id")
	if !ok {
		return activity.MissingFieldf("placement requires a patient_id")
	}
	suggested, ok := vals.UUID("suggested_location_id")
	if !ok {
		return activity.MissingFieldf("placement requires a suggested_location_id")
	}

	open, err := eng.Search(ctx, activity.Filter{
		DataModel: ModelPlacement,
		PatientID: &pid,
		NotStates: []activity.State{activity.StateCompleted, activity.StateCancelled},
	}, activity.OrderSequenceAsc)
	if err != nil {
		return err
	}
	sysCtx := activity.WithSystemActor(ctx)
	for _, other := range open {
		if other.ID == act.ID {
			continue
		}
		if err := eng.Cancel(sysCtx, other.ID); err != nil {
			return err
		}
	}

	p := &Placement{
		ID:                  uuid.New(),
		ActivityID:          act.ID,
		PatientID:           pid,
		SuggestedLocationID: suggested,
	}
	if lid, ok := vals.UUID("location_id"); ok {
		p.LocationID = &lid
		act.LocationID = &lid
	}
	if reason, ok := vals.String("reason"); ok {
		p.Reason = &reason
	}
	if err := d.deps.Repo.CreatePlacement(ctx, p); err != nil {
		return err
	}
	act.DataRef = p.ID
	act.PatientID = &pid
	return nil
}

// Submit re-checks availability of the chosen bed; the bed can have been
// taken between suggestion and submission.
func (d *placementData) Submit(ctx context.Context, eng *activity.Engine, act *activity.Activity, vals activity.Values) error {
	p, err := d.deps.Repo.PlacementByActivity(ctx, act.ID)
	if err != nil {
		return activity.NotFoundf("placement payload for activity %s not found", act.ID)
	}
	if lid, ok := vals.UUID("location_id"); ok {
		available, err := d.deps.Dir.IsAvailable(ctx, lid)
		if err != nil {
			return err
		}
		if !available {
			return activity.Invariantf("location %s is not available", lid)
		}
		p.LocationID = &lid
	}
	if reason, ok := vals.String("reason"); ok {
		p.Reason = &reason
	}
	if err := d.deps.Repo.UpdatePlacement(ctx, p); err != nil {
		return err
	}
	return eng.SubmitBase(ctx, act, vals)
}

func (d *placementData) Complete(ctx context.Context, eng *activity.Engine, act *activity.Activity) error {
	p, err := d.deps.Repo.PlacementByActivity(ctx, act.ID)
	if err != nil {
		return activity.NotFoundf("placement payload for activity %s not found", act.ID)
	}
	if p.LocationID == nil {
		return activity.MissingFieldf("placement %s cannot be completed without a location", act.ID)
	}
	spellAct, err := d.deps.Spells.GetByPatientID(ctx, p.PatientID, activity.RaiseIfNotFound)
	if err != nil {
		return err
	}
	if err := eng.CompleteBase(ctx, act); err != nil {
		return err
	}

	sysCtx := activity.WithSystemActor(ctx)
	mvID, err := eng.Create(sysCtx, ModelMovement,
		activity.Refs{ParentID: &spellAct.ID, CreatorID: &act.ID},
		activity.Values{"patient_id": p.PatientID, "location_id": *p.LocationID})
	if err != nil {
		return err
	}
	if err := eng.Complete(sysCtx, mvID); err != nil {
		return err
	}
	if err := eng.Submit(sysCtx, spellAct.ID, activity.Values{"location_id": *p.LocationID}); err != nil {
		return err
	}
	eng.TriggerPolicy(ctx, *p.LocationID)
	return nil
}

func (d *placementData) Cancel(ctx context.Context, eng *activity.Engine, act *activity.Activity) error {
	return eng.CancelBase(ctx, act)
}

// FormField describes a single selectable field on the placement form.
type FormField struct {
	Name    string      `json:"name"`
	Options []uuid.UUID `json:"options"`
}

// PlacementForm lists the available destination beds under the suggested
// location of the patient's most recent open placement. Read-only.
func PlacementForm(ctx context.Context, eng *activity.Engine, deps Deps, patientID uuid.UUID) (*FormField, error) {
	acts, err := eng.Search(ctx, activity.Filter{
		DataModel: ModelPlacement,
		PatientID: &patientID,
		NotStates: []activity.State{activity.StateCompleted, activity.StateCancelled},
	}, activity.OrderSequenceDesc)
	if err != nil {
		return nil, err
	}
	if len(acts) == 0 {
		return nil, activity.NotFoundf("no open placement found for patient %s", patientID)
	}
	p, err := deps.Repo.PlacementByActivity(ctx, acts[0].ID)
	if err != nil {
		return nil, err
	}
	beds, err := deps.Dir.AvailableBedsUnder(ctx, p.SuggestedLocationID)
	if err != nil {
		return nil, err
	}
	field := &FormField{Name: "location_id"}
	for _, b := range beds {
		field.Options = append(field.Options, b.ID)
	}
	return field, nil
}
