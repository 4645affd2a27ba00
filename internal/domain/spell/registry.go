package spell

import (
	"context"

	"github.com/google/uuid"

	"github.com/nhflow/flow/internal/domain/activity"
)

// Registry answers the spell lookups the flow workflows depend on. The open
// spell of a patient is the single started spell activity for that patient;
// every admission, movement and discharge anchors itself to it.
type Registry struct {
	eng  *activity.Engine
	repo Repository
}

func NewRegistry(eng *activity.Engine, repo Repository) *Registry {
	return &Registry{eng: eng, repo: repo}
}

// GetByPatientID returns the patient's open spell activity, nil when there
// is none. The expect flag turns presence or absence into an error.
func (r *Registry) GetByPatientID(ctx context.Context, patientID uuid.UUID, expect activity.Expect) (*activity.Activity, error) {
	acts, err := r.eng.Search(ctx, activity.Filter{
		DataModel: Model,
		PatientID: &patientID,
		States:    []activity.State{activity.StateStarted},
	}, activity.OrderSequenceDesc)
	if err != nil {
		return nil, err
	}

	switch expect {
	case activity.RaiseIfFound:
		if len(acts) > 0 {
			return nil, activity.Invariantf("patient %s is already admitted", patientID)
		}
		return nil, nil
	case activity.RaiseIfNotFound:
		if len(acts) == 0 {
			return nil, activity.NotFoundf("no open spell found for patient %s", patientID)
		}
	}
	if len(acts) == 0 {
		return nil, nil
	}
	return acts[0], nil
}

// PayloadByActivity loads the spell payload behind a spell activity.
func (r *Registry) PayloadByActivity(ctx context.Context, activityID uuid.UUID) (*Spell, error) {
	s, err := r.repo.GetByActivityID(ctx, activityID)
	if err != nil {
		return nil, activity.NotFoundf("spell payload for activity %s not found", activityID)
	}
	return s, nil
}
