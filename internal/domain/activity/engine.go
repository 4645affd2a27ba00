package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Data is a workflow variant riding on the activity chassis. The set of
// variants is closed and registered by data-model tag; the engine dispatches
// lifecycle calls to the variant, which layers validation before and
// cascading effects after the base transition it must call through to.
type Data interface {
	Model() string
	// Create builds the workflow payload for a freshly inserted activity,
	// sets act.DataRef and the denormalized search fields, and runs any
	// creation-time invariant enforcement.
	Create(ctx context.Context, eng *Engine, act *Activity, vals Values) error
	Submit(ctx context.Context, eng *Engine, act *Activity, vals Values) error
	Complete(ctx context.Context, eng *Engine, act *Activity) error
	Cancel(ctx context.Context, eng *Engine, act *Activity) error
}

// PolicyTrigger launches follow-on clinical protocol activities after
// certain completions. Implementations are external; the engine never
// relies on a return value.
type PolicyTrigger interface {
	Trigger(ctx context.Context, locationID uuid.UUID) error
}

// PolicyFunc adapts a function to the PolicyTrigger interface.
type PolicyFunc func(ctx context.Context, locationID uuid.UUID) error

func (f PolicyFunc) Trigger(ctx context.Context, locationID uuid.UUID) error {
	return f(ctx, locationID)
}

// Engine is the generic lifecycle state machine for clinical activities.
type Engine struct {
	repo   Repository
	types  map[string]Data
	policy PolicyTrigger
	log    zerolog.Logger
}

func NewEngine(repo Repository, log zerolog.Logger) *Engine {
	return &Engine{
		repo:  repo,
		types: make(map[string]Data),
		log:   log,
	}
}

// Register adds a workflow variant to the closed dispatch set.
func (e *Engine) Register(d Data) {
	e.types[d.Model()] = d
}

// SetPolicyTrigger installs the follow-on policy hook. Without one,
// TriggerPolicy logs and does nothing.
func (e *Engine) SetPolicyTrigger(p PolicyTrigger) {
	e.policy = p
}

func (e *Engine) data(model string) (Data, error) {
	d, ok := e.types[model]
	if !ok {
		return nil, fmt.Errorf("unknown activity data model %q", model)
	}
	return d, nil
}

// Create inserts a new activity of the given data model, then asks the
// variant to build its payload and run creation-time enforcement. Returns
// the new activity id.
func (e *Engine) Create(ctx context.Context, model string, refs Refs, vals Values) (uuid.UUID, error) {
	d, err := e.data(model)
	if err != nil {
		return uuid.Nil, err
	}

	act := &Activity{
		ID:        uuid.New(),
		DataModel: model,
		State:     StateDraft,
		ParentID:  refs.ParentID,
		CreatorID: refs.CreatorID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if pid, ok := vals.UUID("patient_id"); ok {
		act.PatientID = &pid
	}
	if err := e.repo.Create(ctx, act); err != nil {
		return uuid.Nil, fmt.Errorf("create activity: %w", err)
	}
	if err := d.Create(ctx, e, act, vals); err != nil {
		return uuid.Nil, err
	}
	if err := e.repo.Update(ctx, act); err != nil {
		return uuid.Nil, fmt.Errorf("bind activity payload: %w", err)
	}

	e.log.Debug().
		Str("activity_id", act.ID.String()).
		Str("data_model", model).
		Msg("activity created")
	return act.ID, nil
}

// Submit applies field updates through the variant's submit logic.
func (e *Engine) Submit(ctx context.Context, id uuid.UUID, vals Values) error {
	act, err := e.Browse(ctx, id)
	if err != nil {
		return err
	}
	d, err := e.data(act.DataModel)
	if err != nil {
		return err
	}
	return d.Submit(ctx, e, act, vals)
}

// Complete drives the activity to its completed state through the variant.
func (e *Engine) Complete(ctx context.Context, id uuid.UUID) error {
	act, err := e.Browse(ctx, id)
	if err != nil {
		return err
	}
	d, err := e.data(act.DataModel)
	if err != nil {
		return err
	}
	if err := d.Complete(ctx, e, act); err != nil {
		return err
	}
	e.log.Info().
		Str("activity_id", act.ID.String()).
		Str("data_model", act.DataModel).
		Msg("activity completed")
	return nil
}

// Cancel drives the activity to its cancelled state through the variant.
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID) error {
	act, err := e.Browse(ctx, id)
	if err != nil {
		return err
	}
	d, err := e.data(act.DataModel)
	if err != nil {
		return err
	}
	if err := d.Cancel(ctx, e, act); err != nil {
		return err
	}
	e.log.Info().
		Str("activity_id", act.ID.String()).
		Str("data_model", act.DataModel).
		Msg("activity cancelled")
	return nil
}

// Schedule moves a draft activity to scheduled. No variant hooks exist for
// scheduling; it is a pure base transition.
func (e *Engine) Schedule(ctx context.Context, id uuid.UUID) error {
	act, err := e.Browse(ctx, id)
	if err != nil {
		return err
	}
	return e.ScheduleBase(ctx, act)
}

// Start moves a draft or scheduled activity to started.
func (e *Engine) Start(ctx context.Context, id uuid.UUID) error {
	act, err := e.Browse(ctx, id)
	if err != nil {
		return err
	}
	return e.StartBase(ctx, act)
}

// Browse loads a single activity record.
func (e *Engine) Browse(ctx context.Context, id uuid.UUID) (*Activity, error) {
	act, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, NotFoundf("activity %s not found", id)
	}
	return act, nil
}

// Search returns activities matching the filter in the given order.
func (e *Engine) Search(ctx context.Context, f Filter, order Order) ([]*Activity, error) {
	return e.repo.Search(ctx, f, order)
}

// TriggerPolicy fires the follow-on policy hook with a location context.
// Fire and forget: failures are logged, never propagated.
func (e *Engine) TriggerPolicy(ctx context.Context, locationID uuid.UUID) {
	if e.policy == nil {
		e.log.Debug().
			Str("location_id", locationID.String()).
			Msg("no policy trigger installed")
		return
	}
	if err := e.policy.Trigger(ctx, locationID); err != nil {
		e.log.Warn().Err(err).
			Str("location_id", locationID.String()).
			Msg("policy trigger failed")
	}
}

// -- Base transitions --
//
// Every variant calls through to these so the transition checks and
// timestamping always apply.

// SubmitBase records a data submission on a non-terminal activity and
// refreshes the denormalized search fields from vals.
func (e *Engine) SubmitBase(ctx context.Context, act *Activity, vals Values) error {
	if act.State.Terminal() {
		return Invariantf("cannot submit %s activity %s in state %s", act.DataModel, act.ID, act.State)
	}
	if pid, ok := vals.UUID("patient_id"); ok {
		act.PatientID = &pid
	}
	if lid, ok := vals.UUID("location_id"); ok {
		act.LocationID = &lid
	}
	act.UpdatedAt = time.Now().UTC()
	return e.repo.Update(ctx, act)
}

// ScheduleBase transitions draft -> scheduled.
func (e *Engine) ScheduleBase(ctx context.Context, act *Activity) error {
	if act.State != StateDraft {
		return Invariantf("cannot schedule %s activity %s in state %s", act.DataModel, act.ID, act.State)
	}
	act.State = StateScheduled
	act.UpdatedAt = time.Now().UTC()
	return e.repo.Update(ctx, act)
}

// StartBase transitions draft/scheduled -> started.
func (e *Engine) StartBase(ctx context.Context, act *Activity) error {
	if act.State != StateDraft && act.State != StateScheduled {
		return Invariantf("cannot start %s activity %s in state %s", act.DataModel, act.ID, act.State)
	}
	act.State = StateStarted
	act.UpdatedAt = time.Now().UTC()
	return e.repo.Update(ctx, act)
}

// CompleteBase transitions any non-terminal state -> completed and stamps
// the termination date.
func (e *Engine) CompleteBase(ctx context.Context, act *Activity) error {
	if act.State.Terminal() {
		return Invariantf("cannot complete %s activity %s in state %s", act.DataModel, act.ID, act.State)
	}
	now := time.Now().UTC()
	act.State = StateCompleted
	act.DateTerminated = &now
	act.UpdatedAt = now
	return e.repo.Update(ctx, act)
}

// CancelBase transitions any non-terminal state -> cancelled and stamps
// the termination date.
func (e *Engine) CancelBase(ctx context.Context, act *Activity) error {
	if act.State.Terminal() {
		return Invariantf("cannot cancel %s activity %s in state %s", act.DataModel, act.ID, act.State)
	}
	now := time.Now().UTC()
	act.State = StateCancelled
	act.DateTerminated = &now
	act.UpdatedAt = now
	return e.repo.Update(ctx, act)
}

// RevokeBase transitions a completed activity to cancelled: the path used
// when a finalized workflow is undone, as in discharge cancellation.
// Anything not yet completed goes through CancelBase instead.
func (e *Engine) RevokeBase(ctx context.Context, act *Activity) error {
	if act.State != StateCompleted {
		return Invariantf("cannot revoke %s activity %s in state %s", act.DataModel, act.ID, act.State)
	}
	now := time.Now().UTC()
	act.State = StateCancelled
	act.DateTerminated = &now
	act.UpdatedAt = now
	return e.repo.Update(ctx, act)
}

// ReopenBase is the one sanctioned exit from a terminal state: discharge
// cancellation reverts the completed spell to started and clears its
// termination date.
func (e *Engine) ReopenBase(ctx context.Context, act *Activity) error {
	if act.State != StateCompleted {
		return Invariantf("cannot reopen %s activity %s in state %s", act.DataModel, act.ID, act.State)
	}
	act.State = StateStarted
	act.DateTerminated = nil
	act.UpdatedAt = time.Now().UTC()
	return e.repo.Update(ctx, act)
}

// SetParent binds the activity under a new parent.
func (e *Engine) SetParent(ctx context.Context, act *Activity, parentID uuid.UUID) error {
	act.ParentID = &parentID
	act.UpdatedAt = time.Now().UTC()
	return e.repo.Update(ctx, act)
}

// StampTerminated overrides the termination date, used when a workflow
// carries its own effective date (discharge date on the spell).
func (e *Engine) StampTerminated(ctx context.Context, act *Activity, t time.Time) error {
	act.DateTerminated = &t
	act.UpdatedAt = time.Now().UTC()
	return e.repo.Update(ctx, act)
}

// -- System actor --

type actorKey struct{}

// WithSystemActor marks the context as acting on behalf of the system.
// Internal cascades (movements spawned by placements, spell bookkeeping)
// run under it so caller-level authorization checks do not apply to them.
func WithSystemActor(ctx context.Context) context.Context {
	return context.WithValue(ctx, actorKey{}, true)
}

// IsSystemActor reports whether the context carries the system-actor mark.
func IsSystemActor(ctx context.Context) bool {
	v, _ := ctx.Value(actorKey{}).(bool)
	return v
}
