package activity

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of an activity. Transitions are monotonic:
// once completed or cancelled an activity never moves again, except for the
// explicit spell-reopening path used by discharge cancellation.
type State string

const (
	StateDraft     State = "draft"
	StateScheduled State = "scheduled"
	StateStarted   State = "started"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state is one of the two terminal states.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Activity is the chassis every clinical workflow payload rides on. The
// payload itself lives in a workflow-owned table referenced by DataRef;
// PatientID and LocationID are denormalized copies maintained for search.
type Activity struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	DataModel      string     `db:"data_model" json:"data_model"`
	DataRef        uuid.UUID  `db:"data_ref" json:"data_ref"`
	State          State      `db:"state" json:"state"`
	ParentID       *uuid.UUID `db:"parent_id" json:"parent_id,omitempty"`
	CreatorID      *uuid.UUID `db:"creator_id" json:"creator_id,omitempty"`
	PatientID      *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	LocationID     *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	Sequence       int64      `db:"sequence" json:"sequence"`
	DateTerminated *time.Time `db:"date_terminated" json:"date_terminated,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Refs carries the weak cross-references bound at creation time. ParentID
// points at the enclosing activity (usually a spell), CreatorID at the
// activity that spawned this one. Neither implies ownership.
type Refs struct {
	ParentID  *uuid.UUID
	CreatorID *uuid.UUID
}

// Values is a generic field-update set passed to submit. Workflow data
// types pick out the fields they own; unknown keys are ignored.
type Values map[string]interface{}

// UUID returns the value under key as a uuid, tolerating the string and
// pointer forms handlers produce.
func (v Values) UUID(key string) (uuid.UUID, bool) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return uuid.Nil, false
	}
	switch val := raw.(type) {
	case uuid.UUID:
		if val == uuid.Nil {
			return uuid.Nil, false
		}
		return val, true
	case *uuid.UUID:
		if val == nil || *val == uuid.Nil {
			return uuid.Nil, false
		}
		return *val, true
	case string:
		id, err := uuid.Parse(val)
		if err != nil {
			return uuid.Nil, false
		}
		return id, true
	}
	return uuid.Nil, false
}

// Time returns the value under key as a time.
func (v Values) Time(key string) (time.Time, bool) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return time.Time{}, false
	}
	switch val := raw.(type) {
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return val, true
	case *time.Time:
		if val == nil || val.IsZero() {
			return time.Time{}, false
		}
		return *val, true
	}
	return time.Time{}, false
}

// String returns the value under key as a string.
func (v Values) String(key string) (string, bool) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return "", false
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// UUIDSlice returns the value under key as a uuid slice.
func (v Values) UUIDSlice(key string) ([]uuid.UUID, bool) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return nil, false
	}
	ids, ok := raw.([]uuid.UUID)
	if !ok {
		return nil, false
	}
	return ids, true
}

// Has reports whether key is present, regardless of value.
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// Expect is the three-way check flag used by must-exist/must-not-exist
// queries (open spell lookups, last admission/discharge).
type Expect int

const (
	// NoCheck returns whatever was found without raising.
	NoCheck Expect = iota
	// RaiseIfFound fails with an invariant violation when a record exists.
	RaiseIfFound
	// RaiseIfNotFound fails with a not-found error when no record exists.
	RaiseIfNotFound
)

// Filter narrows an activity search. Zero-valued fields are ignored.
type Filter struct {
	DataModel string
	PatientID *uuid.UUID
	ParentID  *uuid.UUID
	States    []State
	NotStates []State
	// ParentStates restricts matches to activities whose parent is in one
	// of the given states.
	ParentStates []State
	// ChildOf matches the given activity and every descendant of it.
	ChildOf *uuid.UUID
}

// Order is the result ordering of a search.
type Order int

const (
	OrderSequenceAsc Order = iota
	OrderSequenceDesc
	// OrderTerminatedDesc sorts by termination date, newest first, with
	// sequence as tiebreaker.
	OrderTerminatedDesc
)
