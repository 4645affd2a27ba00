package spell

import (
	"time"

	"github.com/google/uuid"
)

// Model is the activity data-model tag for hospitalisation spells.
const Model = "clinical.spell"

// Spell is the payload of a hospitalisation: the interval between a
// patient's admission and discharge. Its activity stays started for the
// whole stay; LocationID mirrors the destination of the latest completed
// movement inside the spell.
type Spell struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ActivityID uuid.UUID  `db:"activity_id" json:"activity_id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	LocationID *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	POSID      *uuid.UUID `db:"pos_id" json:"pos_id,omitempty"`
	Code       *string    `db:"code" json:"code,omitempty"`
	StartDate  time.Time  `db:"start_date" json:"start_date"`
	// Doctors attached at admission time.
	RefDoctorIDs []uuid.UUID `db:"ref_doctor_ids" json:"ref_doctor_ids,omitempty"`
	ConDoctorIDs []uuid.UUID `db:"con_doctor_ids" json:"con_doctor_ids,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}
