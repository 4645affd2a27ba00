package ops

import (
	"time"

	"github.com/google/uuid"
)

// Activity data-model tags for the patient-flow workflows.
const (
	ModelMovement  = "clinical.patient.move"
	ModelSwap      = "clinical.patient.swap_beds"
	ModelPlacement = "clinical.patient.placement"
	ModelDischarge = "clinical.patient.discharge"
	ModelAdmission = "clinical.patient.admission"
)

// Movement records a single physical relocation of a patient.
// FromLocationID is derived on completion from the patient's previous
// completed movement, never set by callers.
type Movement struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ActivityID     uuid.UUID  `db:"activity_id" json:"activity_id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	LocationID     *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	FromLocationID *uuid.UUID `db:"from_location_id" json:"from_location_id,omitempty"`
	Reason         *string    `db:"reason" json:"reason,omitempty"`
	MoveDatetime   *time.Time `db:"move_datetime" json:"move_datetime,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Swap is an atomic two-patient bed exchange. Both locations must be
// occupied beds under the same ward.
type Swap struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ActivityID  uuid.UUID `db:"activity_id" json:"activity_id"`
	Location1ID uuid.UUID `db:"location1_id" json:"location1_id"`
	Location2ID uuid.UUID `db:"location2_id" json:"location2_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Placement assigns a destination bed to an admitted patient waiting in a
// holding location. At most one placement per patient may be open.
type Placement struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	ActivityID          uuid.UUID  `db:"activity_id" json:"activity_id"`
	PatientID           uuid.UUID  `db:"patient_id" json:"patient_id"`
	SuggestedLocationID uuid.UUID  `db:"suggested_location_id" json:"suggested_location_id"`
	LocationID          *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	Reason              *string    `db:"reason" json:"reason,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Discharge closes a patient's spell. LocationID is derived at submit from
// the open spell and records where the patient was before leaving.
type Discharge struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ActivityID    uuid.UUID  `db:"activity_id" json:"activity_id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	LocationID    *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	DischargeDate *time.Time `db:"discharge_date" json:"discharge_date,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Admission opens a new hospital visit: its completion creates and starts
// the spell and the initial movement into the admission location.
type Admission struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	ActivityID   uuid.UUID   `db:"activity_id" json:"activity_id"`
	PatientID    uuid.UUID   `db:"patient_id" json:"patient_id"`
	POSID        uuid.UUID   `db:"pos_id" json:"pos_id"`
	LocationID   uuid.UUID   `db:"location_id" json:"location_id"`
	Code         *string     `db:"code" json:"code,omitempty"`
	StartDate    *time.Time  `db:"start_date" json:"start_date,omitempty"`
	RefDoctorIDs []uuid.UUID `db:"ref_doctor_ids" json:"ref_doctor_ids,omitempty"`
	ConDoctorIDs []uuid.UUID `db:"con_doctor_ids" json:"con_doctor_ids,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}
