package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is the minimal demographic record the flow workflows operate on.
// CurrentLocationID tracks physical presence and is maintained exclusively
// by completed patient movements.
type Patient struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	Identifier        string     `db:"identifier" json:"identifier"`
	GivenName         string     `db:"given_name" json:"given_name"`
	FamilyName        string     `db:"family_name" json:"family_name"`
	CurrentLocationID *uuid.UUID `db:"current_location_id" json:"current_location_id,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}
