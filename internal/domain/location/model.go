package location

import (
	"time"

	"github.com/google/uuid"
)

// Usage classifies a node of the location tree.
type Usage string

const (
	UsageBed  Usage = "bed"
	UsageWard Usage = "ward"
	UsageRoom Usage = "room"
	UsageUnit Usage = "unit"
	// UsagePOS marks a point-of-service root location (the hospital).
	UsagePOS Usage = "pos"
	// UsageVirtual marks locations that exist only for bookkeeping, such
	// as the discharged-patients location.
	UsageVirtual Usage = "virtual"
)

// Location maps to the location table. Locations form a tree through
// ParentID; bed availability is derived, not stored (a bed is available
// when it is active and no patient currently occupies it).
type Location struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Code      *string    `db:"code" json:"code,omitempty"`
	Usage     Usage      `db:"usage" json:"usage"`
	ParentID  *uuid.UUID `db:"parent_id" json:"parent_id,omitempty"`
	Active    bool       `db:"active" json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// POS maps to the pos table. LocationID is the point of service's default
// location, used as the fallback destination when no coded discharge
// location exists.
type POS struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	LocationID uuid.UUID `db:"location_id" json:"location_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
