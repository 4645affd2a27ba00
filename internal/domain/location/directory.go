package location

import (
	"context"

	"github.com/google/uuid"

	"github.com/nhflow/flow/internal/domain/activity"
)

// Directory answers the location questions the patient-flow workflows ask:
// ancestry, occupancy and bed availability.
type Directory struct {
	repo Repository
}

func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) Get(ctx context.Context, id uuid.UUID) (*Location, error) {
	loc, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return nil, activity.NotFoundf("location %s not found", id)
	}
	return loc, nil
}

// GetByCode returns the location carrying the given code, or nil when no
// such location exists.
func (d *Directory) GetByCode(ctx context.Context, code string) (*Location, error) {
	return d.repo.GetByCode(ctx, code)
}

// ClosestParentID walks up the tree from id and returns the nearest
// ancestor (or id itself) with the given usage.
func (d *Directory) ClosestParentID(ctx context.Context, id uuid.UUID, usage Usage) (uuid.UUID, error) {
	loc, err := d.Get(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	for {
		if loc.Usage == usage {
			return loc.ID, nil
		}
		if loc.ParentID == nil {
			return uuid.Nil, activity.NotFoundf("location %s has no %s ancestor", id, usage)
		}
		loc, err = d.Get(ctx, *loc.ParentID)
		if err != nil {
			return uuid.Nil, err
		}
	}
}

// Occupants returns the patients currently in the location.
func (d *Directory) Occupants(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	return d.repo.Occupants(ctx, id)
}

// IsAvailable reports whether the location is an active, unoccupied bed.
func (d *Directory) IsAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	loc, err := d.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if loc.Usage != UsageBed || !loc.Active {
		return false, nil
	}
	occ, err := d.repo.Occupants(ctx, id)
	if err != nil {
		return false, err
	}
	return len(occ) == 0, nil
}

// AvailableBedIDs returns the ids of every available bed in the hospital.
func (d *Directory) AvailableBedIDs(ctx context.Context) ([]uuid.UUID, error) {
	beds, err := d.availableBeds(ctx, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(beds))
	for i, b := range beds {
		ids[i] = b.ID
	}
	return ids, nil
}

// AvailableBedsUnder returns the available beds in the subtree rooted at
// rootID, for bed-selection lists.
func (d *Directory) AvailableBedsUnder(ctx context.Context, rootID uuid.UUID) ([]*Location, error) {
	return d.availableBeds(ctx, &rootID)
}

func (d *Directory) availableBeds(ctx context.Context, rootID *uuid.UUID) ([]*Location, error) {
	beds, err := d.repo.DescendantBeds(ctx, rootID)
	if err != nil {
		return nil, err
	}
	var out []*Location
	for _, b := range beds {
		occ, err := d.repo.Occupants(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		if len(occ) == 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

// POSByID returns the point-of-service record.
func (d *Directory) POSByID(ctx context.Context, id uuid.UUID) (*POS, error) {
	pos, err := d.repo.GetPOS(ctx, id)
	if err != nil {
		return nil, activity.NotFoundf("point of service %s not found", id)
	}
	return pos, nil
}
