package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/nhflow/flow/internal/domain/activity"
)

// Service is the patient registry. Beyond CRUD it owns the single mutation
// the flow workflows need: recording where the patient physically is.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.Identifier == "" {
		return activity.MissingFieldf("patient identifier is required")
	}
	if p.FamilyName == "" {
		return activity.MissingFieldf("patient family name is required")
	}
	existing, err := s.repo.GetByIdentifier(ctx, p.Identifier)
	if err != nil {
		return err
	}
	if existing != nil {
		return activity.Invariantf("patient with identifier %s already exists", p.Identifier)
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, activity.NotFoundf("patient %s not found", id)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// SetCurrentLocation records the patient's physical presence. Only completed
// movements call this; nothing else writes the field.
func (s *Service) SetCurrentLocation(ctx context.Context, patientID, locationID uuid.UUID) error {
	p, err := s.Get(ctx, patientID)
	if err != nil {
		return err
	}
	p.CurrentLocationID = &locationID
	return s.repo.Update(ctx, p)
}
