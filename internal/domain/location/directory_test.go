package location

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// -- Mock Repository --

type mockRepo struct {
	locations map[uuid.UUID]*Location
	pos       map[uuid.UUID]*POS
	occupants map[uuid.UUID][]uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		locations: make(map[uuid.UUID]*Location),
		pos:       make(map[uuid.UUID]*POS),
		occupants: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *mockRepo) Create(_ context.Context, loc *Location) error {
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	m.locations[loc.ID] = loc
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Location, error) {
	loc, ok := m.locations[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return loc, nil
}

func (m *mockRepo) GetByCode(_ context.Context, code string) (*Location, error) {
	for _, loc := range m.locations {
		if loc.Code != nil && *loc.Code == code {
			return loc, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) Update(_ context.Context, loc *Location) error {
	m.locations[loc.ID] = loc
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Location, int, error) {
	var out []*Location
	for _, loc := range m.locations {
		out = append(out, loc)
	}
	return out, len(out), nil
}

func (m *mockRepo) DescendantBeds(_ context.Context, rootID *uuid.UUID) ([]*Location, error) {
	inSubtree := func(id uuid.UUID) bool {
		if rootID == nil {
			return true
		}
		for cur := id; ; {
			if cur == *rootID {
				return true
			}
			loc, ok := m.locations[cur]
			if !ok || loc.ParentID == nil {
				return false
			}
			cur = *loc.ParentID
		}
	}
	var beds []*Location
	for _, loc := range m.locations {
		if loc.Usage == UsageBed && loc.Active && inSubtree(loc.ID) {
			beds = append(beds, loc)
		}
	}
	return beds, nil
}

func (m *mockRepo) Occupants(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	return m.occupants[id], nil
}

func (m *mockRepo) CreatePOS(_ context.Context, pos *POS) error {
	if pos.ID == uuid.Nil {
		pos.ID = uuid.New()
	}
	m.pos[pos.ID] = pos
	return nil
}

func (m *mockRepo) GetPOS(_ context.Context, id uuid.UUID) (*POS, error) {
	p, ok := m.pos[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

// -- Fixtures --

func buildWard(repo *mockRepo) (ward, bed1, bed2 *Location) {
	ward = &Location{ID: uuid.New(), Name: "Ward W", Usage: UsageWard, Active: true}
	bed1 = &Location{ID: uuid.New(), Name: "Bed 1", Usage: UsageBed, ParentID: &ward.ID, Active: true}
	bed2 = &Location{ID: uuid.New(), Name: "Bed 2", Usage: UsageBed, ParentID: &ward.ID, Active: true}
	repo.Create(context.Background(), ward)
	repo.Create(context.Background(), bed1)
	repo.Create(context.Background(), bed2)
	return ward, bed1, bed2
}

// -- Tests --

func TestClosestParentID(t *testing.T) {
	repo := newMockRepo()
	dir := NewDirectory(repo)
	ward, bed1, _ := buildWard(repo)

	got, err := dir.ClosestParentID(context.Background(), bed1.ID, UsageWard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ward.ID {
		t.Errorf("expected ward %s, got %s", ward.ID, got)
	}
}

func TestClosestParentID_SelfMatch(t *testing.T) {
	repo := newMockRepo()
	dir := NewDirectory(repo)
	ward, _, _ := buildWard(repo)

	got, err := dir.ClosestParentID(context.Background(), ward.ID, UsageWard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ward.ID {
		t.Errorf("expected the ward itself, got %s", got)
	}
}

func TestClosestParentID_NoAncestor(t *testing.T) {
	repo := newMockRepo()
	dir := NewDirectory(repo)
	_, bed1, _ := buildWard(repo)

	_, err := dir.ClosestParentID(context.Background(), bed1.ID, UsagePOS)
	if err == nil {
		t.Error("expected error when no ancestor with usage exists")
	}
}

func TestIsAvailable(t *testing.T) {
	repo := newMockRepo()
	dir := NewDirectory(repo)
	ward, bed1, _ := buildWard(repo)

	ok, err := dir.IsAvailable(context.Background(), bed1.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected empty bed to be available")
	}

	// occupied bed
	repo.occupants[bed1.ID] = []uuid.UUID{uuid.New()}
	ok, _ = dir.IsAvailable(context.Background(), bed1.ID)
	if ok {
		t.Error("expected occupied bed to be unavailable")
	}

	// a ward is never "available"
	ok, _ = dir.IsAvailable(context.Background(), ward.ID)
	if ok {
		t.Error("expected non-bed location to be unavailable")
	}
}

func TestIsAvailable_InactiveBed(t *testing.T) {
	repo := newMockRepo()
	dir := NewDirectory(repo)
	_, bed1, _ := buildWard(repo)
	bed1.Active = false

	ok, _ := dir.IsAvailable(context.Background(), bed1.ID)
	if ok {
		t.Error("expected inactive bed to be unavailable")
	}
}

func TestAvailableBedsUnder(t *testing.T) {
	repo := newMockRepo()
	dir := NewDirectory(repo)
	ward, bed1, bed2 := buildWard(repo)

	// other ward should not leak into the selection
	otherWard := &Location{ID: uuid.New(), Name: "Ward X", Usage: UsageWard, Active: true}
	otherBed := &Location{ID: uuid.New(), Name: "Bed X1", Usage: UsageBed, ParentID: &otherWard.ID, Active: true}
	repo.Create(context.Background(), otherWard)
	repo.Create(context.Background(), otherBed)

	repo.occupants[bed2.ID] = []uuid.UUID{uuid.New()}

	beds, err := dir.AvailableBedsUnder(context.Background(), ward.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(beds) != 1 {
		t.Fatalf("expected 1 available bed, got %d", len(beds))
	}
	if beds[0].ID != bed1.ID {
		t.Errorf("expected bed1, got %s", beds[0].Name)
	}
}

func TestAvailableBedIDs(t *testing.T) {
	repo := newMockRepo()
	dir := NewDirectory(repo)
	_, bed1, bed2 := buildWard(repo)
	repo.occupants[bed1.ID] = []uuid.UUID{uuid.New()}

	ids, err := dir.AvailableBedIDs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 id, got %d", len(ids))
	}
	if ids[0] != bed2.ID {
		t.Errorf("expected bed2, got %s", ids[0])
	}
}

func TestGetByCode(t *testing.T) {
	repo := newMockRepo()
	dir := NewDirectory(repo)
	code := "GDL0987654321"
	loc := &Location{ID: uuid.New(), Name: "Discharged", Code: &code, Usage: UsageVirtual, Active: true}
	repo.Create(context.Background(), loc)

	got, err := dir.GetByCode(context.Background(), code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != loc.ID {
		t.Error("expected discharge location by code")
	}

	missing, err := dir.GetByCode(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown code")
	}
}
