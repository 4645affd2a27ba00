package ops

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nhflow/flow/internal/domain/activity"
	"github.com/nhflow/flow/internal/domain/location"
	"github.com/nhflow/flow/internal/domain/patient"
	"github.com/nhflow/flow/internal/domain/spell"
)

// -- In-memory activity repository --

type memActRepo struct {
	acts map[uuid.UUID]*activity.Activity
	seq  int64
}

func newMemActRepo() *memActRepo {
	return &memActRepo{acts: make(map[uuid.UUID]*activity.Activity)}
}

func (m *memActRepo) Create(_ context.Context, act *activity.Activity) error {
	m.seq++
	act.Sequence = m.seq
	cp := *act
	m.acts[act.ID] = &cp
	return nil
}

func (m *memActRepo) Get(_ context.Context, id uuid.UUID) (*activity.Activity, error) {
	act, ok := m.acts[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *act
	return &cp, nil
}

func (m *memActRepo) Update(_ context.Context, act *activity.Activity) error {
	if _, ok := m.acts[act.ID]; !ok {
		return fmt.Errorf("not found")
	}
	cp := *act
	m.acts[act.ID] = &cp
	return nil
}

func (m *memActRepo) subtree(root uuid.UUID) map[uuid.UUID]bool {
	in := map[uuid.UUID]bool{root: true}
	for changed := true; changed; {
		changed = false
		for _, act := range m.acts {
			if act.ParentID != nil && in[*act.ParentID] && !in[act.ID] {
				in[act.ID] = true
				changed = true
			}
		}
	}
	return in
}

func (m *memActRepo) Search(_ context.Context, f activity.Filter, order activity.Order) ([]*activity.Activity, error) {
	var descendants map[uuid.UUID]bool
	if f.ChildOf != nil {
		descendants = m.subtree(*f.ChildOf)
	}

	inStates := func(s activity.State, states []activity.State) bool {
		for _, st := range states {
			if s == st {
				return true
			}
		}
		return false
	}

	var out []*activity.Activity
	for _, act := range m.acts {
		if f.DataModel != "" && act.DataModel != f.DataModel {
			continue
		}
		if f.PatientID != nil && (act.PatientID == nil || *act.PatientID != *f.PatientID) {
			continue
		}
		if f.ParentID != nil && (act.ParentID == nil || *act.ParentID != *f.ParentID) {
			continue
		}
		if len(f.States) > 0 && !inStates(act.State, f.States) {
			continue
		}
		if len(f.NotStates) > 0 && inStates(act.State, f.NotStates) {
			continue
		}
		if len(f.ParentStates) > 0 {
			if act.ParentID == nil {
				continue
			}
			parent, ok := m.acts[*act.ParentID]
			if !ok || !inStates(parent.State, f.ParentStates) {
				continue
			}
		}
		if descendants != nil && !descendants[act.ID] {
			continue
		}
		cp := *act
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		switch order {
		case activity.OrderSequenceDesc:
			return out[i].Sequence > out[j].Sequence
		case activity.OrderTerminatedDesc:
			ti, tj := out[i].DateTerminated, out[j].DateTerminated
			if ti != nil && tj != nil && !ti.Equal(*tj) {
				return ti.After(*tj)
			}
			if (ti == nil) != (tj == nil) {
				return tj == nil
			}
			return out[i].Sequence > out[j].Sequence
		default:
			return out[i].Sequence < out[j].Sequence
		}
	})
	return out, nil
}

// -- In-memory payload repository --

type memOpsRepo struct {
	movements  map[uuid.UUID]*Movement
	swaps      map[uuid.UUID]*Swap
	placements map[uuid.UUID]*Placement
	discharges map[uuid.UUID]*Discharge
	admissions map[uuid.UUID]*Admission
}

func newMemOpsRepo() *memOpsRepo {
	return &memOpsRepo{
		movements:  make(map[uuid.UUID]*Movement),
		swaps:      make(map[uuid.UUID]*Swap),
		placements: make(map[uuid.UUID]*Placement),
		discharges: make(map[uuid.UUID]*Discharge),
		admissions: make(map[uuid.UUID]*Admission),
	}
}

func (m *memOpsRepo) CreateMovement(_ context.Context, mv *Movement) error {
	cp := *mv
	m.movements[mv.ActivityID] = &cp
	return nil
}

func (m *memOpsRepo) MovementByActivity(_ context.Context, activityID uuid.UUID) (*Movement, error) {
	mv, ok := m.movements[activityID]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *mv
	return &cp, nil
}

func (m *memOpsRepo) UpdateMovement(_ context.Context, mv *Movement) error {
	cp := *mv
	m.movements[mv.ActivityID] = &cp
	return nil
}

func (m *memOpsRepo) CreateSwap(_ context.Context, s *Swap) error {
	cp := *s
	m.swaps[s.ActivityID] = &cp
	return nil
}

func (m *memOpsRepo) SwapByActivity(_ context.Context, activityID uuid.UUID) (*Swap, error) {
	s, ok := m.swaps[activityID]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *s
	return &cp, nil
}

func (m *memOpsRepo) UpdateSwap(_ context.Context, s *Swap) error {
	cp := *s
	m.swaps[s.ActivityID] = &cp
	return nil
}

func (m *memOpsRepo) CreatePlacement(_ context.Context, p *Placement) error {
	cp := *p
	m.placements[p.ActivityID] = &cp
	return nil
}

func (m *memOpsRepo) PlacementByActivity(_ context.Context, activityID uuid.UUID) (*Placement, error) {
	p, ok := m.placements[activityID]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *p
	return &cp, nil
}

func (m *memOpsRepo) UpdatePlacement(_ context.Context, p *Placement) error {
	cp := *p
	m.placements[p.ActivityID] = &cp
	return nil
}

func (m *memOpsRepo) CreateDischarge(_ context.Context, d *Discharge) error {
	cp := *d
	m.discharges[d.ActivityID] = &cp
	return nil
}

func (m *memOpsRepo) DischargeByActivity(_ context.Context, activityID uuid.UUID) (*Discharge, error) {
	d, ok := m.discharges[activityID]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *d
	return &cp, nil
}

func (m *memOpsRepo) UpdateDischarge(_ context.Context, d *Discharge) error {
	cp := *d
	m.discharges[d.ActivityID] = &cp
	return nil
}

func (m *memOpsRepo) CreateAdmission(_ context.Context, a *Admission) error {
	cp := *a
	m.admissions[a.ActivityID] = &cp
	return nil
}

func (m *memOpsRepo) AdmissionByActivity(_ context.Context, activityID uuid.UUID) (*Admission, error) {
	a, ok := m.admissions[activityID]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *a
	return &cp, nil
}

func (m *memOpsRepo) UpdateAdmission(_ context.Context, a *Admission) error {
	cp := *a
	m.admissions[a.ActivityID] = &cp
	return nil
}

// -- In-memory patient repository --

type memPatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func newMemPatientRepo() *memPatientRepo {
	return &memPatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (m *memPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *memPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *p
	return &cp, nil
}

func (m *memPatientRepo) GetByIdentifier(_ context.Context, identifier string) (*patient.Patient, error) {
	for _, p := range m.patients {
		if p.Identifier == identifier {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memPatientRepo) Update(_ context.Context, p *patient.Patient) error {
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *memPatientRepo) List(_ context.Context, limit, offset int) ([]*patient.Patient, int, error) {
	var out []*patient.Patient
	for _, p := range m.patients {
		cp := *p
		out = append(out, &cp)
	}
	return out, len(out), nil
}

// -- In-memory location repository --

type memLocRepo struct {
	locations map[uuid.UUID]*location.Location
	pos       map[uuid.UUID]*location.POS
	patients  *memPatientRepo
}

func newMemLocRepo(patients *memPatientRepo) *memLocRepo {
	return &memLocRepo{
		locations: make(map[uuid.UUID]*location.Location),
		pos:       make(map[uuid.UUID]*location.POS),
		patients:  patients,
	}
}

func (m *memLocRepo) Create(_ context.Context, loc *location.Location) error {
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	cp := *loc
	m.locations[loc.ID] = &cp
	return nil
}

func (m *memLocRepo) GetByID(_ context.Context, id uuid.UUID) (*location.Location, error) {
	loc, ok := m.locations[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *loc
	return &cp, nil
}

func (m *memLocRepo) GetByCode(_ context.Context, code string) (*location.Location, error) {
	for _, loc := range m.locations {
		if loc.Code != nil && *loc.Code == code {
			cp := *loc
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memLocRepo) Update(_ context.Context, loc *location.Location) error {
	cp := *loc
	m.locations[loc.ID] = &cp
	return nil
}

func (m *memLocRepo) List(_ context.Context, limit, offset int) ([]*location.Location, int, error) {
	var out []*location.Location
	for _, loc := range m.locations {
		cp := *loc
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memLocRepo) DescendantBeds(_ context.Context, rootID *uuid.UUID) ([]*location.Location, error) {
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
	var beds []*location.Location
	for _, loc := range m.locations {
		if loc.Usage == location.UsageBed && loc.Active && inSubtree(loc.ID) {
			cp := *loc
			beds = append(beds, &cp)
		}
	}
	return beds, nil
}

func (m *memLocRepo) Occupants(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, p := range m.patients.patients {
		if p.CurrentLocationID != nil && *p.CurrentLocationID == id {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (m *memLocRepo) CreatePOS(_ context.Context, pos *location.POS) error {
	if pos.ID == uuid.Nil {
		pos.ID = uuid.New()
	}
	cp := *pos
	m.pos[pos.ID] = &cp
	return nil
}

func (m *memLocRepo) GetPOS(_ context.Context, id uuid.UUID) (*location.POS, error) {
	pos, ok := m.pos[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *pos
	return &cp, nil
}

// -- In-memory spell repository --

type memSpellRepo struct {
	spells map[uuid.UUID]*spell.Spell
}

func newMemSpellRepo() *memSpellRepo {
	return &memSpellRepo{spells: make(map[uuid.UUID]*spell.Spell)}
}

func (m *memSpellRepo) Create(_ context.Context, s *spell.Spell) error {
	cp := *s
	m.spells[s.ID] = &cp
	return nil
}

func (m *memSpellRepo) GetByID(_ context.Context, id uuid.UUID) (*spell.Spell, error) {
	s, ok := m.spells[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *s
	return &cp, nil
}

func (m *memSpellRepo) GetByActivityID(_ context.Context, activityID uuid.UUID) (*spell.Spell, error) {
	for _, s := range m.spells {
		if s.ActivityID == activityID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *memSpellRepo) Update(_ context.Context, s *spell.Spell) error {
	cp := *s
	m.spells[s.ID] = &cp
	return nil
}

// -- Policy recorder --

type policyRecorder struct {
	locations []uuid.UUID
}

func (p *policyRecorder) Trigger(_ context.Context, locationID uuid.UUID) error {
	p.locations = append(p.locations, locationID)
	return nil
}

// -- Harness --

const testDischargeCode = "GDL0987654321"

type harness struct {
	eng      *activity.Engine
	deps     Deps
	patients *patient.Service
	dir      *location.Directory
	locRepo  *memLocRepo
	opsRepo  *memOpsRepo
	policy   *policyRecorder

	ward         *location.Location
	bed1         *location.Location
	bed2         *location.Location
	pos          *location.POS
	dischargeLoc *location.Location
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	patRepo := newMemPatientRepo()
	locRepo := newMemLocRepo(patRepo)
	spellRepo := newMemSpellRepo()
	opsRepo := newMemOpsRepo()

	eng := activity.NewEngine(newMemActRepo(), zerolog.Nop())
	dir := location.NewDirectory(locRepo)
	patients := patient.NewService(patRepo)
	spells := spell.NewRegistry(eng, spellRepo)

	deps := Deps{
		Repo:                  opsRepo,
		Dir:                   dir,
		Patients:              patients,
		Spells:                spells,
		DischargeLocationCode: testDischargeCode,
	}
	eng.Register(spell.NewData(spellRepo))
	Register(eng, deps)

	policy := &policyRecorder{}
	eng.SetPolicyTrigger(policy)

	h := &harness{
		eng:      eng,
		deps:     deps,
		patients: patients,
		dir:      dir,
		locRepo:  locRepo,
		opsRepo:  opsRepo,
		policy:   policy,
	}

	h.ward = &location.Location{Name: "Ward W", Usage: location.UsageWard, Active: true}
	if err := locRepo.Create(ctx, h.ward); err != nil {
		t.Fatal(err)
	}
	h.bed1 = &location.Location{Name: "Bed B1", Usage: location.UsageBed, ParentID: &h.ward.ID, Active: true}
	h.bed2 = &location.Location{Name: "Bed B2", Usage: location.UsageBed, ParentID: &h.ward.ID, Active: true}
	for _, bed := range []*location.Location{h.bed1, h.bed2} {
		if err := locRepo.Create(ctx, bed); err != nil {
			t.Fatal(err)
		}
	}

	code := testDischargeCode
	h.dischargeLoc = &location.Location{Name: "Discharged", Code: &code, Usage: location.UsageVirtual, Active: true}
	if err := locRepo.Create(ctx, h.dischargeLoc); err != nil {
		t.Fatal(err)
	}

	h.pos = &location.POS{Name: "General Hospital", LocationID: h.ward.ID}
	if err := locRepo.CreatePOS(ctx, h.pos); err != nil {
		t.Fatal(err)
	}
	return h
}

func (h *harness) newPatient(t *testing.T, identifier string) uuid.UUID {
	t.Helper()
	p := &patient.Patient{Identifier: identifier, GivenName: "Test", FamilyName: identifier}
	if err := h.patients.Create(context.Background(), p); err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return p.ID
}

// admit runs the full admission of a patient into the ward and returns the
// admission activity id.
func (h *harness) admit(t *testing.T, patientID uuid.UUID) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id, err := h.eng.Create(ctx, ModelAdmission, activity.Refs{}, activity.Values{
		"patient_id":  patientID,
		"pos_id":      h.pos.ID,
		"location_id": h.ward.ID,
	})
	if err != nil {
		t.Fatalf("create admission: %v", err)
	}
	if err := h.eng.Submit(ctx, id, activity.Values{}); err != nil {
		t.Fatalf("submit admission: %v", err)
	}
	if err := h.eng.Complete(ctx, id); err != nil {
		t.Fatalf("complete admission: %v", err)
	}
	return id
}

// place runs the full placement of a patient into a bed and returns the
// placement activity id.
func (h *harness) place(t *testing.T, patientID, bedID uuid.UUID) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id, err := h.eng.Create(ctx, ModelPlacement, activity.Refs{}, activity.Values{
		"patient_id":            patientID,
		"suggested_location_id": h.ward.ID,
	})
	if err != nil {
		t.Fatalf("create placement: %v", err)
	}
	if err := h.eng.Submit(ctx, id, activity.Values{"location_id": bedID}); err != nil {
		t.Fatalf("submit placement: %v", err)
	}
	if err := h.eng.Complete(ctx, id); err != nil {
		t.Fatalf("complete placement: %v", err)
	}
	return id
}

// discharge runs the full discharge of a patient and returns the discharge
// activity id.
func (h *harness) discharge(t *testing.T, patientID uuid.UUID, vals activity.Values) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	if vals == nil {
		vals = activity.Values{}
	}
	vals["patient_id"] = patientID
	id, err := h.eng.Create(ctx, ModelDischarge, activity.Refs{}, vals)
	if err != nil {
		t.Fatalf("create discharge: %v", err)
	}
	if err := h.eng.Submit(ctx, id, vals); err != nil {
		t.Fatalf("submit discharge: %v", err)
	}
	if err := h.eng.Complete(ctx, id); err != nil {
		t.Fatalf("complete discharge: %v", err)
	}
	return id
}

func (h *harness) spellAct(t *testing.T, patientID uuid.UUID) *activity.Activity {
	t.Helper()
	act, err := h.deps.Spells.GetByPatientID(context.Background(), patientID, activity.RaiseIfNotFound)
	if err != nil {
		t.Fatalf("open spell lookup: %v", err)
	}
	return act
}

func (h *harness) currentLocation(t *testing.T, patientID uuid.UUID) uuid.UUID {
	t.Helper()
	p, err := h.patients.Get(context.Background(), patientID)
	if err != nil {
		t.Fatalf("get patient: %v", err)
	}
	if p.CurrentLocationID == nil {
		t.Fatal("patient has no current location")
	}
	return *p.CurrentLocationID
}
