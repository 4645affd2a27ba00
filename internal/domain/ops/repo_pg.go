package ops

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nhflow/flow/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// -- Movement --

func (r *repoPG) CreateMovement(ctx context.Context, m *Movement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_move (id, activity_id, patient_id, location_id, from_location_id, reason, move_datetime)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.ActivityID, m.PatientID, m.LocationID, m.FromLocationID, m.Reason, m.MoveDatetime,
	)
	return err
}

func (r *repoPG) MovementByActivity(ctx context.Context, activityID uuid.UUID) (*Movement, error) {
	var m Movement
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, activity_id, patient_id, location_id, from_location_id, reason, move_datetime, created_at, updated_at
		FROM patient_move WHERE activity_id = $1`, activityID).
		Scan(&m.ID, &m.ActivityID, &m.PatientID, &m.LocationID, &m.FromLocationID, &m.Reason, &m.MoveDatetime, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repoPG) UpdateMovement(ctx context.Context, m *Movement) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_move
		SET location_id=$2, from_location_id=$3, reason=$4, move_datetime=$5, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.LocationID, m.FromLocationID, m.Reason, m.MoveDatetime,
	)
	return err
}

// -- Swap --

func (r *repoPG) CreateSwap(ctx context.Context, s *Swap) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_swap_beds (id, activity_id, location1_id, location2_id)
		VALUES ($1,$2,$3,$4)`,
		s.ID, s.ActivityID, s.Location1ID, s.Location2ID,
	)
	return err
}

func (r *repoPG) SwapByActivity(ctx context.Context, activityID uuid.UUID) (*Swap, error) {
	var s Swap
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, activity_id, location1_id, location2_id, created_at, updated_at
		FROM patient_swap_beds WHERE activity_id = $1`, activityID).
		Scan(&s.ID, &s.ActivityID, &s.Location1ID, &s.Location2ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) UpdateSwap(ctx context.Context, s *Swap) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_swap_beds SET location1_id=$2, location2_id=$3, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Location1ID, s.Location2ID,
	)
	return err
}

// -- Placement --

func (r *repoPG) CreatePlacement(ctx context.Context, p *Placement) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_placement (id, activity_id, patient_id, suggested_location_id, location_id, reason)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.ActivityID, p.PatientID, p.SuggestedLocationID, p.LocationID, p.Reason,
	)
	return err
}

func (r *repoPG) PlacementByActivity(ctx context.Context, activityID uuid.UUID) (*Placement, error) {
	var p Placement
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, activity_id, patient_id, suggested_location_id, location_id, reason, created_at, updated_at
		FROM patient_placement WHERE activity_id = $1`, activityID).
		Scan(&p.ID, &p.ActivityID, &p.PatientID, &p.SuggestedLocationID, &p.LocationID, &p.Reason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) UpdatePlacement(ctx context.Context, p *Placement) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_placement
		SET suggested_location_id=$2, location_id=$3, reason=$4, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.SuggestedLocationID, p.LocationID, p.Reason,
	)
	return err
}

// -- Discharge --

func (r *repoPG) CreateDischarge(ctx context.Context, d *Discharge) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_discharge (id, activity_id, patient_id, location_id, discharge_date)
		VALUES ($1,$2,$3,$4,$5)`,
		d.ID, d.ActivityID, d.PatientID, d.LocationID, d.DischargeDate,
	)
	return err
}

func (r *repoPG) DischargeByActivity(ctx context.Context, activityID uuid.UUID) (*Discharge, error) {
	var d Discharge
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, activity_id, patient_id, location_id, discharge_date, created_at, updated_at
		FROM patient_discharge WHERE activity_id = $1`, activityID).
		Scan(&d.ID, &d.ActivityID, &d.PatientID, &d.LocationID, &d.DischargeDate, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) UpdateDischarge(ctx context.Context, d *Discharge) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_discharge
		SET location_id=$2, discharge_date=$3, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.LocationID, d.DischargeDate,
	)
	return err
}

// -- Admission --

func (r *repoPG) CreateAdmission(ctx context.Context, a *Admission) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_admission (id, activity_id, patient_id, pos_id, location_id, code, start_date,
			ref_doctor_ids, con_doctor_ids)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.ActivityID, a.PatientID, a.POSID, a.LocationID, a.Code, a.StartDate,
		a.RefDoctorIDs, a.ConDoctorIDs,
	)
	return err
}

func (r *repoPG) AdmissionByActivity(ctx context.Context, activityID uuid.UUID) (*Admission, error) {
	var a Admission
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, activity_id, patient_id, pos_id, location_id, code, start_date,
			ref_doctor_ids, con_doctor_ids, created_at, updated_at
		FROM patient_admission WHERE activity_id = $1`, activityID).
		Scan(&a.ID, &a.ActivityID, &a.PatientID, &a.POSID, &a.LocationID, &a.Code, &a.StartDate,
			&a.RefDoctorIDs, &a.ConDoctorIDs, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) UpdateAdmission(ctx context.Context, a *Admission) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_admission
		SET pos_id=$2, location_id=$3, code=$4, start_date=$5,
			ref_doctor_ids=$6, con_doctor_ids=$7, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.POSID, a.LocationID, a.Code, a.StartDate, a.RefDoctorIDs, a.ConDoctorIDs,
	)
	return err
}
