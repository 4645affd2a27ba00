package spell

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

const spellCols = `id, activity_id, patient_id, location_id, pos_id, code, start_date,
	ref_doctor_ids, con_doctor_ids, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, s *Spell) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO spell (id, activity_id, patient_id, location_id, pos_id, code, start_date,
			ref_doctor_ids, con_doctor_ids)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.ActivityID, s.PatientID, s.LocationID, s.POSID, s.Code, s.StartDate,
		s.RefDoctorIDs, s.ConDoctorIDs,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Spell, error) {
	return scanSpell(r.conn(ctx).QueryRow(ctx,
		`SELECT `+spellCols+` FROM spell WHERE id = $1`, id))
}

func (r *repoPG) GetByActivityID(ctx context.Context, activityID uuid.UUID) (*Spell, error) {
	return scanSpell(r.conn(ctx).QueryRow(ctx,
		`SELECT `+spellCols+` FROM spell WHERE activity_id = $1`, activityID))
}

func (r *repoPG) Update(ctx context.Context, s *Spell) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE spell
		SET location_id=$2, pos_id=$3, code=$4, start_date=$5,
			ref_doctor_ids=$6, con_doctor_ids=$7, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.LocationID, s.POSID, s.Code, s.StartDate, s.RefDoctorIDs, s.ConDoctorIDs,
	)
	return err
}

func scanSpell(row pgx.Row) (*Spell, error) {
	var s Spell
	err := row.Scan(&s.ID, &s.ActivityID, &s.PatientID, &s.LocationID, &s.POSID, &s.Code,
		&s.StartDate, &s.RefDoctorIDs, &s.ConDoctorIDs, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
