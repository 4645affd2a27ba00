package location

import (
	"context"
	"errors"

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

const locCols = `id, name, code, usage, parent_id, active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, loc *Location) error {
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO location (id, name, code, usage, parent_id, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		loc.ID, loc.Name, loc.Code, loc.Usage, loc.ParentID, loc.Active,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	return scanLoc(r.conn(ctx).QueryRow(ctx,
		`SELECT `+locCols+` FROM location WHERE id = $1`, id))
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*Location, error) {
	loc, err := scanLoc(r.conn(ctx).QueryRow(ctx,
		`SELECT `+locCols+` FROM location WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return loc, err
}

func (r *repoPG) Update(ctx context.Context, loc *Location) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE location SET name=$2, code=$3, usage=$4, parent_id=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		loc.ID, loc.Name, loc.Code, loc.Usage, loc.ParentID, loc.Active,
	)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Location, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM location`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+locCols+` FROM location ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var locs []*Location
	for rows.Next() {
		loc, err := scanLoc(rows)
		if err != nil {
			return nil, 0, err
		}
		locs = append(locs, loc)
	}
	return locs, total, rows.Err()
}

func (r *repoPG) DescendantBeds(ctx context.Context, rootID *uuid.UUID) ([]*Location, error) {
	var (
		sql  string
		args []interface{}
	)
	if rootID == nil {
		sql = `SELECT ` + locCols + ` FROM location WHERE usage = 'bed' AND active ORDER BY name`
	} else {
		sql = `WITH RECURSIVE subtree AS (
			SELECT id FROM location WHERE id = $1
			UNION
			SELECT l.id FROM location l JOIN subtree s ON l.parent_id = s.id
		)
		SELECT ` + locCols + ` FROM location
		WHERE usage = 'bed' AND active AND id IN (SELECT id FROM subtree)
		ORDER BY name`
		args = append(args, *rootID)
	}

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beds []*Location
	for rows.Next() {
		loc, err := scanLoc(rows)
		if err != nil {
			return nil, err
		}
		beds = append(beds, loc)
	}
	return beds, rows.Err()
}

func (r *repoPG) Occupants(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id FROM patient WHERE current_location_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var pid uuid.UUID
		if err := rows.Scan(&pid); err != nil {
			return nil, err
		}
		ids = append(ids, pid)
	}
	return ids, rows.Err()
}

func (r *repoPG) CreatePOS(ctx context.Context, pos *POS) error {
	if pos.ID == uuid.Nil {
		pos.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO pos (id, name, location_id) VALUES ($1,$2,$3)`,
		pos.ID, pos.Name, pos.LocationID,
	)
	return err
}

func (r *repoPG) GetPOS(ctx context.Context, id uuid.UUID) (*POS, error) {
	var p POS
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, name, location_id, created_at FROM pos WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.LocationID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanLoc(row pgx.Row) (*Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.Name, &l.Code, &l.Usage, &l.ParentID, &l.Active, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
