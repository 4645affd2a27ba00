package activity

import (
	"context"
	"fmt"
	"strings"

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

const actCols = `a.id, a.data_model, a.data_ref, a.state, a.parent_id, a.creator_id,
	a.patient_id, a.location_id, a.sequence, a.date_terminated, a.created_at, a.updated_at`

func (r *repoPG) Create(ctx context.Context, act *Activity) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO activity (
			id, data_model, data_ref, state, parent_id, creator_id,
			patient_id, location_id, date_terminated, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING sequence`,
		act.ID, act.DataModel, act.DataRef, act.State, act.ParentID, act.CreatorID,
		act.PatientID, act.LocationID, act.DateTerminated, act.CreatedAt, act.UpdatedAt,
	).Scan(&act.Sequence)
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Activity, error) {
	return scanAct(r.conn(ctx).QueryRow(ctx,
		`SELECT `+actCols+` FROM activity a WHERE a.id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, act *Activity) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE activity SET
			data_ref=$2, state=$3, parent_id=$4, creator_id=$5,
			patient_id=$6, location_id=$7, date_terminated=$8, updated_at=$9
		WHERE id = $1`,
		act.ID, act.DataRef, act.State, act.ParentID, act.CreatorID,
		act.PatientID, act.LocationID, act.DateTerminated, act.UpdatedAt,
	)
	return err
}

func (r *repoPG) Search(ctx context.Context, f Filter, order Order) ([]*Activity, error) {
	var (
		where []string
		args  []interface{}
		cte   string
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.DataModel != "" {
		where = append(where, "a.data_model = "+arg(f.DataModel))
	}
	if f.PatientID != nil {
		where = append(where, "a.patient_id = "+arg(*f.PatientID))
	}
	if f.ParentID != nil {
		where = append(where, "a.parent_id = "+arg(*f.ParentID))
	}
	if len(f.States) > 0 {
		where = append(where, "a.state = ANY("+arg(stateStrings(f.States))+")")
	}
	if len(f.NotStates) > 0 {
		where = append(where, "NOT (a.state = ANY("+arg(stateStrings(f.NotStates))+"))")
	}
	if len(f.ParentStates) > 0 {
		where = append(where, `a.parent_id IN (
			SELECT p.id FROM activity p WHERE p.state = ANY(`+arg(stateStrings(f.ParentStates))+`))`)
	}
	if f.ChildOf != nil {
		cte = `WITH RECURSIVE subtree AS (
			SELECT id FROM activity WHERE id = ` + arg(*f.ChildOf) + `
			UNION
			SELECT c.id FROM activity c JOIN subtree s ON c.parent_id = s.id
		) `
		where = append(where, "a.id IN (SELECT id FROM subtree)")
	}

	sql := cte + `SELECT ` + actCols + ` FROM activity a`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	switch order {
	case OrderSequenceDesc:
		sql += " ORDER BY a.sequence DESC"
	case OrderTerminatedDesc:
		sql += " ORDER BY a.date_terminated DESC NULLS LAST, a.sequence DESC"
	default:
		sql += " ORDER BY a.sequence ASC"
	}

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var acts []*Activity
	for rows.Next() {
		act, err := scanAct(rows)
		if err != nil {
			return nil, err
		}
		acts = append(acts, act)
	}
	return acts, rows.Err()
}

func stateStrings(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func scanAct(row pgx.Row) (*Activity, error) {
	var a Activity
	err := row.Scan(
		&a.ID, &a.DataModel, &a.DataRef, &a.State, &a.ParentID, &a.CreatorID,
		&a.PatientID, &a.LocationID, &a.Sequence, &a.DateTerminated, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
