package venue

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pam/pam/internal/platform/db"
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
	return r.pool
}

const venueCols = `id, dossier_id, location, status, period_start, period_end, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, v *Venue) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO venue (id, dossier_id, location, status, period_start, period_end)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		v.ID, v.DossierID, v.Location, string(v.Status), v.PeriodStart, v.PeriodEnd,
	)
	return err
}

func (r *repoPG) Update(ctx context.Context, v *Venue) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE venue SET
			dossier_id=$2, location=$3, status=$4, period_start=$5, period_end=$6, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.DossierID, v.Location, string(v.Status), v.PeriodStart, v.PeriodEnd,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Venue, error) {
	v, err := scanVenue(r.conn(ctx).QueryRow(ctx,
		`SELECT `+venueCols+` FROM venue WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

func (r *repoPG) ListByDossier(ctx context.Context, dossierID uuid.UUID) ([]*Venue, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+venueCols+` FROM venue WHERE dossier_id = $1 ORDER BY period_start`, dossierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Venue
	for rows.Next() {
		var v Venue
		var status string
		if err := rows.Scan(&v.ID, &v.DossierID, &v.Location, &status,
			&v.PeriodStart, &v.PeriodEnd, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		v.Status = Status(status)
		result = append(result, &v)
	}
	return result, rows.Err()
}

func (r *repoPG) FindCurrent(ctx context.Context, dossierID uuid.UUID) (*Venue, error) {
	v, err := scanVenue(r.conn(ctx).QueryRow(ctx, `
		SELECT `+venueCols+` FROM venue
		WHERE dossier_id = $1 AND status <> $2
		ORDER BY period_start DESC NULLS LAST LIMIT 1`,
		dossierID, string(StatusClosed)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func scanVenue(row pgx.Row) (*Venue, error) {
	var v Venue
	var status string
	err := row.Scan(&v.ID, &v.DossierID, &v.Location, &status,
		&v.PeriodStart, &v.PeriodEnd, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Status = Status(status)
	return &v, nil
}
