package mouvement

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

const mouvementCols = `id, venue_id, trigger, occurred_at, from_location, to_location,
	cancels_id, cancelled, created_at`

func (r *repoPG) Create(ctx context.Context, m *Mouvement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO mouvement (id, venue_id, trigger, occurred_at, from_location, to_location,
			cancels_id, cancelled)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.ID, m.VenueID, m.Trigger, m.OccurredAt, m.FromLocation, m.ToLocation,
		m.CancelsID, m.Cancelled,
	)
	return err
}

func (r *repoPG) Update(ctx context.Context, m *Mouvement) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE mouvement SET
			venue_id=$2, trigger=$3, occurred_at=$4, from_location=$5, to_location=$6,
			cancels_id=$7, cancelled=$8
		WHERE id = $1`,
		m.ID, m.VenueID, m.Trigger, m.OccurredAt, m.FromLocation, m.ToLocation,
		m.CancelsID, m.Cancelled,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Mouvement, error) {
	m, err := scanMouvement(r.conn(ctx).QueryRow(ctx,
		`SELECT `+mouvementCols+` FROM mouvement WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

func (r *repoPG) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*Mouvement, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+mouvementCols+` FROM mouvement WHERE venue_id = $1 ORDER BY occurred_at`, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Mouvement
	for rows.Next() {
		var m Mouvement
		if err := rows.Scan(&m.ID, &m.VenueID, &m.Trigger, &m.OccurredAt,
			&m.FromLocation, &m.ToLocation, &m.CancelsID, &m.Cancelled, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	return result, rows.Err()
}

func (r *repoPG) FindLatestByTrigger(ctx context.Context, venueID uuid.UUID, trigger string) (*Mouvement, error) {
	m, err := scanMouvement(r.conn(ctx).QueryRow(ctx, `
		SELECT `+mouvementCols+` FROM mouvement
		WHERE venue_id = $1 AND trigger = $2 AND NOT cancelled
		ORDER BY occurred_at DESC LIMIT 1`,
		venueID, trigger))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func scanMouvement(row pgx.Row) (*Mouvement, error) {
	var m Mouvement
	err := row.Scan(&m.ID, &m.VenueID, &m.Trigger, &m.OccurredAt,
		&m.FromLocation, &m.ToLocation, &m.CancelsID, &m.Cancelled, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
