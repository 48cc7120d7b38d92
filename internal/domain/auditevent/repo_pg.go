package auditevent

import (
	"context"

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

func (r *repoPG) Create(ctx context.Context, e *AuditEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_event (id, direction, kind, correlation_id, status, detail)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.Direction, e.Kind, e.CorrelationID, e.Status, e.Detail,
	)
	return err
}

func (r *repoPG) List(ctx context.Context, kind string, limit, offset int) ([]*AuditEvent, int, error) {
	where := `$1 = '' OR kind = $1`

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_event WHERE `+where, kind).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, direction, kind, correlation_id, status, detail, recorded
		FROM audit_event WHERE `+where+`
		ORDER BY recorded DESC
		LIMIT $2 OFFSET $3`, kind, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*AuditEvent
	for rows.Next() {
		var e AuditEvent
		if err := rows.Scan(&e.ID, &e.Direction, &e.Kind, &e.CorrelationID,
			&e.Status, &e.Detail, &e.Recorded); err != nil {
			return nil, 0, err
		}
		result = append(result, &e)
	}
	return result, total, rows.Err()
}
