package identifier

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

const idCols = `id, value, type, system, oid, status, owner_kind, owner_id, assigned_at, updated_at`

func (r *repoPG) Create(ctx context.Context, id *Identifier) error {
	if id.ID == uuid.Nil {
		id.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO identifier (id, value, type, system, oid, status, owner_kind, owner_id, assigned_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())`,
		id.ID, id.Value, string(id.Type), id.System, id.OID, string(id.Status),
		string(id.Owner.Kind), id.Owner.ID,
	)
	return err
}

func (r *repoPG) Update(ctx context.Context, id *Identifier) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE identifier SET
			value=$2, type=$3, system=$4, oid=$5, status=$6,
			owner_kind=$7, owner_id=$8, updated_at=NOW()
		WHERE id = $1`,
		id.ID, id.Value, string(id.Type), id.System, id.OID, string(id.Status),
		string(id.Owner.Kind), id.Owner.ID,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Identifier, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+idCols+` FROM identifier WHERE id = $1`, id)
	ident, err := scanIdentifier(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ident, err
}

func (r *repoPG) FindActive(ctx context.Context, value, system, oid string) ([]*Identifier, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+idCols+` FROM identifier
		WHERE value = $1 AND system = $2 AND oid = $3 AND status = $4`,
		value, system, oid, string(StatusActive),
	)
	if err != nil {
		return nil, err
	}
	return scanIdentifiers(rows)
}

func (r *repoPG) FindActivePatientOwned(ctx context.Context, value string) ([]*Identifier, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+idCols+` FROM identifier
		WHERE value = $1 AND status = $2 AND owner_kind = $3
		ORDER BY assigned_at`,
		value, string(StatusActive), string(OwnerPatient),
	)
	if err != nil {
		return nil, err
	}
	return scanIdentifiers(rows)
}

func (r *repoPG) FindByOwnerScope(ctx context.Context, owner OwnerRef, value, system, oid string) (*Identifier, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT `+idCols+` FROM identifier
		WHERE owner_kind = $1 AND owner_id = $2 AND value = $3 AND system = $4 AND oid = $5`,
		string(owner.Kind), owner.ID, value, system, oid,
	)
	ident, err := scanIdentifier(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ident, err
}

func (r *repoPG) ListByOwner(ctx context.Context, owner OwnerRef) ([]*Identifier, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+idCols+` FROM identifier
		WHERE owner_kind = $1 AND owner_id = $2
		ORDER BY assigned_at`,
		string(owner.Kind), owner.ID,
	)
	if err != nil {
		return nil, err
	}
	return scanIdentifiers(rows)
}

func scanIdentifier(row pgx.Row) (*Identifier, error) {
	var id Identifier
	var typ, status, ownerKind string
	err := row.Scan(&id.ID, &id.Value, &typ, &id.System, &id.OID, &status,
		&ownerKind, &id.Owner.ID, &id.AssignedAt, &id.UpdatedAt)
	if err != nil {
		return nil, err
	}
	id.Type = Type(typ)
	id.Status = Status(status)
	id.Owner.Kind = OwnerKind(ownerKind)
	return &id, nil
}

func scanIdentifiers(rows pgx.Rows) ([]*Identifier, error) {
	defer rows.Close()
	var result []*Identifier
	for rows.Next() {
		var id Identifier
		var typ, status, ownerKind string
		if err := rows.Scan(&id.ID, &id.Value, &typ, &id.System, &id.OID, &status,
			&ownerKind, &id.Owner.ID, &id.AssignedAt, &id.UpdatedAt); err != nil {
			return nil, err
		}
		id.Type = Type(typ)
		id.Status = Status(status)
		id.Owner.Kind = OwnerKind(ownerKind)
		result = append(result, &id)
	}
	return result, rows.Err()
}
