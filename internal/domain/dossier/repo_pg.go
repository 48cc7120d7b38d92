package dossier

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

const dossierCols = `id, patient_id, class, status, admit_time, discharge_time,
	attending_provider, discharge_disposition, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, d *Dossier) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dossier (id, patient_id, class, status, admit_time, discharge_time,
			attending_provider, discharge_disposition)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		d.ID, d.PatientID, string(d.Class), string(d.Status),
		d.AdmitTime, d.DischargeTime, d.AttendingProvider, d.DischargeDisposition,
	)
	return err
}

func (r *repoPG) Update(ctx context.Context, d *Dossier) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE dossier SET
			patient_id=$2, class=$3, status=$4, admit_time=$5, discharge_time=$6,
			attending_provider=$7, discharge_disposition=$8, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.PatientID, string(d.Class), string(d.Status),
		d.AdmitTime, d.DischargeTime, d.AttendingProvider, d.DischargeDisposition,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Dossier, error) {
	d, err := scanDossier(r.conn(ctx).QueryRow(ctx,
		`SELECT `+dossierCols+` FROM dossier WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Dossier, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+dossierCols+` FROM dossier WHERE patient_id = $1 ORDER BY admit_time`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Dossier
	for rows.Next() {
		var d Dossier
		var class, status string
		if err := rows.Scan(&d.ID, &d.PatientID, &class, &status,
			&d.AdmitTime, &d.DischargeTime, &d.AttendingProvider, &d.DischargeDisposition,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Class = Class(class)
		d.Status = Status(status)
		result = append(result, &d)
	}
	return result, rows.Err()
}

func (r *repoPG) FindLatestOpen(ctx context.Context, patientID uuid.UUID) (*Dossier, error) {
	d, err := scanDossier(r.conn(ctx).QueryRow(ctx, `
		SELECT `+dossierCols+` FROM dossier
		WHERE patient_id = $1 AND status = $2
		ORDER BY admit_time DESC NULLS LAST LIMIT 1`,
		patientID, string(StatusOpen)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (r *repoPG) ReassignPatient(ctx context.Context, fromPatient, toPatient uuid.UUID) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE dossier SET patient_id = $2, updated_at = NOW() WHERE patient_id = $1`,
		fromPatient, toPatient)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanDossier(row pgx.Row) (*Dossier, error) {
	var d Dossier
	var class, status string
	err := row.Scan(&d.ID, &d.PatientID, &class, &status,
		&d.AdmitTime, &d.DischargeTime, &d.AttendingProvider, &d.DischargeDisposition,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Class = Class(class)
	d.Status = Status(status)
	return &d, nil
}
