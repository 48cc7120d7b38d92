package patient

import (
	"context"
	"errors"
	"fmt"

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

const patientCols = `id, ipp, external_ref, primary_identifier,
	family_name, given_name, birth_date, gender,
	address_line, city, postal_code, country, phone, email,
	merged, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.IPP == "" {
		var seq int64
		if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('patient_ipp_seq')`).Scan(&seq); err != nil {
			return fmt.Errorf("next ipp: %w", err)
		}
		p.IPP = fmt.Sprintf("IPP%08d", seq)
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (
			id, ipp, external_ref, primary_identifier,
			family_name, given_name, birth_date, gender,
			address_line, city, postal_code, country, phone, email, merged
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		p.ID, p.IPP, p.ExternalRef, p.PrimaryIdentifier,
		p.FamilyName, p.GivenName, p.BirthDate, p.Gender,
		p.AddressLine, p.City, p.PostalCode, p.Country, p.Phone, p.Email, p.Merged,
	)
	return err
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET
			ipp=$2, external_ref=$3, primary_identifier=$4,
			family_name=$5, given_name=$6, birth_date=$7, gender=$8,
			address_line=$9, city=$10, postal_code=$11, country=$12,
			phone=$13, email=$14, merged=$15, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.IPP, p.ExternalRef, p.PrimaryIdentifier,
		p.FamilyName, p.GivenName, p.BirthDate, p.Gender,
		p.AddressLine, p.City, p.PostalCode, p.Country,
		p.Phone, p.Email, p.Merged,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *repoPG) FindByExternalRef(ctx context.Context, ref string) (*Patient, error) {
	if ref == "" {
		return nil, nil
	}
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE external_ref = $1 AND NOT merged`, ref))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repoPG) FindByPrimaryIdentifier(ctx context.Context, value string) (*Patient, error) {
	if value == "" {
		return nil, nil
	}
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE primary_identifier = $1 AND NOT merged`, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repoPG) Search(ctx context.Context, crit SearchCriteria, limit, offset int) ([]*Patient, int, error) {
	where := "NOT p.merged"
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if crit.Family != "" {
		where += ` AND p.family_name ILIKE ` + arg("%"+crit.Family+"%")
	}
	if crit.Given != "" {
		where += ` AND p.given_name ILIKE ` + arg("%"+crit.Given+"%")
	}
	if crit.BirthDate != "" {
		where += ` AND p.birth_date = ` + arg(crit.BirthDate)
	}
	if crit.Gender != "" {
		where += ` AND p.gender = ` + arg(crit.Gender)
	}
	if crit.IdentValue != "" {
		sub := `EXISTS (SELECT 1 FROM identifier i
			WHERE i.owner_kind = 'patient' AND i.owner_id = p.id
			AND i.status = 'active' AND i.value = ` + arg(crit.IdentValue)
		if crit.IdentSystem != "" {
			sub += ` AND i.system = ` + arg(crit.IdentSystem)
		}
		where += ` AND ` + sub + `)`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient p WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + prefixCols("p.") + ` FROM patient p WHERE ` + where +
		` ORDER BY p.family_name, p.given_name LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*Patient
	for rows.Next() {
		p, err := scanPatientRow(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

func prefixCols(prefix string) string {
	return prefix + `id, ` + prefix + `ipp, ` + prefix + `external_ref, ` + prefix + `primary_identifier,
	` + prefix + `family_name, ` + prefix + `given_name, ` + prefix + `birth_date, ` + prefix + `gender,
	` + prefix + `address_line, ` + prefix + `city, ` + prefix + `postal_code, ` + prefix + `country,
	` + prefix + `phone, ` + prefix + `email, ` + prefix + `merged, ` + prefix + `created_at, ` + prefix + `updated_at`
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.IPP, &p.ExternalRef, &p.PrimaryIdentifier,
		&p.FamilyName, &p.GivenName, &p.BirthDate, &p.Gender,
		&p.AddressLine, &p.City, &p.PostalCode, &p.Country, &p.Phone, &p.Email,
		&p.Merged, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPatientRow(rows pgx.Rows) (*Patient, error) {
	var p Patient
	err := rows.Scan(&p.ID, &p.IPP, &p.ExternalRef, &p.PrimaryIdentifier,
		&p.FamilyName, &p.GivenName, &p.BirthDate, &p.Gender,
		&p.AddressLine, &p.City, &p.PostalCode, &p.Country, &p.Phone, &p.Email,
		&p.Merged, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
