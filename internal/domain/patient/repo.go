package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by GetByID for an absent patient. The Find-style
// lookups report absence with a nil patient instead, because a miss there is
// an ordinary resolution outcome.
var ErrNotFound = errors.New("patient not found")

type Repository interface {
	// Create stores a new patient, assigning the ID and, when empty, the
	// sequential IPP business key.
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// FindByExternalRef returns the patient whose external reference key
	// equals ref, or nil.
	FindByExternalRef(ctx context.Context, ref string) (*Patient, error)

	// FindByPrimaryIdentifier returns the patient whose free-text primary
	// identifier equals value, or nil.
	FindByPrimaryIdentifier(ctx context.Context, value string) (*Patient, error)

	// Search runs a demographic query: case-insensitive substring match on
	// names, exact match on birth date and gender, and an identifier join
	// when an (system, value) pair is supplied. Absent filters are not
	// applied.
	Search(ctx context.Context, crit SearchCriteria, limit, offset int) ([]*Patient, int, error)
}
