package identifier

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get-style lookups for an absent identifier.
// Find-style searches report absence with an empty result instead.
var ErrNotFound = errors.New("identifier not found")

type Repository interface {
	Create(ctx context.Context, id *Identifier) error
	Update(ctx context.Context, id *Identifier) error
	GetByID(ctx context.Context, id uuid.UUID) (*Identifier, error)

	// FindActive returns all active identifiers carrying value within the
	// (system, oid) authority scope, regardless of owner.
	FindActive(ctx context.Context, value, system, oid string) ([]*Identifier, error)

	// FindActivePatientOwned returns all active patient-owned identifiers
	// carrying value, across every authority.
	FindActivePatientOwned(ctx context.Context, value string) ([]*Identifier, error)

	// FindByOwnerScope returns the identifier bound to owner with the given
	// (value, system, oid) tuple in any status, or nil when absent. Used to
	// update a recurring binding in place.
	FindByOwnerScope(ctx context.Context, owner OwnerRef, value, system, oid string) (*Identifier, error)

	// ListByOwner returns every identifier bound to owner, active and
	// historical.
	ListByOwner(ctx context.Context, owner OwnerRef) ([]*Identifier, error)
}
