package venue

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("venue not found")

type Repository interface {
	Create(ctx context.Context, v *Venue) error
	Update(ctx context.Context, v *Venue) error
	GetByID(ctx context.Context, id uuid.UUID) (*Venue, error)
	ListByDossier(ctx context.Context, dossierID uuid.UUID) ([]*Venue, error)

	// FindCurrent returns the dossier's most recent non-closed venue, or nil.
	FindCurrent(ctx context.Context, dossierID uuid.UUID) (*Venue, error)
}
