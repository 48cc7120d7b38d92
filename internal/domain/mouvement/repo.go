package mouvement

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("mouvement not found")

type Repository interface {
	Create(ctx context.Context, m *Mouvement) error
	Update(ctx context.Context, m *Mouvement) error
	GetByID(ctx context.Context, id uuid.UUID) (*Mouvement, error)
	ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*Mouvement, error)

	// FindLatestByTrigger returns the venue's most recent non-cancelled
	// movement with the given trigger code, or nil. Used to locate the
	// movement a cancellation event voids.
	FindLatestByTrigger(ctx context.Context, venueID uuid.UUID, trigger string) (*Mouvement, error)
}
