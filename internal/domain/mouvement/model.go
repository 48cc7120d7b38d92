package mouvement

import (
	"time"

	"github.com/google/uuid"
)

// Mouvement maps to the mouvement table: one atomic movement/event record,
// owned by exactly one venue. Cancellation never deletes the cancelled
// movement; it marks it and links the cancelling movement to it.
type Mouvement struct {
	ID      uuid.UUID `db:"id" json:"id"`
	VenueID uuid.UUID `db:"venue_id" json:"venue_id"`

	Trigger      string    `db:"trigger" json:"trigger"` // ADT trigger code (A01, A02, ...)
	OccurredAt   time.Time `db:"occurred_at" json:"occurred_at"`
	FromLocation string    `db:"from_location" json:"from_location,omitempty"`
	ToLocation   string    `db:"to_location" json:"to_location,omitempty"`

	// CancelsID links a cancellation movement to the movement it voids.
	CancelsID *uuid.UUID `db:"cancels_id" json:"cancels_id,omitempty"`

	// Cancelled marks a movement voided by a later cancellation event.
	Cancelled bool `db:"cancelled" json:"cancelled"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
