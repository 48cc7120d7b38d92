package venue

import (
	"time"

	"github.com/google/uuid"
)

// Status is the operational state of a venue (physical stay).
type Status string

const (
	StatusActive  Status = "active"
	StatusOnLeave Status = "onleave"
	StatusClosed  Status = "closed"
)

// Venue maps to the venue table: one physical stay/encounter instance,
// owned by exactly one dossier.
type Venue struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DossierID uuid.UUID `db:"dossier_id" json:"dossier_id"`

	// Location is the assigned patient location in HL7 PL form
	// (point of care^room^bed^facility).
	Location    string     `db:"location" json:"location,omitempty"`
	Status      Status     `db:"status" json:"status"`
	PeriodStart *time.Time `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd   *time.Time `db:"period_end" json:"period_end,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
