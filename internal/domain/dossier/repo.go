package dossier

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("dossier not found")

type Repository interface {
	Create(ctx context.Context, d *Dossier) error
	Update(ctx context.Context, d *Dossier) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dossier, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Dossier, error)

	// FindLatestOpen returns the patient's most recently admitted open
	// dossier, or nil.
	FindLatestOpen(ctx context.Context, patientID uuid.UUID) (*Dossier, error)

	// ReassignPatient moves every dossier owned by fromPatient to toPatient
	// and returns the number moved. Used by the merge engine.
	ReassignPatient(ctx context.Context, fromPatient, toPatient uuid.UUID) (int, error)
}
