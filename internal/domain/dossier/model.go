package dossier

import (
	"time"

	"github.com/google/uuid"
)

// Class is the episode classification.
type Class string

const (
	ClassInpatient  Class = "inpatient"
	ClassOutpatient Class = "outpatient"
	ClassEmergency  Class = "emergency"
)

// ClassFromPatientClass maps a PV1-2 patient class code onto the episode
// classification; unknown codes default to outpatient.
func ClassFromPatientClass(code string) Class {
	switch code {
	case "I":
		return ClassInpatient
	case "E":
		return ClassEmergency
	default:
		return ClassOutpatient
	}
}

// Status is the administrative lifecycle state of a dossier.
type Status string

const (
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

// Dossier maps to the dossier table: one administrative episode, owned by
// exactly one patient.
type Dossier struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`

	Class                Class      `db:"class" json:"class"`
	Status               Status     `db:"status" json:"status"`
	AdmitTime            *time.Time `db:"admit_time" json:"admit_time,omitempty"`
	DischargeTime        *time.Time `db:"discharge_time" json:"discharge_time,omitempty"`
	AttendingProvider    string     `db:"attending_provider" json:"attending_provider,omitempty"`
	DischargeDisposition string     `db:"discharge_disposition" json:"discharge_disposition,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
