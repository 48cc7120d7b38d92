package pam

import (
	"time"

	"github.com/pam/pam/internal/platform/hl7v2"
)

// Fields is the flattened view of an administrative message that the router
// hands to event handlers: patient identity, demographics, and visit data,
// already pulled out of their segments.
type Fields struct {
	ControlID string

	// PatientIdentifiers are the PID-3 repetitions in composite form, in
	// message order, which is also resolution order.
	PatientIdentifiers []string

	Family    string
	Given     string
	BirthDate string // YYYYMMDD
	Gender    string

	VisitNumber          string
	PatientClass         string
	Location             string
	PriorLocation        string
	AttendingDoctor      string
	DischargeDisposition string

	// EventTime is the movement time from the ZBE segment when present,
	// otherwise the message timestamp.
	EventTime time.Time

	MovementID string
}

// FieldsFromMessage extracts the router's working set from a parsed message.
func FieldsFromMessage(msg *hl7v2.Message) Fields {
	family, given := msg.PatientName()

	f := Fields{
		ControlID:            msg.ControlID,
		PatientIdentifiers:   msg.PatientIdentifiers(),
		Family:               family,
		Given:                given,
		BirthDate:            msg.DateOfBirth(),
		Gender:               msg.Gender(),
		VisitNumber:          msg.VisitNumber(),
		PatientClass:         msg.PatientClass(),
		Location:             msg.AssignedLocation(),
		PriorLocation:        msg.PriorLocation(),
		AttendingDoctor:      msg.AttendingDoctor(),
		DischargeDisposition: msg.DischargeDisposition(),
		EventTime:            msg.Timestamp,
		MovementID:           msg.MovementID(),
	}
	if t := msg.MovementTime(); !t.IsZero() {
		f.EventTime = t
	}
	if f.EventTime.IsZero() {
		f.EventTime = time.Now().UTC()
	}
	return f
}

func (f Fields) hint() DemographicHint {
	return DemographicHint{
		Family:    f.Family,
		Given:     f.Given,
		BirthDate: f.BirthDate,
		Gender:    f.Gender,
	}
}
