package auditevent

import (
	"time"

	"github.com/google/uuid"
)

// Direction of the audited exchange.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Kind of audited operation.
const (
	KindEvent             = "event" // administrative trigger event
	KindMerge             = "merge"
	KindCrossReference    = "xref"
	KindDemographicSearch = "pdq"
	KindQuery             = "query" // mixed identifier/demographic query string
)

// Status of the audited operation.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// AuditEvent maps to the audit_event table: one record per processed
// administrative event or query, success or failure.
type AuditEvent struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Direction     string    `db:"direction" json:"direction"`
	Kind          string    `db:"kind" json:"kind"`
	CorrelationID string    `db:"correlation_id" json:"correlation_id"` // MSH-10 or query id
	Status        string    `db:"status" json:"status"`
	Detail        string    `db:"detail" json:"detail,omitempty"` // payload/result summary
	Recorded      time.Time `db:"recorded" json:"recorded"`
}
