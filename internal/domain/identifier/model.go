package identifier

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type is the closed enumeration of identifier types (HL7 table 0203 subset).
type Type string

const (
	TypePermanentPatientID Type = "PI" // permanent patient identifier
	TypeAccountNumber      Type = "AN" // episode account number
	TypeVisitNumber        Type = "VN" // visit number
	TypeInternalPatientID  Type = "PN" // internal patient identifier
	TypeGlobalPatientID    Type = "NH" // global/national patient identifier
	TypeSocialSecurityID   Type = "SS" // social security identifier
	TypeContactPersonID    Type = "CP" // contact person identifier
	TypeMovementID         Type = "MV" // movement identifier
	TypeFacilityID         Type = "FI" // facility identifier
	TypeNone               Type = ""   // unset
)

// DefaultType is the fallback applied when an external system sends an
// unrecognized type code; foreign vocabularies are tolerated, not rejected.
const DefaultType = TypePermanentPatientID

var knownTypes = map[Type]bool{
	TypePermanentPatientID: true,
	TypeAccountNumber:      true,
	TypeVisitNumber:        true,
	TypeInternalPatientID:  true,
	TypeGlobalPatientID:    true,
	TypeSocialSecurityID:   true,
	TypeContactPersonID:    true,
	TypeMovementID:         true,
	TypeFacilityID:         true,
}

// ParseType maps an external type code onto the closed enumeration. Unknown
// non-empty codes fall back to DefaultType; empty stays unset.
func ParseType(code string) Type {
	if code == "" {
		return TypeNone
	}
	t := Type(code)
	if knownTypes[t] {
		return t
	}
	return DefaultType
}

// Status is the lifecycle state of an identifier binding.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	// StatusOld marks an identifier retagged during a merge; the value is
	// kept under the survivor for audit, never deleted.
	StatusOld Status = "old"
)

// OwnerKind names which entity an identifier is bound to.
type OwnerKind string

const (
	OwnerPatient   OwnerKind = "patient"
	OwnerDossier   OwnerKind = "dossier"
	OwnerVenue     OwnerKind = "venue"
	OwnerMouvement OwnerKind = "mouvement"
)

// OwnerRef is a closed sum over the four owner kinds. An identifier is owned
// by exactly one entity; construct refs with the typed helpers below so the
// exactly-one-case rule holds at construction time.
type OwnerRef struct {
	Kind OwnerKind
	ID   uuid.UUID
}

func PatientOwner(id uuid.UUID) OwnerRef   { return OwnerRef{Kind: OwnerPatient, ID: id} }
func DossierOwner(id uuid.UUID) OwnerRef   { return OwnerRef{Kind: OwnerDossier, ID: id} }
func VenueOwner(id uuid.UUID) OwnerRef     { return OwnerRef{Kind: OwnerVenue, ID: id} }
func MouvementOwner(id uuid.UUID) OwnerRef { return OwnerRef{Kind: OwnerMouvement, ID: id} }

func (o OwnerRef) String() string {
	return fmt.Sprintf("%s/%s", o.Kind, o.ID)
}

// Valid reports whether the ref names a known kind and a concrete entity.
func (o OwnerRef) Valid() bool {
	switch o.Kind {
	case OwnerPatient, OwnerDossier, OwnerVenue, OwnerMouvement:
		return o.ID != uuid.Nil
	}
	return false
}

// Identifier maps to the identifier table: one external identifier value
// scoped to an assigning authority (System, OID) and bound to exactly one
// owning entity.
type Identifier struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Value      string    `db:"value" json:"value"`
	Type       Type      `db:"type" json:"type"`
	System     string    `db:"system" json:"system"`
	OID        string    `db:"oid" json:"oid,omitempty"`
	Status     Status    `db:"status" json:"status"`
	Owner      OwnerRef  `json:"owner"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// New builds an active identifier bound to owner. It returns an error when
// the owner ref does not name exactly one concrete entity.
func New(value string, typ Type, system, oid string, owner OwnerRef) (*Identifier, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("identifier: invalid owner ref %v", owner)
	}
	now := time.Now().UTC()
	return &Identifier{
		ID:         uuid.New(),
		Value:      value,
		Type:       typ,
		System:     system,
		OID:        oid,
		Status:     StatusActive,
		Owner:      owner,
		AssignedAt: now,
		UpdatedAt:  now,
	}, nil
}
