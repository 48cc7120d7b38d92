package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/pam/pam/internal/platform/fhir"
)

// Patient maps to the patient table: one person identity, owning dossiers
// and identifiers.
type Patient struct {
	ID uuid.UUID `db:"id" json:"id"`

	// IPP is the locally-assigned sequential business key (identifiant
	// permanent du patient). A merge archives the source by prefixing it,
	// never by deleting the row.
	IPP string `db:"ipp" json:"ipp"`

	// ExternalRef is an optional reference key assigned by an upstream
	// system; legacy seed data may carry identity only here.
	ExternalRef string `db:"external_ref" json:"external_ref,omitempty"`

	// PrimaryIdentifier is the free-text primary identifier, the last
	// fallback of identity resolution.
	PrimaryIdentifier string `db:"primary_identifier" json:"primary_identifier,omitempty"`

	FamilyName string `db:"family_name" json:"family_name"`
	GivenName  string `db:"given_name" json:"given_name"`
	BirthDate  string `db:"birth_date" json:"birth_date,omitempty"` // YYYYMMDD
	Gender     string `db:"gender" json:"gender,omitempty"`         // M, F, O, U

	AddressLine string `db:"address_line" json:"address_line,omitempty"`
	City        string `db:"city" json:"city,omitempty"`
	PostalCode  string `db:"postal_code" json:"postal_code,omitempty"`
	Country     string `db:"country" json:"country,omitempty"`
	Phone       string `db:"phone" json:"phone,omitempty"`
	Email       string `db:"email" json:"email,omitempty"`

	// Merged marks a record archived as the source of an identity merge.
	Merged bool `db:"merged" json:"merged"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SearchCriteria filters a demographic query. Zero-valued fields are not
// applied.
type SearchCriteria struct {
	Family      string
	Given       string
	BirthDate   string // YYYYMMDD
	Gender      string
	IdentSystem string
	IdentValue  string
}

// Empty reports whether no filter at all is set.
func (c SearchCriteria) Empty() bool {
	return c == SearchCriteria{}
}

var genderMap = map[string]string{
	"M": "male",
	"F": "female",
	"O": "other",
	"U": "unknown",
}

func (p *Patient) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Patient",
		"id":           p.ID.String(),
		"name": []fhir.HumanName{
			{Use: "official", Family: p.FamilyName, Given: []string{p.GivenName}},
		},
		"active": !p.Merged,
		"meta": fhir.Meta{
			LastUpdated: p.UpdatedAt,
		},
	}

	if g, ok := genderMap[p.Gender]; ok {
		result["gender"] = g
	}
	if len(p.BirthDate) == 8 {
		result["birthDate"] = p.BirthDate[:4] + "-" + p.BirthDate[4:6] + "-" + p.BirthDate[6:]
	}
	if p.AddressLine != "" || p.City != "" {
		result["address"] = []fhir.Address{{
			Use:        "home",
			Line:       []string{p.AddressLine},
			City:       p.City,
			PostalCode: p.PostalCode,
			Country:    p.Country,
		}}
	}

	var telecom []fhir.ContactPoint
	if p.Phone != "" {
		telecom = append(telecom, fhir.ContactPoint{System: "phone", Value: p.Phone})
	}
	if p.Email != "" {
		telecom = append(telecom, fhir.ContactPoint{System: "email", Value: p.Email})
	}
	if len(telecom) > 0 {
		result["telecom"] = telecom
	}

	return result
}
