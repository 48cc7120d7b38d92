package identifier

import (
	"strings"

	"github.com/pam/pam/internal/platform/fhir"
)

// TypeCodingSystem is the terminology URI under which identifier type codes
// are exchanged in structured form (HL7 table 0203).
const TypeCodingSystem = "http://terminology.hl7.org/CodeSystem/v2-0203"

// compositeSep separates the components of a composite (CX) identifier
// string: value^checkDigit^checkDigitScheme^authority^typeCode.
const compositeSep = "^"

const (
	compositeValuePos     = 0
	compositeAuthorityPos = 3
	compositeTypePos      = 4
)

// DecodeComposite splits a composite identifier string into its value,
// assigning authority, and type code. Short inputs are valid: absent
// positions decode to the empty string, never an error, since senders
// routinely omit trailing components.
func DecodeComposite(s string) (value, authority, typeCode string) {
	parts := strings.Split(s, compositeSep)
	// Pad to full length so positional access needs no bounds checks.
	for len(parts) <= compositeTypePos {
		parts = append(parts, "")
	}
	return parts[compositeValuePos], parts[compositeAuthorityPos], parts[compositeTypePos]
}

// EncodeComposite renders an identifier in composite string form, padding
// intermediate components with empty strings up to the last populated
// position.
func EncodeComposite(id Identifier) string {
	parts := []string{id.Value}

	last := compositeValuePos
	if id.System != "" {
		last = compositeAuthorityPos
	}
	if id.Type != TypeNone {
		last = compositeTypePos
	}

	for len(parts) <= last {
		parts = append(parts, "")
	}
	if id.System != "" {
		parts[compositeAuthorityPos] = id.System
	}
	if id.Type != TypeNone {
		parts[compositeTypePos] = string(id.Type)
	}

	return strings.Join(parts, compositeSep)
}

// ToStructured converts an identifier into its FHIR interchange shape. The
// type field is omitted entirely when the identifier has no type.
func ToStructured(id Identifier) fhir.Identifier {
	out := fhir.Identifier{
		Use:    "official",
		System: id.System,
		Value:  id.Value,
	}
	if id.Type != TypeNone {
		out.Type = &fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: TypeCodingSystem, Code: string(id.Type)}},
		}
	}
	return out
}

// FromStructured converts a FHIR identifier back into the canonical model.
// The type code is looked up only within the TypeCodingSystem coding array;
// codings from other systems are ignored, and an unknown code leaves the
// type unset rather than failing.
func FromStructured(obj fhir.Identifier) Identifier {
	id := Identifier{
		Value:  obj.Value,
		System: obj.System,
		Status: StatusActive,
	}
	if obj.Type != nil {
		for _, coding := range obj.Type.Coding {
			if coding.System != TypeCodingSystem {
				continue
			}
			if t := Type(coding.Code); knownTypes[t] {
				id.Type = t
			}
			break
		}
	}
	return id
}
