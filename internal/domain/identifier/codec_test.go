package identifier

import "testing"

func TestDecodeComposite(t *testing.T) {
	tests := []struct {
		name          string
		in            string
		wantValue     string
		wantAuthority string
		wantType      string
	}{
		{"full form", "8012345^^^HOPITAL^PI", "8012345", "HOPITAL", "PI"},
		{"no type", "8012345^^^HOPITAL", "8012345", "HOPITAL", ""},
		{"bare value", "8012345", "8012345", "", ""},
		{"empty", "", "", "", ""},
		{"extra components ignored", "A^B^C^D^E^F^G", "A", "D", "E"},
		{"empty value with authority", "^^^HOPITAL^PI", "", "HOPITAL", "PI"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, authority, typeCode := DecodeComposite(tt.in)
			if value != tt.wantValue || authority != tt.wantAuthority || typeCode != tt.wantType {
				t.Errorf("DecodeComposite(%q) = (%q, %q, %q), want (%q, %q, %q)",
					tt.in, value, authority, typeCode, tt.wantValue, tt.wantAuthority, tt.wantType)
			}
		})
	}
}

func TestEncodeComposite(t *testing.T) {
	tests := []struct {
		name string
		id   Identifier
		want string
	}{
		{"full form", Identifier{Value: "8012345", System: "HOPITAL", Type: TypePermanentPatientID}, "8012345^^^HOPITAL^PI"},
		{"no type", Identifier{Value: "8012345", System: "HOPITAL"}, "8012345^^^HOPITAL"},
		{"bare value", Identifier{Value: "8012345"}, "8012345"},
		{"type without authority", Identifier{Value: "X", Type: TypeVisitNumber}, "X^^^^VN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeComposite(tt.id); got != tt.want {
				t.Errorf("EncodeComposite() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompositeRoundTrip(t *testing.T) {
	for _, composite := range []string{
		"8012345^^^HOPITAL^PI",
		"280055512345678^^^INSEE^SS",
		"VN2024001^^^HOPITAL^VN",
		"9000001",
	} {
		value, authority, typeCode := DecodeComposite(composite)
		id := Identifier{Value: value, System: authority, Type: ParseType(typeCode)}
		if got := EncodeComposite(id); got != composite {
			t.Errorf("round trip of %q produced %q", composite, got)
		}
	}
}

func TestToStructured(t *testing.T) {
	id := Identifier{Value: "8012345", System: "HOPITAL", Type: TypePermanentPatientID}
	s := ToStructured(id)

	if s.Value != "8012345" || s.System != "HOPITAL" {
		t.Errorf("unexpected value/system: %q/%q", s.Value, s.System)
	}
	if s.Type == nil || len(s.Type.Coding) != 1 {
		t.Fatal("expected one type coding")
	}
	if s.Type.Coding[0].System != TypeCodingSystem || s.Type.Coding[0].Code != "PI" {
		t.Errorf("unexpected coding %+v", s.Type.Coding[0])
	}
}

func TestToStructured_NoType(t *testing.T) {
	s := ToStructured(Identifier{Value: "X", System: "Y"})
	if s.Type != nil {
		t.Error("expected type to be omitted entirely when unset")
	}
}

func TestFromStructured(t *testing.T) {
	id := Identifier{Value: "8012345", System: "HOPITAL", Type: TypeSocialSecurityID}
	back := FromStructured(ToStructured(id))

	if back.Value != id.Value || back.System != id.System || back.Type != id.Type {
		t.Errorf("round trip produced %+v", back)
	}
	if back.Status != StatusActive {
		t.Errorf("expected active status, got %q", back.Status)
	}
}

func TestFromStructured_ForeignCodingIgnored(t *testing.T) {
	s := ToStructured(Identifier{Value: "X", System: "Y", Type: TypeVisitNumber})
	s.Type.Coding[0].System = "http://example.org/other-system"

	back := FromStructured(s)
	if back.Type != TypeNone {
		t.Errorf("expected unset type for foreign coding system, got %q", back.Type)
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"PI", TypePermanentPatientID},
		{"VN", TypeVisitNumber},
		{"SS", TypeSocialSecurityID},
		{"", TypeNone},
		{"XXX", DefaultType},
	}
	for _, tt := range tests {
		if got := ParseType(tt.in); got != tt.want {
			t.Errorf("ParseType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
