package hl7v2

import (
	"testing"
)

// =========== Sample Messages ===========

const sampleA01 = "MSH|^~\\&|ADMApp|Hopital|PAM|PAM|20240115143025||ADT^A01|MSG00001|P|2.5\r" +
	"EVN|A01|20240115143025\r" +
	"PID|1||8012345^^^HOPITAL^PI~280055512345678^^^INSEE^SS||Durand^Marie||19800515|F|||12 rue de la Paix^^Paris^^75002\r" +
	"PV1|1|I|CARD^101^A|||MED^202^B|1234^Lefevre^Paul||||||||||||VN2024001\r" +
	"ZBE|MVT0001^HOPITAL|20240115143000||INSERT"

const sampleA40 = "MSH|^~\\&|ADMApp|Hopital|PAM|PAM|20240116090000||ADT^A40|MSG00002|P|2.5\r" +
	"EVN|A40|20240116090000\r" +
	"PID|1||8012345^^^HOPITAL^PI||Durand^Marie||19800515|F\r" +
	"MRG|8099999^^^HOPITAL^PI~TMP777^^^URGENCES|||Durand^M"

func parseTestMessage(t *testing.T, raw string) *Message {
	t.Helper()
	msg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return msg
}

// =========== Parser Tests ===========

func TestParse_MSH(t *testing.T) {
	msg := parseTestMessage(t, sampleA01)

	if msg.Type != "ADT^A01" {
		t.Errorf("expected Type 'ADT^A01', got %q", msg.Type)
	}
	if msg.Trigger() != "A01" {
		t.Errorf("expected Trigger 'A01', got %q", msg.Trigger())
	}
	if msg.ControlID != "MSG00001" {
		t.Errorf("expected ControlID 'MSG00001', got %q", msg.ControlID)
	}
	if msg.Version != "2.5" {
		t.Errorf("expected Version '2.5', got %q", msg.Version)
	}
	if msg.SendingApp != "ADMApp" {
		t.Errorf("expected SendingApp 'ADMApp', got %q", msg.SendingApp)
	}
	if msg.Timestamp.Year() != 2024 || msg.Timestamp.Month() != 1 || msg.Timestamp.Day() != 15 {
		t.Errorf("unexpected timestamp: %v", msg.Timestamp)
	}
	if msg.Raw != sampleA01 {
		t.Error("expected Raw to carry the message text as received")
	}
}

func TestParse_PatientIdentifiers(t *testing.T) {
	msg := parseTestMessage(t, sampleA01)

	ids := msg.PatientIdentifiers()
	if len(ids) != 2 {
		t.Fatalf("expected 2 PID-3 repetitions, got %d", len(ids))
	}
	if ids[0] != "8012345^^^HOPITAL^PI" {
		t.Errorf("unexpected first identifier: %q", ids[0])
	}
	if ids[1] != "280055512345678^^^INSEE^SS" {
		t.Errorf("unexpected second identifier: %q", ids[1])
	}
}

func TestParse_Demographics(t *testing.T) {
	msg := parseTestMessage(t, sampleA01)

	family, given := msg.PatientName()
	if family != "Durand" || given != "Marie" {
		t.Errorf("expected Durand/Marie, got %q/%q", family, given)
	}
	if msg.DateOfBirth() != "19800515" {
		t.Errorf("unexpected DOB %q", msg.DateOfBirth())
	}
	if msg.Gender() != "F" {
		t.Errorf("unexpected gender %q", msg.Gender())
	}
}

func TestParse_Visit(t *testing.T) {
	msg := parseTestMessage(t, sampleA01)

	if msg.PatientClass() != "I" {
		t.Errorf("expected patient class 'I', got %q", msg.PatientClass())
	}
	if msg.AssignedLocation() != "CARD^101^A" {
		t.Errorf("unexpected assigned location %q", msg.AssignedLocation())
	}
	if msg.PriorLocation() != "MED^202^B" {
		t.Errorf("unexpected prior location %q", msg.PriorLocation())
	}
	if msg.AttendingDoctor() != "1234^Lefevre^Paul" {
		t.Errorf("unexpected attending doctor %q", msg.AttendingDoctor())
	}
	if msg.VisitNumber() != "VN2024001" {
		t.Errorf("unexpected visit number %q", msg.VisitNumber())
	}
}

func TestParse_MovementSegment(t *testing.T) {
	msg := parseTestMessage(t, sampleA01)

	if msg.MovementSegment() == nil {
		t.Fatal("expected ZBE segment")
	}
	if msg.MovementID() != "MVT0001" {
		t.Errorf("expected movement id 'MVT0001', got %q", msg.MovementID())
	}
	if msg.MovementAction() != "INSERT" {
		t.Errorf("expected action 'INSERT', got %q", msg.MovementAction())
	}
	mt := msg.MovementTime()
	if mt.IsZero() || mt.Hour() != 14 || mt.Minute() != 30 {
		t.Errorf("unexpected movement time %v", mt)
	}
}

func TestParse_NoMovementSegment(t *testing.T) {
	msg := parseTestMessage(t, sampleA40)

	if msg.MovementSegment() != nil {
		t.Error("expected no ZBE segment in merge message")
	}
	if msg.MovementID() != "" {
		t.Errorf("expected empty movement id, got %q", msg.MovementID())
	}
	if !msg.MovementTime().IsZero() {
		t.Error("expected zero movement time")
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse(nil); err == nil {
		t.Error("expected error for empty message")
	}
}

func TestParse_MissingMSH(t *testing.T) {
	if _, err := Parse([]byte("PID|1||123")); err == nil {
		t.Error("expected error when MSH is missing")
	}
}

func TestTrigger_Malformed(t *testing.T) {
	m := &Message{Type: "ADT"}
	if got := m.Trigger(); got != "" {
		t.Errorf("expected empty trigger for type without component, got %q", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"20240115143025", false},
		{"202401151430", false},
		{"20240115", false},
		{"2024", true},
		{"", true},
	}
	for _, tt := range tests {
		_, err := ParseTimestamp(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestGetRepeats_SingleValue(t *testing.T) {
	msg := parseTestMessage(t, sampleA40)

	pid := msg.GetSegment("PID")
	if pid == nil {
		t.Fatal("expected PID segment")
	}
	reps := pid.GetRepeats(3)
	if len(reps) != 1 {
		t.Fatalf("expected 1 repetition, got %d", len(reps))
	}
	if reps[0] != "8012345^^^HOPITAL^PI" {
		t.Errorf("unexpected repetition %q", reps[0])
	}
}
