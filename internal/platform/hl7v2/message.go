package hl7v2

import (
	"fmt"
	"strings"
	"time"
)

// Message represents a parsed HL7v2 message.
type Message struct {
	Type         string    // MSH-9 message type (e.g. "ADT^A01")
	ControlID    string    // MSH-10
	Version      string    // MSH-12 (e.g. "2.5")
	Timestamp    time.Time // MSH-7
	SendingApp   string    // MSH-3
	SendingFac   string    // MSH-4
	ReceivingApp string    // MSH-5
	ReceivingFac string    // MSH-6
	Raw          string    // the message text as received
	Segments     []Segment
}

// Segment represents a single HL7v2 segment.
type Segment struct {
	Name   string // e.g. "MSH", "PID", "PV1", "MRG", "ZBE"
	Fields []Field
}

// Field represents a field which can have components and repetitions.
type Field struct {
	Value      string
	Components []string   // Component-separated (^)
	Repeats    [][]string // Repetition-separated (~), each with components
}

// Parse parses raw HL7v2 message bytes into a structured Message.
// It supports \r, \n, and \r\n line endings for segment separation.
func Parse(raw []byte) (*Message, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("hl7v2: message is empty")
	}

	text := string(raw)

	// Normalize line endings to \r.
	text = strings.ReplaceAll(text, "\r\n", "\r")
	text = strings.ReplaceAll(text, "\n", "\r")

	lines := strings.Split(text, "\r")

	var segmentLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			segmentLines = append(segmentLines, line)
		}
	}

	if len(segmentLines) == 0 {
		return nil, fmt.Errorf("hl7v2: no segments found")
	}

	if !strings.HasPrefix(segmentLines[0], "MSH") {
		return nil, fmt.Errorf("hl7v2: first segment must be MSH, got %q", segmentLines[0][:min(3, len(segmentLines[0]))])
	}

	msg := &Message{Raw: string(raw)}

	for _, line := range segmentLines {
		seg, err := parseSegment(line)
		if err != nil {
			return nil, fmt.Errorf("hl7v2: failed to parse segment: %w", err)
		}
		msg.Segments = append(msg.Segments, seg)
	}

	if err := msg.extractMSHFields(); err != nil {
		return nil, err
	}

	return msg, nil
}

// parseSegment parses a single segment line into a Segment struct.
func parseSegment(line string) (Segment, error) {
	if len(line) < 3 {
		return Segment{}, fmt.Errorf("segment too short: %q", line)
	}

	seg := Segment{}

	// MSH is special: the field separator (|) is MSH-1 itself.
	if strings.HasPrefix(line, "MSH") {
		seg.Name = "MSH"
		if len(line) < 4 {
			return seg, nil
		}

		fieldSep := string(line[3])
		rest := line[4:] // everything after "MSH|"
		parts := strings.Split(rest, fieldSep)

		// Fields[0] = MSH-1 (the separator), Fields[1] = MSH-2, etc.
		seg.Fields = append(seg.Fields, Field{
			Value:      fieldSep,
			Components: []string{fieldSep},
		})
		for _, part := range parts {
			seg.Fields = append(seg.Fields, parseField(part))
		}
	} else {
		parts := strings.SplitN(line, "|", 2)
		seg.Name = parts[0]

		if len(parts) > 1 {
			fields := strings.Split(parts[1], "|")
			for _, f := range fields {
				seg.Fields = append(seg.Fields, parseField(f))
			}
		}
	}

	return seg, nil
}

// parseField parses a single field, handling components (^) and repetitions (~).
func parseField(raw string) Field {
	f := Field{Value: raw}

	reps := strings.Split(raw, "~")
	for _, rep := range reps {
		f.Repeats = append(f.Repeats, strings.Split(rep, "^"))
	}

	if len(f.Repeats) > 0 {
		f.Components = f.Repeats[0]
	} else {
		f.Components = strings.Split(raw, "^")
	}

	return f
}

// extractMSHFields extracts commonly used MSH fields into the Message struct.
func (m *Message) extractMSHFields() error {
	msh := m.GetSegment("MSH")
	if msh == nil {
		return fmt.Errorf("hl7v2: MSH segment not found")
	}

	m.SendingApp = msh.GetField(3)
	m.SendingFac = msh.GetField(4)
	m.ReceivingApp = msh.GetField(5)
	m.ReceivingFac = msh.GetField(6)

	if tsStr := msh.GetField(7); tsStr != "" {
		if t, err := ParseTimestamp(tsStr); err == nil {
			m.Timestamp = t
		}
	}

	m.Type = msh.GetField(9)
	m.ControlID = msh.GetField(10)
	m.Version = msh.GetField(12)

	return nil
}

// Trigger returns the trigger event code from MSH-9 (e.g. "A01" for "ADT^A01").
func (m *Message) Trigger() string {
	parts := strings.Split(m.Type, "^")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// ParseTimestamp parses an HL7v2 timestamp string (YYYYMMDDHHmmss,
// YYYYMMDDHHmm, or YYYYMMDD).
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case len(s) >= 14:
		return time.Parse("20060102150405", s[:14])
	case len(s) >= 12:
		return time.Parse("200601021504", s[:12])
	case len(s) >= 8:
		return time.Parse("20060102", s[:8])
	default:
		return time.Time{}, fmt.Errorf("hl7v2: unrecognized timestamp format: %q", s)
	}
}

// GetSegment returns the first segment with the given name, or nil if not found.
func (m *Message) GetSegment(name string) *Segment {
	for i := range m.Segments {
		if m.Segments[i].Name == name {
			return &m.Segments[i]
		}
	}
	return nil
}

// GetSegments returns all segments with the given name.
func (m *Message) GetSegments(name string) []Segment {
	var result []Segment
	for _, seg := range m.Segments {
		if seg.Name == name {
			result = append(result, seg)
		}
	}
	return result
}

// GetField returns the value of a field by 1-based index.
// For MSH, MSH-1 is Fields[0] (the field separator); for other segments
// field index 1 corresponds to Fields[0].
func (s *Segment) GetField(index int) string {
	idx := index - 1
	if idx < 0 || idx >= len(s.Fields) {
		return ""
	}
	return s.Fields[idx].Value
}

// GetComponent returns a component value by 1-based field and component indices.
func (s *Segment) GetComponent(fieldIdx, compIdx int) string {
	idx := fieldIdx - 1
	if idx < 0 || idx >= len(s.Fields) {
		return ""
	}
	field := &s.Fields[idx]

	ci := compIdx - 1
	if ci < 0 || ci >= len(field.Components) {
		return ""
	}
	return field.Components[ci]
}

// GetRepeats returns the repetitions of a field by 1-based index, each
// re-joined into its composite (^-separated) string form. An absent field
// yields nil.
func (s *Segment) GetRepeats(fieldIdx int) []string {
	idx := fieldIdx - 1
	if idx < 0 || idx >= len(s.Fields) {
		return nil
	}
	field := &s.Fields[idx]
	if field.Value == "" {
		return nil
	}

	result := make([]string, 0, len(field.Repeats))
	for _, rep := range field.Repeats {
		result = append(result, strings.Join(rep, "^"))
	}
	return result
}

// PatientIdentifiers returns the PID-3 repetitions as composite identifier
// strings (one per assigning authority).
func (m *Message) PatientIdentifiers() []string {
	pid := m.GetSegment("PID")
	if pid == nil {
		return nil
	}
	return pid.GetRepeats(3)
}

// PatientName returns the family and given name from PID-5 (family^given).
func (m *Message) PatientName() (family, given string) {
	pid := m.GetSegment("PID")
	if pid == nil {
		return "", ""
	}
	return pid.GetComponent(5, 1), pid.GetComponent(5, 2)
}

// DateOfBirth returns PID-7 (date of birth).
func (m *Message) DateOfBirth() string {
	pid := m.GetSegment("PID")
	if pid == nil {
		return ""
	}
	return pid.GetField(7)
}

// Gender returns PID-8 (administrative sex).
func (m *Message) Gender() string {
	pid := m.GetSegment("PID")
	if pid == nil {
		return ""
	}
	return pid.GetField(8)
}

// VisitNumber returns PV1-19 (the visit/account number value).
func (m *Message) VisitNumber() string {
	pv1 := m.GetSegment("PV1")
	if pv1 == nil {
		return ""
	}
	return pv1.GetComponent(19, 1)
}

// PatientClass returns PV1-2 (I inpatient, O outpatient, E emergency).
func (m *Message) PatientClass() string {
	pv1 := m.GetSegment("PV1")
	if pv1 == nil {
		return ""
	}
	return pv1.GetField(2)
}

// AssignedLocation returns PV1-3 (assigned patient location).
func (m *Message) AssignedLocation() string {
	pv1 := m.GetSegment("PV1")
	if pv1 == nil {
		return ""
	}
	return pv1.GetField(3)
}

// PriorLocation returns PV1-6 (prior patient location).
func (m *Message) PriorLocation() string {
	pv1 := m.GetSegment("PV1")
	if pv1 == nil {
		return ""
	}
	return pv1.GetField(6)
}

// AttendingDoctor returns PV1-7 (attending doctor, id^family^given).
func (m *Message) AttendingDoctor() string {
	pv1 := m.GetSegment("PV1")
	if pv1 == nil {
		return ""
	}
	return pv1.GetField(7)
}

// DischargeDisposition returns PV1-36.
func (m *Message) DischargeDisposition() string {
	pv1 := m.GetSegment("PV1")
	if pv1 == nil {
		return ""
	}
	return pv1.GetField(36)
}

// MovementSegment returns the ZBE movement segment required by the PAM
// profile on every ADT message, or nil when absent.
func (m *Message) MovementSegment() *Segment {
	return m.GetSegment("ZBE")
}

// MovementID returns ZBE-1.1 (the movement identifier value).
func (m *Message) MovementID() string {
	zbe := m.MovementSegment()
	if zbe == nil {
		return ""
	}
	return zbe.GetComponent(1, 1)
}

// MovementTime returns ZBE-2 parsed as a timestamp, or the zero time.
func (m *Message) MovementTime() time.Time {
	zbe := m.MovementSegment()
	if zbe == nil {
		return time.Time{}
	}
	t, err := ParseTimestamp(zbe.GetField(2))
	if err != nil {
		return time.Time{}
	}
	return t
}

// MovementAction returns ZBE-4 (INSERT, UPDATE, or CANCEL).
func (m *Message) MovementAction() string {
	zbe := m.MovementSegment()
	if zbe == nil {
		return ""
	}
	return zbe.GetField(4)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
