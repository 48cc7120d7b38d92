package hl7v2

import (
	"fmt"
	"strings"
	"time"
)

// Acknowledgment codes (MSA-1).
const (
	AckAccept = "AA"
	AckError  = "AE"
	AckReject = "AR"
)

// GenerateACK creates an HL7v2 ACK message for the given incoming message.
// ackCode should be AckAccept, AckError, or AckReject. detail, when
// non-empty, is carried in MSA-3 (text message).
//
// The ACK swaps the sending and receiving application/facility from the
// original message and references the original control ID in MSA-2.
func GenerateACK(incoming *Message, ackCode, detail string) *Message {
	trigger := incoming.Trigger()

	now := time.Now().UTC()
	timestamp := now.Format("20060102150405")
	controlID := fmt.Sprintf("ACK%s", now.Format("20060102150405.000"))

	ack := &Message{
		Type:         "ACK^" + trigger,
		ControlID:    controlID,
		Version:      incoming.Version,
		Timestamp:    now,
		SendingApp:   incoming.ReceivingApp,
		SendingFac:   incoming.ReceivingFac,
		ReceivingApp: incoming.SendingApp,
		ReceivingFac: incoming.SendingFac,
	}

	msh := Segment{
		Name: "MSH",
		Fields: []Field{
			simpleField("|"),              // MSH-1
			simpleField(`^~\&`),           // MSH-2
			simpleField(ack.SendingApp),   // MSH-3
			simpleField(ack.SendingFac),   // MSH-4
			simpleField(ack.ReceivingApp), // MSH-5
			simpleField(ack.ReceivingFac), // MSH-6
			simpleField(timestamp),        // MSH-7
			simpleField(""),               // MSH-8
			{Value: "ACK^" + trigger, Components: []string{"ACK", trigger}}, // MSH-9
			simpleField(controlID),        // MSH-10
			simpleField("P"),              // MSH-11
			simpleField(incoming.Version), // MSH-12
		},
	}

	msa := Segment{
		Name: "MSA",
		Fields: []Field{
			simpleField(ackCode),            // MSA-1
			simpleField(incoming.ControlID), // MSA-2
		},
	}
	if detail != "" {
		msa.Fields = append(msa.Fields, simpleField(detail)) // MSA-3
	}

	ack.Segments = []Segment{msh, msa}
	return ack
}

func simpleField(v string) Field {
	return Field{Value: v, Components: []string{v}}
}

// Serialize converts a Message back into raw HL7v2 bytes with \r segment
// separators.
func Serialize(msg *Message) []byte {
	var segments []string
	for _, seg := range msg.Segments {
		segments = append(segments, serializeSegment(seg))
	}
	return []byte(strings.Join(segments, "\r"))
}

// serializeSegment converts a Segment back into its HL7v2 string form.
func serializeSegment(seg Segment) string {
	if seg.Name == "MSH" {
		// Fields[0] is the field separator itself; reconstruct as
		// MSH|^~\&|field3|...
		if len(seg.Fields) < 2 {
			return "MSH|"
		}
		parts := make([]string, 0, len(seg.Fields)-1)
		for i := 1; i < len(seg.Fields); i++ {
			parts = append(parts, seg.Fields[i].Value)
		}
		return "MSH|" + strings.Join(parts, "|")
	}

	parts := make([]string, len(seg.Fields))
	for i, f := range seg.Fields {
		parts[i] = f.Value
	}
	return seg.Name + "|" + strings.Join(parts, "|")
}
