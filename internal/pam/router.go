package pam

import (
	"context"
	"fmt"

	"github.com/pam/pam/internal/domain/auditevent"
	"github.com/pam/pam/internal/platform/hl7v2"
)

// Category is the closed set of administrative event families the router
// understands.
type Category string

const (
	CategoryAdmission    Category = "admission"
	CategoryTransfer     Category = "transfer"
	CategoryLeave        Category = "leave"
	CategoryDischarge    Category = "discharge"
	CategoryDoctorChange Category = "doctor-change"
	CategoryMerge        Category = "merge"
)

// route maps a trigger event to its category. A non-empty cancels field
// marks the trigger as a cancellation event voiding the latest movement of
// that code.
type route struct {
	category Category
	cancels  string
}

var triggerTable = map[string]route{
	"A01": {category: CategoryAdmission},
	"A04": {category: CategoryAdmission},
	"A02": {category: CategoryTransfer},
	"A21": {category: CategoryLeave},
	"A22": {category: CategoryLeave},
	"A03": {category: CategoryDischarge},
	"A54": {category: CategoryDoctorChange},
	"A40": {category: CategoryMerge},

	"A11": {category: CategoryAdmission, cancels: "A01"},
	"A12": {category: CategoryTransfer, cancels: "A02"},
	"A13": {category: CategoryDischarge, cancels: "A03"},
}

// SupportedTrigger reports whether the router handles the given trigger
// event code.
func SupportedTrigger(trigger string) bool {
	_, ok := triggerTable[trigger]
	return ok
}

// Dispatch routes one parsed administrative message to its handler and
// always produces a Result, even on handler panic, so the transport layer
// can acknowledge every message. Each dispatch is audited.
func (e *Engine) Dispatch(ctx context.Context, msg *hl7v2.Message) (res Result) {
	trigger := msg.Trigger()

	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Str("trigger", trigger).
				Str("control_id", msg.ControlID).
				Interface("panic", r).
				Msg("event handler panicked")
			res = fail(fmt.Sprintf("internal error: %v", r))
		}
		outcome := "rejected"
		if res.OK {
			outcome = "accepted"
		}
		e.metrics.MessagesTotal.WithLabelValues(trigger, outcome).Inc()

		status := auditevent.StatusFailure
		if res.OK {
			status = auditevent.StatusSuccess
		}
		e.store.Audit.Record(ctx, auditevent.DirectionInbound, auditevent.KindEvent,
			msg.ControlID, status, trigger+": "+res.Detail)
	}()

	rt, known := triggerTable[trigger]
	if !known {
		return fail("unsupported trigger event " + trigger)
	}

	f := FieldsFromMessage(msg)
	if len(f.PatientIdentifiers) == 0 {
		return fail("no patient identifier (PID-3)")
	}

	if rt.category == CategoryMerge {
		mrg, err := hl7v2.ParseMRG(msg)
		if err != nil {
			return fail("merge segment missing or invalid (MRG)")
		}
		r, err := e.Merge(ctx, f.PatientIdentifiers, mrg.PriorIdentifiers, f.hint(), msg.Raw)
		if err != nil {
			e.log.Error().Err(err).Str("control_id", msg.ControlID).Msg("merge failed")
			return fail("internal error: " + err.Error())
		}
		return r
	}

	// Every movement-bearing event must carry an authority-conformant
	// movement segment.
	if msg.MovementSegment() == nil {
		return fail("missing movement segment (ZBE)")
	}

	var (
		r   Result
		err error
	)
	switch {
	case rt.cancels != "":
		r, err = e.handleCancellation(ctx, trigger, rt, f)
	case rt.category == CategoryAdmission:
		r, err = e.handleAdmission(ctx, trigger, f)
	case rt.category == CategoryTransfer:
		r, err = e.handleTransfer(ctx, trigger, f)
	case rt.category == CategoryLeave:
		r, err = e.handleLeave(ctx, trigger, f)
	case rt.category == CategoryDischarge:
		r, err = e.handleDischarge(ctx, trigger, f)
	case rt.category == CategoryDoctorChange:
		r, err = e.handleDoctorChange(ctx, trigger, f)
	default:
		return fail("unsupported trigger event " + trigger)
	}
	if err != nil {
		e.log.Error().Err(err).
			Str("trigger", trigger).
			Str("control_id", msg.ControlID).
			Msg("event processing failed")
		return fail("internal error: " + err.Error())
	}
	return r
}

// DispatchRaw parses and dispatches a raw message, returning the ACK to
// send back. Parse failures are rejected with an application-reject ACK
// built from whatever could be read.
func (e *Engine) DispatchRaw(ctx context.Context, raw []byte) (*hl7v2.Message, Result) {
	msg, err := hl7v2.Parse(raw)
	if err != nil {
		e.log.Warn().Err(err).Msg("unparseable inbound message")
		stub := &hl7v2.Message{Raw: string(raw)}
		res := fail("unparseable message: " + err.Error())
		return hl7v2.GenerateACK(stub, hl7v2.AckReject, res.Detail), res
	}

	res := e.Dispatch(ctx, msg)
	code := hl7v2.AckAccept
	detail := ""
	if !res.OK {
		code = hl7v2.AckError
		detail = res.Detail
	}
	return hl7v2.GenerateACK(msg, code, detail), res
}

// MLLPHandler adapts the router to the MLLP listener's callback shape.
func (e *Engine) MLLPHandler() hl7v2.MessageHandler {
	return func(ctx context.Context, msg *hl7v2.Message) *hl7v2.Message {
		res := e.Dispatch(ctx, msg)
		code := hl7v2.AckAccept
		detail := ""
		if !res.OK {
			code = hl7v2.AckError
			detail = res.Detail
		}
		return hl7v2.GenerateACK(msg, code, detail)
	}
}
