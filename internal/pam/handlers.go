package pam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pam/pam/internal/domain/dossier"
	"github.com/pam/pam/internal/domain/identifier"
	"github.com/pam/pam/internal/domain/mouvement"
	"github.com/pam/pam/internal/domain/patient"
	"github.com/pam/pam/internal/domain/venue"
)

// runUnit wraps a handler body in one atomic unit of work and maps the
// expected business failures (abortError, uniqueness violations) onto a
// rejected Result; anything else is an infrastructure error.
func (e *Engine) runUnit(ctx context.Context, fn func(ctx context.Context) (Result, error)) (Result, error) {
	var res Result
	err := e.store.InTx(ctx, func(ctx context.Context) error {
		r, err := fn(ctx)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		var abort *abortError
		if errors.As(err, &abort) {
			return fail(abort.detail), nil
		}
		var dup *identifier.DuplicateError
		if errors.As(err, &dup) {
			return fail(dup.Error()), nil
		}
		return Result{}, err
	}
	return res, nil
}

func (e *Engine) handleAdmission(ctx context.Context, trigger string, f Fields) (Result, error) {
	return e.runUnit(ctx, func(ctx context.Context) (Result, error) {
		p, err := e.resolver.ResolveByComposites(ctx, f.PatientIdentifiers)
		if err != nil {
			return Result{}, err
		}
		created := false
		if p == nil {
			p = &patient.Patient{
				FamilyName: f.Family,
				GivenName:  f.Given,
				BirthDate:  f.BirthDate,
				Gender:     f.Gender,
			}
			if err := e.store.Patients.Create(ctx, p); err != nil {
				return Result{}, fmt.Errorf("create patient: %w", err)
			}
			created = true
		}
		if err := e.store.LockIdentity(ctx, p.ID); err != nil {
			return Result{}, err
		}
		if !created {
			e.applyDemographics(p, f)
			if err := e.store.Patients.Update(ctx, p); err != nil {
				return Result{}, fmt.Errorf("update patient: %w", err)
			}
		}
		if err := e.bindComposites(ctx, p, f.PatientIdentifiers); err != nil {
			return Result{}, err
		}

		d := &dossier.Dossier{
			PatientID:         p.ID,
			Class:             dossier.ClassFromPatientClass(f.PatientClass),
			Status:            dossier.StatusOpen,
			AdmitTime:         timePtr(f.EventTime),
			AttendingProvider: f.AttendingDoctor,
		}
		if err := e.store.Dossiers.Create(ctx, d); err != nil {
			return Result{}, fmt.Errorf("create dossier: %w", err)
		}
		if f.VisitNumber != "" {
			if err := e.bindScoped(ctx, identifier.DossierOwner(d.ID), f.VisitNumber, identifier.TypeVisitNumber); err != nil {
				return Result{}, err
			}
		}

		v := &venue.Venue{
			DossierID:   d.ID,
			Location:    f.Location,
			Status:      venue.StatusActive,
			PeriodStart: timePtr(f.EventTime),
		}
		if err := e.store.Venues.Create(ctx, v); err != nil {
			return Result{}, fmt.Errorf("create venue: %w", err)
		}

		if err := e.recordMovement(ctx, v.ID, trigger, f, "", f.Location, nil); err != nil {
			return Result{}, err
		}

		return ok(fmt.Sprintf("patient %s admitted, dossier %s", p.IPP, d.ID)), nil
	})
}

func (e *Engine) handleTransfer(ctx context.Context, trigger string, f Fields) (Result, error) {
	return e.runUnit(ctx, func(ctx context.Context) (Result, error) {
		p, d, v, err := e.locateStay(ctx, f, false)
		if err != nil {
			return Result{}, err
		}

		from := f.PriorLocation
		if from == "" {
			from = v.Location
		}

		now := f.EventTime
		v.Status = venue.StatusClosed
		v.PeriodEnd = &now
		if err := e.store.Venues.Update(ctx, v); err != nil {
			return Result{}, fmt.Errorf("close venue: %w", err)
		}

		next := &venue.Venue{
			DossierID:   d.ID,
			Location:    f.Location,
			Status:      venue.StatusActive,
			PeriodStart: timePtr(f.EventTime),
		}
		if err := e.store.Venues.Create(ctx, next); err != nil {
			return Result{}, fmt.Errorf("create venue: %w", err)
		}

		if err := e.recordMovement(ctx, next.ID, trigger, f, from, f.Location, nil); err != nil {
			return Result{}, err
		}

		return ok(fmt.Sprintf("patient %s transferred to %s", p.IPP, f.Location)), nil
	})
}

func (e *Engine) handleLeave(ctx context.Context, trigger string, f Fields) (Result, error) {
	return e.runUnit(ctx, func(ctx context.Context) (Result, error) {
		p, _, v, err := e.locateStay(ctx, f, false)
		if err != nil {
			return Result{}, err
		}

		switch trigger {
		case "A21":
			v.Status = venue.StatusOnLeave
		case "A22":
			v.Status = venue.StatusActive
		}
		if err := e.store.Venues.Update(ctx, v); err != nil {
			return Result{}, fmt.Errorf("update venue: %w", err)
		}

		if err := e.recordMovement(ctx, v.ID, trigger, f, v.Location, v.Location, nil); err != nil {
			return Result{}, err
		}

		return ok(fmt.Sprintf("patient %s leave status now %s", p.IPP, v.Status)), nil
	})
}

func (e *Engine) handleDischarge(ctx context.Context, trigger string, f Fields) (Result, error) {
	return e.runUnit(ctx, func(ctx context.Context) (Result, error) {
		p, d, v, err := e.locateStay(ctx, f, false)
		if err != nil {
			return Result{}, err
		}

		now := f.EventTime
		d.Status = dossier.StatusClosed
		d.DischargeTime = &now
		if f.DischargeDisposition != "" {
			d.DischargeDisposition = f.DischargeDisposition
		}
		if err := e.store.Dossiers.Update(ctx, d); err != nil {
			return Result{}, fmt.Errorf("close dossier: %w", err)
		}

		v.Status = venue.StatusClosed
		v.PeriodEnd = &now
		if err := e.store.Venues.Update(ctx, v); err != nil {
			return Result{}, fmt.Errorf("close venue: %w", err)
		}

		if err := e.recordMovement(ctx, v.ID, trigger, f, v.Location, "", nil); err != nil {
			return Result{}, err
		}

		return ok(fmt.Sprintf("patient %s discharged, dossier %s closed", p.IPP, d.ID)), nil
	})
}

func (e *Engine) handleDoctorChange(ctx context.Context, trigger string, f Fields) (Result, error) {
	return e.runUnit(ctx, func(ctx context.Context) (Result, error) {
		p, d, v, err := e.locateStay(ctx, f, false)
		if err != nil {
			return Result{}, err
		}
		if f.AttendingDoctor == "" {
			return Result{}, &abortError{detail: "no attending doctor (PV1-7)"}
		}

		d.AttendingProvider = f.AttendingDoctor
		if err := e.store.Dossiers.Update(ctx, d); err != nil {
			return Result{}, fmt.Errorf("update dossier: %w", err)
		}

		if err := e.recordMovement(ctx, v.ID, trigger, f, v.Location, v.Location, nil); err != nil {
			return Result{}, err
		}

		return ok(fmt.Sprintf("patient %s attending doctor now %s", p.IPP, f.AttendingDoctor)), nil
	})
}

// handleCancellation voids the latest non-cancelled movement of the trigger
// the cancellation targets and rolls the stay state back accordingly. The
// voided movement is marked and linked, never deleted.
func (e *Engine) handleCancellation(ctx context.Context, trigger string, rt route, f Fields) (Result, error) {
	return e.runUnit(ctx, func(ctx context.Context) (Result, error) {
		p, d, v, err := e.locateStay(ctx, f, true)
		if err != nil {
			return Result{}, err
		}

		target, err := e.store.Mouvements.FindLatestByTrigger(ctx, v.ID, rt.cancels)
		if err != nil {
			return Result{}, err
		}
		if target == nil {
			return Result{}, &abortError{detail: fmt.Sprintf("no %s movement to cancel", rt.cancels)}
		}

		target.Cancelled = true
		if err := e.store.Mouvements.Update(ctx, target); err != nil {
			return Result{}, fmt.Errorf("void movement: %w", err)
		}
		if err := e.recordMovement(ctx, v.ID, trigger, f, target.ToLocation, target.FromLocation, &target.ID); err != nil {
			return Result{}, err
		}

		switch trigger {
		case "A11": // cancel admission
			d.Status = dossier.StatusCancelled
			v.Status = venue.StatusClosed
			v.PeriodEnd = timePtr(f.EventTime)
		case "A12": // cancel transfer: revert the location
			if target.FromLocation != "" {
				v.Location = target.FromLocation
			}
		case "A13": // cancel discharge: reopen the stay
			d.Status = dossier.StatusOpen
			d.DischargeTime = nil
			v.Status = venue.StatusActive
			v.PeriodEnd = nil
		}
		if err := e.store.Dossiers.Update(ctx, d); err != nil {
			return Result{}, fmt.Errorf("update dossier: %w", err)
		}
		if err := e.store.Venues.Update(ctx, v); err != nil {
			return Result{}, fmt.Errorf("update venue: %w", err)
		}

		return ok(fmt.Sprintf("patient %s: %s movement %s cancelled", p.IPP, rt.cancels, target.ID)), nil
	})
}

// locateStay resolves the patient and the dossier/venue pair the event
// applies to: by visit number when the message carries one, otherwise the
// latest open dossier. Missing pieces abort with an expected failure.
// includeClosed lets cancellation events reach a stay that was already
// closed by the movement they void.
func (e *Engine) locateStay(ctx context.Context, f Fields, includeClosed bool) (*patient.Patient, *dossier.Dossier, *venue.Venue, error) {
	p, err := e.resolver.ResolveByComposites(ctx, f.PatientIdentifiers)
	if err != nil {
		return nil, nil, nil, err
	}
	if p == nil {
		return nil, nil, nil, &abortError{detail: "patient not found"}
	}
	if err := e.store.LockIdentity(ctx, p.ID); err != nil {
		return nil, nil, nil, err
	}

	var d *dossier.Dossier
	if f.VisitNumber != "" {
		ids, err := e.store.Identifiers.FindActive(ctx, f.VisitNumber, e.system, e.oid)
		if err != nil {
			return nil, nil, nil, err
		}
		for _, id := range ids {
			if id.Owner.Kind != identifier.OwnerDossier {
				continue
			}
			cand, err := e.store.Dossiers.GetByID(ctx, id.Owner.ID)
			if err != nil {
				if err == dossier.ErrNotFound {
					continue
				}
				return nil, nil, nil, err
			}
			if cand.PatientID == p.ID {
				d = cand
				break
			}
		}
	}
	if d == nil {
		d, err = e.store.Dossiers.FindLatestOpen(ctx, p.ID)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	if d == nil {
		return nil, nil, nil, &abortError{detail: "no open dossier for patient " + p.IPP}
	}

	v, err := e.store.Venues.FindCurrent(ctx, d.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	if v == nil && includeClosed {
		venues, err := e.store.Venues.ListByDossier(ctx, d.ID)
		if err != nil {
			return nil, nil, nil, err
		}
		if len(venues) > 0 {
			v = venues[len(venues)-1]
		}
	}
	if v == nil {
		return nil, nil, nil, &abortError{detail: "no current venue for dossier"}
	}
	return p, d, v, nil
}

// applyDemographics overlays the message's non-empty demographic fields
// onto the stored patient.
func (e *Engine) applyDemographics(p *patient.Patient, f Fields) {
	if f.Family != "" {
		p.FamilyName = f.Family
	}
	if f.Given != "" {
		p.GivenName = f.Given
	}
	if f.BirthDate != "" {
		p.BirthDate = f.BirthDate
	}
	if f.Gender != "" {
		p.Gender = f.Gender
	}
	p.UpdatedAt = time.Now().UTC()
}

// bindComposites upserts the patient's identifier bindings from composite
// form. Existing bindings in the same authority scope are reactivated in
// place; new values must pass the assertive uniqueness check before they
// are bound.
func (e *Engine) bindComposites(ctx context.Context, p *patient.Patient, composites []string) error {
	owner := identifier.PatientOwner(p.ID)
	for _, raw := range composites {
		value, authority, typeCode := identifier.DecodeComposite(raw)
		if value == "" {
			continue
		}
		system, oid := authority, ""
		if system == "" {
			system, oid = e.system, e.oid
		}

		existing, err := e.store.Identifiers.FindByOwnerScope(ctx, owner, value, system, oid)
		if err != nil {
			return err
		}
		if existing != nil {
			// A retired binding only comes back when no other patient has
			// claimed the scope in the meantime.
			if existing.Status != identifier.StatusActive {
				if err := e.validator.MustBeUnique(ctx, value, system, oid, &p.ID); err != nil {
					return err
				}
				existing.Status = identifier.StatusActive
			}
			existing.UpdatedAt = time.Now().UTC()
			if err := e.store.Identifiers.Update(ctx, existing); err != nil {
				return err
			}
			continue
		}

		if err := e.validator.MustBeUnique(ctx, value, system, oid, &p.ID); err != nil {
			return err
		}
		typ := identifier.ParseType(typeCode)
		if typ == identifier.TypeNone {
			typ = identifier.DefaultType
		}
		id, err := identifier.New(value, typ, system, oid, owner)
		if err != nil {
			return err
		}
		if err := e.store.Identifiers.Create(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// bindScoped binds one value under the default authority to a sub-entity
// owner, reusing an existing binding when the scope already holds one.
func (e *Engine) bindScoped(ctx context.Context, owner identifier.OwnerRef, value string, typ identifier.Type) error {
	existing, err := e.store.Identifiers.FindByOwnerScope(ctx, owner, value, e.system, e.oid)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Status = identifier.StatusActive
		existing.UpdatedAt = time.Now().UTC()
		return e.store.Identifiers.Update(ctx, existing)
	}
	id, err := identifier.New(value, typ, e.system, e.oid, owner)
	if err != nil {
		return err
	}
	return e.store.Identifiers.Create(ctx, id)
}

// recordMovement appends one movement row and, when the message carries a
// movement identifier, binds it to the new row.
func (e *Engine) recordMovement(ctx context.Context, venueID uuid.UUID, trigger string, f Fields, from, to string, cancels *uuid.UUID) error {
	m := &mouvement.Mouvement{
		VenueID:      venueID,
		Trigger:      trigger,
		OccurredAt:   f.EventTime,
		FromLocation: from,
		ToLocation:   to,
		CancelsID:    cancels,
	}
	if err := e.store.Mouvements.Create(ctx, m); err != nil {
		return fmt.Errorf("create mouvement: %w", err)
	}
	if f.MovementID != "" {
		return e.bindScoped(ctx, identifier.MouvementOwner(m.ID), f.MovementID, identifier.TypeMovementID)
	}
	return nil
}

func timePtr(t time.Time) *time.Time { return &t }
