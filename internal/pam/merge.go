package pam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pam/pam/internal/domain/auditevent"
	"github.com/pam/pam/internal/domain/identifier"
	"github.com/pam/pam/internal/domain/patient"
)

const (
	// mergedFamilyPrefix marks an archived merge source's family name so the
	// record is visibly retired without being deleted.
	mergedFamilyPrefix = "MERGED-"
	// archivedIPPPrefix retires the source's business key while keeping the
	// original value recoverable.
	archivedIPPPrefix = "OLD-"
)

// DemographicHint carries the demographics used to auto-create a survivor
// that is not yet known to the store.
type DemographicHint struct {
	Family    string
	Given     string
	BirthDate string // YYYYMMDD
	Gender    string
}

// abortError carries an expected merge failure out of the transaction
// closure so the whole unit of work rolls back, including a survivor
// auto-created earlier in the same merge.
type abortError struct {
	detail string
}

func (e *abortError) Error() string { return e.detail }

// Merge moves every dossier and identifier from the source identity to the
// survivor, then archives the source. The entire operation is one atomic
// unit of work: any failure leaves no partial state change. Both identities
// are locked for the duration, in a stable order, so concurrent events
// cannot interleave with the move.
//
// An empty source identifier list is the expected shape of a merge
// instruction whose MRG segment was absent or unparseable.
func (e *Engine) Merge(ctx context.Context, survivorIDs, sourceIDs []string, hint DemographicHint, rawPayload string) (Result, error) {
	if len(sourceIDs) == 0 {
		e.metrics.MergesTotal.WithLabelValues("rejected").Inc()
		return fail("merge segment missing or invalid (MRG)"), nil
	}

	var res Result
	err := e.store.InTx(ctx, func(ctx context.Context) error {
		survivor, err := e.resolver.ResolveByComposites(ctx, survivorIDs)
		if err != nil {
			return err
		}
		if survivor == nil {
			survivor, err = e.createSurvivor(ctx, survivorIDs, hint)
			if err != nil {
				return err
			}
		}

		source, err := e.resolver.ResolveByComposites(ctx, sourceIDs)
		if err != nil {
			return err
		}
		if source == nil {
			return &abortError{detail: "merge source patient not found"}
		}
		if source.ID == survivor.ID {
			return &abortError{detail: "survivor and source resolve to the same patient"}
		}

		if err := e.lockPair(ctx, survivor.ID, source.ID); err != nil {
			return err
		}

		moved, err := e.store.Dossiers.ReassignPatient(ctx, source.ID, survivor.ID)
		if err != nil {
			return fmt.Errorf("reassign dossiers: %w", err)
		}

		sourceIdents, err := e.store.Identifiers.ListByOwner(ctx, identifier.PatientOwner(source.ID))
		if err != nil {
			return fmt.Errorf("list source identifiers: %w", err)
		}
		// Snapshot the survivor's own active set before the source bindings
		// are reassigned under it.
		survivorIdents, err := e.store.Identifiers.ListByOwner(ctx, identifier.PatientOwner(survivor.ID))
		if err != nil {
			return fmt.Errorf("list survivor identifiers: %w", err)
		}
		activeSurvivor := make([]*identifier.Identifier, 0, len(survivorIdents))
		for _, id := range survivorIdents {
			if id.Status == identifier.StatusActive {
				activeSurvivor = append(activeSurvivor, id)
			}
		}

		for _, id := range sourceIdents {
			id.Status = identifier.StatusOld
			id.Owner = identifier.PatientOwner(survivor.ID)
			id.UpdatedAt = time.Now().UTC()
			if err := e.store.Identifiers.Update(ctx, id); err != nil {
				return fmt.Errorf("retag identifier %s: %w", id.ID, err)
			}
		}

		merged := mergeIdentifierSets(activeSurvivor, sourceIdents, true)

		source.FamilyName = mergedFamilyPrefix + source.FamilyName
		source.IPP = archivedIPPPrefix + source.IPP
		source.Merged = true
		source.UpdatedAt = time.Now().UTC()
		if err := e.store.Patients.Update(ctx, source); err != nil {
			return fmt.Errorf("archive source patient: %w", err)
		}

		survivor.UpdatedAt = time.Now().UTC()
		if err := e.store.Patients.Update(ctx, survivor); err != nil {
			return fmt.Errorf("touch survivor patient: %w", err)
		}

		detail := fmt.Sprintf("survivor=%s source=%s dossiers_moved=%d identifiers_retagged=%d merged_set=%d",
			survivor.IPP, source.IPP, moved, len(sourceIdents), len(merged))
		e.store.Audit.Record(ctx, auditevent.DirectionInbound, auditevent.KindMerge,
			firstNonEmpty(sourceIDs), auditevent.StatusSuccess, detail+" payload="+truncate(rawPayload, 200))

		e.log.Info().
			Str("survivor", survivor.ID.String()).
			Str("source", source.ID.String()).
			Int("dossiers_moved", moved).
			Int("identifiers_retagged", len(sourceIdents)).
			Msg("patient identities merged")

		res = ok(detail)
		return nil
	})
	if err != nil {
		var abort *abortError
		if errors.As(err, &abort) {
			e.metrics.MergesTotal.WithLabelValues("rejected").Inc()
			return fail(abort.detail), nil
		}
		var dup *identifier.DuplicateError
		if errors.As(err, &dup) {
			e.metrics.MergesTotal.WithLabelValues("rejected").Inc()
			return fail(dup.Error()), nil
		}
		e.metrics.MergesTotal.WithLabelValues("error").Inc()
		return Result{}, err
	}
	e.metrics.MergesTotal.WithLabelValues("success").Inc()
	return res, nil
}

// createSurvivor auto-creates the surviving patient from the merge
// instruction's demographics and binds its composite identifiers.
func (e *Engine) createSurvivor(ctx context.Context, composites []string, hint DemographicHint) (*patient.Patient, error) {
	p := &patient.Patient{
		FamilyName: hint.Family,
		GivenName:  hint.Given,
		BirthDate:  hint.BirthDate,
		Gender:     hint.Gender,
	}
	if err := e.store.Patients.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create survivor patient: %w", err)
	}
	if err := e.bindComposites(ctx, p, composites); err != nil {
		return nil, err
	}
	return p, nil
}

// lockPair takes the per-identity locks for both sides in a stable order so
// two concurrent merges over the same pair cannot deadlock.
func (e *Engine) lockPair(ctx context.Context, a, b uuid.UUID) error {
	first, second := a, b
	if b.String() < a.String() {
		first, second = b, a
	}
	if err := e.store.LockIdentity(ctx, first); err != nil {
		return err
	}
	return e.store.LockIdentity(ctx, second)
}

// mergeIdentifierSets computes the survivor's combined identifier set after
// a merge. Survivor entries win over source entries sharing the same
// (system, value) scope, order is preserved, and dropInactive filters out
// bindings already retired before the merge.
func mergeIdentifierSets(survivor, source []*identifier.Identifier, dropInactive bool) []*identifier.Identifier {
	seen := make(map[string]bool, len(survivor)+len(source))
	out := make([]*identifier.Identifier, 0, len(survivor)+len(source))

	add := func(ids []*identifier.Identifier) {
		for _, id := range ids {
			if dropInactive && id.Status == identifier.StatusInactive {
				continue
			}
			key := id.System + "\x00" + id.Value
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, id)
		}
	}
	add(survivor)
	add(source)
	return out
}

func firstNonEmpty(ss []string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
