package identifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrDuplicate marks an assertive-mode uniqueness violation. Match it with
// errors.Is; the concrete *DuplicateError carries the conflicting holder.
var ErrDuplicate = errors.New("duplicate identifier")

// DuplicateError reports a value already bound within an authority scope.
type DuplicateError struct {
	Value  string
	System string
	OID    string
	Holder *uuid.UUID // owning patient of the conflicting binding, when known
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("identifier %q already active in scope (%s, %s)", e.Value, e.System, e.OID)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// Validator enforces the per-authority uniqueness rule: within a given
// (system, oid) scope, at most one active identifier may carry a value. The
// same raw value may legitimately identify different patients in different
// scopes.
type Validator struct {
	repo Repository
}

func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo}
}

// EnsureUnique is the advisory mode: it reports whether value is free within
// the (system, oid) scope and, when it is not, the owning patient of the
// conflicting binding. excludePatient skips bindings owned by that patient,
// which is how a patient's own identifier can be updated in place.
func (v *Validator) EnsureUnique(ctx context.Context, value, system, oid string, excludePatient *uuid.UUID) (bool, *uuid.UUID, error) {
	matches, err := v.repo.FindActive(ctx, value, system, oid)
	if err != nil {
		return false, nil, fmt.Errorf("search active identifiers: %w", err)
	}

	for _, m := range matches {
		if m.Owner.Kind == OwnerPatient {
			if excludePatient != nil && m.Owner.ID == *excludePatient {
				continue
			}
			holder := m.Owner.ID
			return false, &holder, nil
		}
		// Conflicting binding on a sub-entity; no patient to report.
		return false, nil, nil
	}
	return true, nil, nil
}

// MustBeUnique is the assertive mode: same search, but a conflict surfaces
// as a *DuplicateError so create/update paths can abandon their transaction.
func (v *Validator) MustBeUnique(ctx context.Context, value, system, oid string, excludePatient *uuid.UUID) error {
	ok, holder, err := v.EnsureUnique(ctx, value, system, oid, excludePatient)
	if err != nil {
		return err
	}
	if !ok {
		return &DuplicateError{Value: value, System: system, OID: oid, Holder: holder}
	}
	return nil
}
