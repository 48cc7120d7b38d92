package pam

import (
	"context"
	"strings"

	"github.com/pam/pam/internal/domain/identifier"
	"github.com/pam/pam/internal/domain/patient"
)

// Resolver maps composite identifiers from inbound messages to stored
// patients. Resolution always reads the store directly; results are never
// cached, so concurrent merges cannot leave a resolver holding a stale
// patient.
type Resolver struct {
	store *Store
}

func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveByComposites resolves a patient from a list of candidate composite
// identifiers, in order. For each candidate it looks for an active
// patient-owned identifier binding with the same value, preferring a binding
// whose assigning authority matches the candidate's over a bare value match.
// When no candidate yields a binding it falls back, again in candidate
// order, to the patient's external reference and then to its primary
// identifier. A nil patient with a nil error means no match.
func (r *Resolver) ResolveByComposites(ctx context.Context, composites []string) (*patient.Patient, error) {
	for _, raw := range composites {
		value, authority, _ := identifier.DecodeComposite(raw)
		if value == "" {
			continue
		}
		bindings, err := r.store.Identifiers.FindActivePatientOwned(ctx, value)
		if err != nil {
			return nil, err
		}
		if len(bindings) == 0 {
			continue
		}
		chosen := bindings[0]
		if authority != "" {
			for _, b := range bindings {
				if b.System == authority {
					chosen = b
					break
				}
			}
		}
		p, err := r.store.Patients.GetByID(ctx, chosen.Owner.ID)
		if err != nil {
			if err == patient.ErrNotFound {
				continue
			}
			return nil, err
		}
		return p, nil
	}

	// Fallback path: bare value against external reference, then against the
	// patient's primary identifier.
	for _, raw := range composites {
		value := raw
		if i := strings.Index(raw, "^"); i >= 0 {
			value = raw[:i]
		}
		if value == "" {
			continue
		}
		p, err := r.store.Patients.FindByExternalRef(ctx, value)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
		p, err = r.store.Patients.FindByPrimaryIdentifier(ctx, value)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, nil
}

// ResolveByOne resolves from a single composite identifier.
func (r *Resolver) ResolveByOne(ctx context.Context, composite string) (*patient.Patient, error) {
	return r.ResolveByComposites(ctx, []string{composite})
}
