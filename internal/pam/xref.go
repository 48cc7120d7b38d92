package pam

import (
	"context"
	"fmt"
	"strings"

	"github.com/pam/pam/internal/domain/auditevent"
	"github.com/pam/pam/internal/domain/identifier"
	"github.com/pam/pam/internal/domain/patient"
	"github.com/pam/pam/internal/platform/fhir"
)

// PDQ demographic query markers. A query item carrying one of these in its
// first component is a demographic filter; anything else is treated as a
// composite identifier to cross-reference.
const (
	markerFamily    = "@PID.5.1"
	markerBirthDate = "@PID.7"
)

// CrossReference resolves one composite identifier and returns every
// identifier known for that patient across all authorities, historical
// bindings included, in structured form. Not found is an empty set, not an
// error. Every query attempt is audited.
func (e *Engine) CrossReference(ctx context.Context, composite string) ([]fhir.Identifier, error) {
	p, err := e.resolver.ResolveByOne(ctx, composite)
	if err != nil {
		e.metrics.QueriesTotal.WithLabelValues("xref", "error").Inc()
		e.store.Audit.Record(ctx, auditevent.DirectionInbound, auditevent.KindCrossReference,
			composite, auditevent.StatusFailure, err.Error())
		return nil, err
	}
	if p == nil {
		e.metrics.QueriesTotal.WithLabelValues("xref", "empty").Inc()
		e.store.Audit.Record(ctx, auditevent.DirectionInbound, auditevent.KindCrossReference,
			composite, auditevent.StatusSuccess, "no match")
		return []fhir.Identifier{}, nil
	}

	bindings, err := e.store.Identifiers.ListByOwner(ctx, identifier.PatientOwner(p.ID))
	if err != nil {
		e.metrics.QueriesTotal.WithLabelValues("xref", "error").Inc()
		e.store.Audit.Record(ctx, auditevent.DirectionInbound, auditevent.KindCrossReference,
			composite, auditevent.StatusFailure, err.Error())
		return nil, err
	}

	out := make([]fhir.Identifier, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, identifier.ToStructured(*b))
	}

	e.metrics.QueriesTotal.WithLabelValues("xref", "success").Inc()
	e.store.Audit.Record(ctx, auditevent.DirectionInbound, auditevent.KindCrossReference,
		composite, auditevent.StatusSuccess, fmt.Sprintf("patient=%s identifiers=%d", p.IPP, len(out)))
	return out, nil
}

// DemographicSearch runs a PDQ-style demographic query over the patient
// base. Absent criteria are simply not applied, so an empty query returns
// the full set. Archived merge sources never match.
func (e *Engine) DemographicSearch(ctx context.Context, crit patient.SearchCriteria, limit, offset int) ([]*patient.Patient, int, error) {
	patients, total, err := e.store.Patients.Search(ctx, crit, limit, offset)
	if err != nil {
		e.metrics.QueriesTotal.WithLabelValues("pdq", "error").Inc()
		e.store.Audit.Record(ctx, auditevent.DirectionInbound, auditevent.KindDemographicSearch,
			"", auditevent.StatusFailure, err.Error())
		return nil, 0, err
	}

	e.metrics.QueriesTotal.WithLabelValues("pdq", "success").Inc()
	e.store.Audit.Record(ctx, auditevent.DirectionInbound, auditevent.KindDemographicSearch,
		"", auditevent.StatusSuccess, fmt.Sprintf("matches=%d", total))
	return patients, total, nil
}

// ParseQueryParams splits a repeating query parameter string (QPD-3 style,
// items separated by ~) into demographic criteria and plain composite
// identifiers. An item whose first component is a known demographic marker
// contributes a filter; every other item is returned as a composite
// identifier candidate.
func ParseQueryParams(raw string) (patient.SearchCriteria, []string) {
	var crit patient.SearchCriteria
	var composites []string

	for _, item := range strings.Split(raw, "~") {
		if item == "" {
			continue
		}
		marker, value := item, ""
		if i := strings.Index(item, "^"); i >= 0 {
			marker, value = item[:i], item[i+1:]
		}
		switch marker {
		case markerFamily:
			crit.Family = value
		case markerBirthDate:
			crit.BirthDate = value
		default:
			composites = append(composites, item)
		}
	}
	return crit, composites
}

// Query executes a mixed PIX/PDQ query string: composite items are
// cross-reference lookups, marker items demographic filters. Identifier
// matches are returned first, deduplicated, followed by demographic matches
// when filters were supplied. Every attempt writes one audit record,
// whatever the item mix.
func (e *Engine) Query(ctx context.Context, raw string, limit, offset int) ([]*patient.Patient, error) {
	crit, composites := ParseQueryParams(raw)

	seen := make(map[string]bool)
	var out []*patient.Patient

	queryFailed := func(err error) ([]*patient.Patient, error) {
		e.metrics.QueriesTotal.WithLabelValues("query", "error").Inc()
		e.store.Audit.Record(ctx, auditevent.DirectionInbound, auditevent.KindQuery,
			raw, auditevent.StatusFailure, err.Error())
		return nil, err
	}

	for _, c := range composites {
		p, err := e.resolver.ResolveByOne(ctx, c)
		if err != nil {
			return queryFailed(err)
		}
		if p == nil || seen[p.ID.String()] {
			continue
		}
		seen[p.ID.String()] = true
		out = append(out, p)
	}

	if !crit.Empty() {
		matches, _, err := e.store.Patients.Search(ctx, crit, limit, offset)
		if err != nil {
			return queryFailed(err)
		}
		for _, p := range matches {
			if seen[p.ID.String()] {
				continue
			}
			seen[p.ID.String()] = true
			out = append(out, p)
		}
	}

	outcome := "success"
	if len(out) == 0 {
		outcome = "empty"
	}
	e.metrics.QueriesTotal.WithLabelValues("query", outcome).Inc()
	e.store.Audit.Record(ctx, auditevent.DirectionInbound, auditevent.KindQuery,
		raw, auditevent.StatusSuccess, fmt.Sprintf("matches=%d", len(out)))
	return out, nil
}
