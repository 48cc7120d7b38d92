package pam

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pam/pam/internal/domain/auditevent"
	"github.com/pam/pam/internal/domain/dossier"
	"github.com/pam/pam/internal/domain/identifier"
	"github.com/pam/pam/internal/domain/mouvement"
	"github.com/pam/pam/internal/domain/patient"
	"github.com/pam/pam/internal/domain/venue"
)

// In-memory repositories backing engine tests. Insertion order stands in
// for creation-time ordering.

type memIdentifiers struct {
	items []*identifier.Identifier
}

func (m *memIdentifiers) Create(ctx context.Context, id *identifier.Identifier) error {
	if id.ID == uuid.Nil {
		id.ID = uuid.New()
	}
	m.items = append(m.items, id)
	return nil
}

func (m *memIdentifiers) Update(ctx context.Context, id *identifier.Identifier) error {
	for i, it := range m.items {
		if it.ID == id.ID {
			m.items[i] = id
			return nil
		}
	}
	return identifier.ErrNotFound
}

func (m *memIdentifiers) GetByID(ctx context.Context, id uuid.UUID) (*identifier.Identifier, error) {
	for _, it := range m.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, identifier.ErrNotFound
}

func (m *memIdentifiers) FindActive(ctx context.Context, value, system, oid string) ([]*identifier.Identifier, error) {
	var out []*identifier.Identifier
	for _, it := range m.items {
		if it.Status == identifier.StatusActive && it.Value == value && it.System == system && it.OID == oid {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memIdentifiers) FindActivePatientOwned(ctx context.Context, value string) ([]*identifier.Identifier, error) {
	var out []*identifier.Identifier
	for _, it := range m.items {
		if it.Status == identifier.StatusActive && it.Value == value && it.Owner.Kind == identifier.OwnerPatient {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memIdentifiers) FindByOwnerScope(ctx context.Context, owner identifier.OwnerRef, value, system, oid string) (*identifier.Identifier, error) {
	for _, it := range m.items {
		if it.Owner == owner && it.Value == value && it.System == system && it.OID == oid {
			return it, nil
		}
	}
	return nil, nil
}

func (m *memIdentifiers) ListByOwner(ctx context.Context, owner identifier.OwnerRef) ([]*identifier.Identifier, error) {
	var out []*identifier.Identifier
	for _, it := range m.items {
		if it.Owner == owner {
			out = append(out, it)
		}
	}
	return out, nil
}

type memPatients struct {
	items []*patient.Patient
	seq   int
	idx   *memIdentifiers // for the identifier search join
}

func (m *memPatients) Create(ctx context.Context, p *patient.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.IPP == "" {
		m.seq++
		p.IPP = fmt.Sprintf("IPP%08d", m.seq)
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	m.items = append(m.items, p)
	return nil
}

func (m *memPatients) Update(ctx context.Context, p *patient.Patient) error {
	for i, it := range m.items {
		if it.ID == p.ID {
			m.items[i] = p
			return nil
		}
	}
	return patient.ErrNotFound
}

func (m *memPatients) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	for _, it := range m.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, patient.ErrNotFound
}

func (m *memPatients) FindByExternalRef(ctx context.Context, ref string) (*patient.Patient, error) {
	for _, it := range m.items {
		if !it.Merged && it.ExternalRef == ref && ref != "" {
			return it, nil
		}
	}
	return nil, nil
}

func (m *memPatients) FindByPrimaryIdentifier(ctx context.Context, value string) (*patient.Patient, error) {
	for _, it := range m.items {
		if !it.Merged && it.PrimaryIdentifier == value && value != "" {
			return it, nil
		}
	}
	return nil, nil
}

func (m *memPatients) Search(ctx context.Context, crit patient.SearchCriteria, limit, offset int) ([]*patient.Patient, int, error) {
	var matched []*patient.Patient
	for _, it := range m.items {
		if it.Merged {
			continue
		}
		if crit.Family != "" && !strings.Contains(strings.ToLower(it.FamilyName), strings.ToLower(crit.Family)) {
			continue
		}
		if crit.Given != "" && !strings.Contains(strings.ToLower(it.GivenName), strings.ToLower(crit.Given)) {
			continue
		}
		if crit.BirthDate != "" && it.BirthDate != crit.BirthDate {
			continue
		}
		if crit.Gender != "" && it.Gender != crit.Gender {
			continue
		}
		if crit.IdentValue != "" && !m.hasActiveIdentifier(it.ID, crit.IdentSystem, crit.IdentValue) {
			continue
		}
		matched = append(matched, it)
	}
	total := len(matched)
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *memPatients) hasActiveIdentifier(patientID uuid.UUID, system, value string) bool {
	for _, it := range m.idx.items {
		if it.Status != identifier.StatusActive || it.Owner != identifier.PatientOwner(patientID) {
			continue
		}
		if it.Value == value && (system == "" || it.System == system) {
			return true
		}
	}
	return false
}

type memDossiers struct {
	items []*dossier.Dossier
}

func (m *memDossiers) Create(ctx context.Context, d *dossier.Dossier) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.items = append(m.items, d)
	return nil
}

func (m *memDossiers) Update(ctx context.Context, d *dossier.Dossier) error {
	for i, it := range m.items {
		if it.ID == d.ID {
			m.items[i] = d
			return nil
		}
	}
	return dossier.ErrNotFound
}

func (m *memDossiers) GetByID(ctx context.Context, id uuid.UUID) (*dossier.Dossier, error) {
	for _, it := range m.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, dossier.ErrNotFound
}

func (m *memDossiers) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*dossier.Dossier, error) {
	var out []*dossier.Dossier
	for _, it := range m.items {
		if it.PatientID == patientID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memDossiers) FindLatestOpen(ctx context.Context, patientID uuid.UUID) (*dossier.Dossier, error) {
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].PatientID == patientID && m.items[i].Status == dossier.StatusOpen {
			return m.items[i], nil
		}
	}
	return nil, nil
}

func (m *memDossiers) ReassignPatient(ctx context.Context, fromPatient, toPatient uuid.UUID) (int, error) {
	n := 0
	for _, it := range m.items {
		if it.PatientID == fromPatient {
			it.PatientID = toPatient
			n++
		}
	}
	return n, nil
}

type memVenues struct {
	items []*venue.Venue
}

func (m *memVenues) Create(ctx context.Context, v *venue.Venue) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	m.items = append(m.items, v)
	return nil
}

func (m *memVenues) Update(ctx context.Context, v *venue.Venue) error {
	for i, it := range m.items {
		if it.ID == v.ID {
			m.items[i] = v
			return nil
		}
	}
	return venue.ErrNotFound
}

func (m *memVenues) GetByID(ctx context.Context, id uuid.UUID) (*venue.Venue, error) {
	for _, it := range m.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, venue.ErrNotFound
}

func (m *memVenues) ListByDossier(ctx context.Context, dossierID uuid.UUID) ([]*venue.Venue, error) {
	var out []*venue.Venue
	for _, it := range m.items {
		if it.DossierID == dossierID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memVenues) FindCurrent(ctx context.Context, dossierID uuid.UUID) (*venue.Venue, error) {
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].DossierID == dossierID && m.items[i].Status != venue.StatusClosed {
			return m.items[i], nil
		}
	}
	return nil, nil
}

type memMouvements struct {
	items []*mouvement.Mouvement
}

func (m *memMouvements) Create(ctx context.Context, mv *mouvement.Mouvement) error {
	if mv.ID == uuid.Nil {
		mv.ID = uuid.New()
	}
	m.items = append(m.items, mv)
	return nil
}

func (m *memMouvements) Update(ctx context.Context, mv *mouvement.Mouvement) error {
	for i, it := range m.items {
		if it.ID == mv.ID {
			m.items[i] = mv
			return nil
		}
	}
	return mouvement.ErrNotFound
}

func (m *memMouvements) GetByID(ctx context.Context, id uuid.UUID) (*mouvement.Mouvement, error) {
	for _, it := range m.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, mouvement.ErrNotFound
}

func (m *memMouvements) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*mouvement.Mouvement, error) {
	var out []*mouvement.Mouvement
	for _, it := range m.items {
		if it.VenueID == venueID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memMouvements) FindLatestByTrigger(ctx context.Context, venueID uuid.UUID, trigger string) (*mouvement.Mouvement, error) {
	for i := len(m.items) - 1; i >= 0; i-- {
		it := m.items[i]
		if it.VenueID == venueID && it.Trigger == trigger && !it.Cancelled {
			return it, nil
		}
	}
	return nil, nil
}

type memAudit struct {
	events []*auditevent.AuditEvent
}

func (m *memAudit) Create(ctx context.Context, e *auditevent.AuditEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Recorded = time.Now().UTC()
	m.events = append(m.events, e)
	return nil
}

func (m *memAudit) List(ctx context.Context, kind string, limit, offset int) ([]*auditevent.AuditEvent, int, error) {
	var out []*auditevent.AuditEvent
	for _, e := range m.events {
		if kind == "" || e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

// testEnv bundles an engine over in-memory repositories with direct access
// to them for assertions.
type testEnv struct {
	engine      *Engine
	patients    *memPatients
	dossiers    *memDossiers
	venues      *memVenues
	mouvements  *memMouvements
	identifiers *memIdentifiers
	audit       *memAudit
}

func newTestEnv() *testEnv {
	idx := &memIdentifiers{}
	env := &testEnv{
		patients:    &memPatients{idx: idx},
		dossiers:    &memDossiers{},
		venues:      &memVenues{},
		mouvements:  &memMouvements{},
		identifiers: idx,
		audit:       &memAudit{},
	}
	store := NewStore(
		env.patients, env.dossiers, env.venues, env.mouvements, env.identifiers,
		auditevent.NewService(env.audit, zerolog.Nop()),
		nil, // pass-through tx
		nil, // no-op lock
	)
	env.engine = NewEngine(store, zerolog.Nop(), nil, "LOCAL", "")
	return env
}

// seedPatient creates a patient with one active identifier binding per
// composite.
func (env *testEnv) seedPatient(family, given string, composites ...string) *patient.Patient {
	p := &patient.Patient{FamilyName: family, GivenName: given}
	if err := env.patients.Create(context.Background(), p); err != nil {
		panic(err)
	}
	for _, c := range composites {
		value, system, typeCode := identifier.DecodeComposite(c)
		if system == "" {
			system = "LOCAL"
		}
		id, err := identifier.New(value, identifier.ParseType(typeCode), system, "", identifier.PatientOwner(p.ID))
		if err != nil {
			panic(err)
		}
		if err := env.identifiers.Create(context.Background(), id); err != nil {
			panic(err)
		}
	}
	return p
}
