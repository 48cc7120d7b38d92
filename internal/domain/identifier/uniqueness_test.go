package identifier

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

// mockRepo is an in-memory Repository for validator tests.
type mockRepo struct {
	items []*Identifier
}

func (m *mockRepo) Create(ctx context.Context, id *Identifier) error {
	m.items = append(m.items, id)
	return nil
}

func (m *mockRepo) Update(ctx context.Context, id *Identifier) error { return nil }

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Identifier, error) {
	for _, it := range m.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) FindActive(ctx context.Context, value, system, oid string) ([]*Identifier, error) {
	var out []*Identifier
	for _, it := range m.items {
		if it.Status == StatusActive && it.Value == value && it.System == system && it.OID == oid {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockRepo) FindActivePatientOwned(ctx context.Context, value string) ([]*Identifier, error) {
	var out []*Identifier
	for _, it := range m.items {
		if it.Status == StatusActive && it.Value == value && it.Owner.Kind == OwnerPatient {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockRepo) FindByOwnerScope(ctx context.Context, owner OwnerRef, value, system, oid string) (*Identifier, error) {
	for _, it := range m.items {
		if it.Owner == owner && it.Value == value && it.System == system && it.OID == oid {
			return it, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) ListByOwner(ctx context.Context, owner OwnerRef) ([]*Identifier, error) {
	var out []*Identifier
	for _, it := range m.items {
		if it.Owner == owner {
			out = append(out, it)
		}
	}
	return out, nil
}

func activeIdentifier(value, system, oid string, owner OwnerRef) *Identifier {
	return &Identifier{
		ID:     uuid.New(),
		Value:  value,
		System: system,
		OID:    oid,
		Status: StatusActive,
		Owner:  owner,
	}
}

func TestEnsureUnique_Free(t *testing.T) {
	v := NewValidator(&mockRepo{})

	ok, holder, err := v.EnsureUnique(context.Background(), "8012345", "HOPITAL", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || holder != nil {
		t.Errorf("expected free value, got ok=%v holder=%v", ok, holder)
	}
}

func TestEnsureUnique_ConflictReportsHolder(t *testing.T) {
	holderID := uuid.New()
	repo := &mockRepo{items: []*Identifier{
		activeIdentifier("8012345", "HOPITAL", "", PatientOwner(holderID)),
	}}
	v := NewValidator(repo)

	ok, holder, err := v.EnsureUnique(context.Background(), "8012345", "HOPITAL", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected conflict")
	}
	if holder == nil || *holder != holderID {
		t.Errorf("expected holder %s, got %v", holderID, holder)
	}
}

func TestEnsureUnique_ScopedByAuthority(t *testing.T) {
	repo := &mockRepo{items: []*Identifier{
		activeIdentifier("8012345", "HOPITAL", "", PatientOwner(uuid.New())),
	}}
	v := NewValidator(repo)

	// Same raw value in a different authority scope is legitimate.
	ok, _, err := v.EnsureUnique(context.Background(), "8012345", "CLINIQUE", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected same value in another scope to be free")
	}
}

func TestEnsureUnique_InactiveIgnored(t *testing.T) {
	old := activeIdentifier("8012345", "HOPITAL", "", PatientOwner(uuid.New()))
	old.Status = StatusOld
	v := NewValidator(&mockRepo{items: []*Identifier{old}})

	ok, _, err := v.EnsureUnique(context.Background(), "8012345", "HOPITAL", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected non-active binding to be ignored")
	}
}

func TestEnsureUnique_ExcludePatient(t *testing.T) {
	mine := uuid.New()
	repo := &mockRepo{items: []*Identifier{
		activeIdentifier("8012345", "HOPITAL", "", PatientOwner(mine)),
	}}
	v := NewValidator(repo)

	ok, _, err := v.EnsureUnique(context.Background(), "8012345", "HOPITAL", "", &mine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected the patient's own binding to be excluded")
	}
}

func TestEnsureUnique_SubEntityConflict(t *testing.T) {
	repo := &mockRepo{items: []*Identifier{
		activeIdentifier("VN001", "HOPITAL", "", DossierOwner(uuid.New())),
	}}
	v := NewValidator(repo)

	ok, holder, err := v.EnsureUnique(context.Background(), "VN001", "HOPITAL", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected conflict on sub-entity binding")
	}
	if holder != nil {
		t.Errorf("expected nil holder for sub-entity conflict, got %v", holder)
	}
}

func TestMustBeUnique_DuplicateError(t *testing.T) {
	holderID := uuid.New()
	repo := &mockRepo{items: []*Identifier{
		activeIdentifier("8012345", "HOPITAL", "1.2.3", PatientOwner(holderID)),
	}}
	v := NewValidator(repo)

	err := v.MustBeUnique(context.Background(), "8012345", "HOPITAL", "1.2.3", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrDuplicate) {
		t.Error("expected errors.Is(err, ErrDuplicate)")
	}
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatal("expected *DuplicateError")
	}
	if dup.Holder == nil || *dup.Holder != holderID {
		t.Errorf("expected holder %s, got %v", holderID, dup.Holder)
	}
}
