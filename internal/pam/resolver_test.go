package pam

import (
	"context"
	"testing"

	"github.com/pam/pam/internal/domain/identifier"
	"github.com/pam/pam/internal/domain/patient"
)

func TestResolve_ByActiveBinding(t *testing.T) {
	env := newTestEnv()
	want := env.seedPatient("Durand", "Marie", "8012345^^^HOPITAL^PI")

	got, err := env.engine.Resolver().ResolveByOne(context.Background(), "8012345^^^HOPITAL^PI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != want.ID {
		t.Errorf("expected patient %v, got %v", want.ID, got)
	}
}

func TestResolve_PrefersAuthorityMatch(t *testing.T) {
	env := newTestEnv()
	// The same raw value is bound to two different patients in two scopes.
	other := env.seedPatient("Petit", "Luc", "555^^^CLINIQUE^PI")
	want := env.seedPatient("Durand", "Marie", "555^^^HOPITAL^PI")

	got, err := env.engine.Resolver().ResolveByOne(context.Background(), "555^^^HOPITAL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != want.ID {
		t.Errorf("expected authority-matched patient %v, got %v (other is %v)", want.ID, got, other.ID)
	}
}

func TestResolve_FirstBindingWhenNoAuthority(t *testing.T) {
	env := newTestEnv()
	first := env.seedPatient("Petit", "Luc", "555^^^CLINIQUE^PI")
	env.seedPatient("Durand", "Marie", "555^^^HOPITAL^PI")

	got, err := env.engine.Resolver().ResolveByOne(context.Background(), "555")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != first.ID {
		t.Errorf("expected first binding's patient %v, got %v", first.ID, got)
	}
}

func TestResolve_CandidateOrder(t *testing.T) {
	env := newTestEnv()
	second := env.seedPatient("Durand", "Marie", "B2^^^HOPITAL^PI")

	// First candidate is unknown; the second resolves.
	got, err := env.engine.Resolver().ResolveByComposites(context.Background(),
		[]string{"UNKNOWN^^^HOPITAL^PI", "B2^^^HOPITAL^PI"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != second.ID {
		t.Errorf("expected fallback to second candidate, got %v", got)
	}
}

func TestResolve_FallbackExternalRef(t *testing.T) {
	env := newTestEnv()
	p := &patient.Patient{FamilyName: "Legacy", ExternalRef: "EXT42"}
	if err := env.patients.Create(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	got, err := env.engine.Resolver().ResolveByOne(context.Background(), "EXT42^^^HOPITAL^PI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != p.ID {
		t.Errorf("expected external-ref fallback to find %v, got %v", p.ID, got)
	}
}

func TestResolve_FallbackPrimaryIdentifier(t *testing.T) {
	env := newTestEnv()
	p := &patient.Patient{FamilyName: "Legacy", PrimaryIdentifier: "PRIM7"}
	if err := env.patients.Create(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	got, err := env.engine.Resolver().ResolveByOne(context.Background(), "PRIM7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != p.ID {
		t.Errorf("expected primary-identifier fallback to find %v, got %v", p.ID, got)
	}
}

func TestResolve_BindingWinsOverFallback(t *testing.T) {
	env := newTestEnv()
	// One patient holds the value as an active binding, another as its
	// external ref; the binding must win.
	bound := env.seedPatient("Bound", "B", "X9^^^HOPITAL^PI")
	legacy := &patient.Patient{FamilyName: "Legacy", ExternalRef: "X9"}
	if err := env.patients.Create(context.Background(), legacy); err != nil {
		t.Fatal(err)
	}

	got, err := env.engine.Resolver().ResolveByOne(context.Background(), "X9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != bound.ID {
		t.Errorf("expected binding to win over fallback, got %v", got)
	}
}

func TestResolve_NotFound(t *testing.T) {
	env := newTestEnv()
	env.seedPatient("Durand", "Marie", "8012345^^^HOPITAL^PI")

	got, err := env.engine.Resolver().ResolveByOne(context.Background(), "NOPE^^^HOPITAL^PI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil patient for unknown identifier, got %v", got)
	}
}

func TestResolve_EmptyValuesSkipped(t *testing.T) {
	env := newTestEnv()

	got, err := env.engine.Resolver().ResolveByComposites(context.Background(),
		[]string{"", "^^^HOPITAL^PI"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil patient for empty candidates, got %v", got)
	}
}

func TestResolve_OldBindingIgnored(t *testing.T) {
	env := newTestEnv()
	p := env.seedPatient("Durand", "Marie", "8012345^^^HOPITAL^PI")

	ids, _ := env.identifiers.ListByOwner(context.Background(), identifier.PatientOwner(p.ID))
	for _, id := range ids {
		id.Status = identifier.StatusOld
	}

	got, err := env.engine.Resolver().ResolveByOne(context.Background(), "8012345^^^HOPITAL^PI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected retagged binding to be invisible, got %v", got)
	}
}
