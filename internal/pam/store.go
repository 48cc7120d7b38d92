// Package pam implements the IHE Patient Administration Management core:
// identity resolution across identifier authorities, the merge engine, the
// PIX/PDQ cross-reference query engine, and the trigger-event router.
package pam

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/pam/pam/internal/domain/auditevent"
	"github.com/pam/pam/internal/domain/dossier"
	"github.com/pam/pam/internal/domain/identifier"
	"github.com/pam/pam/internal/domain/mouvement"
	"github.com/pam/pam/internal/domain/patient"
	"github.com/pam/pam/internal/domain/venue"
	"github.com/pam/pam/internal/platform/db"
)

// TxRunner executes fn as one atomic unit of work.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// LockFunc serializes units of work that share a key. The engine keys locks
// by resolved patient id so that concurrent events touching the same
// identity cannot interleave.
type LockFunc func(ctx context.Context, key string) error

// Store bundles the repositories the engine works against together with the
// transaction and locking primitives. Every dispatch re-resolves identity
// from the store; resolution results are never cached across transactions.
type Store struct {
	Patients    patient.Repository
	Dossiers    dossier.Repository
	Venues      venue.Repository
	Mouvements  mouvement.Repository
	Identifiers identifier.Repository
	Audit       *auditevent.Service

	tx   TxRunner
	lock LockFunc
}

// NewStore builds a Store from explicit parts; used by tests with in-memory
// repositories.
func NewStore(
	patients patient.Repository,
	dossiers dossier.Repository,
	venues venue.Repository,
	mouvements mouvement.Repository,
	identifiers identifier.Repository,
	audit *auditevent.Service,
	tx TxRunner,
	lock LockFunc,
) *Store {
	return &Store{
		Patients:    patients,
		Dossiers:    dossiers,
		Venues:      venues,
		Mouvements:  mouvements,
		Identifiers: identifiers,
		Audit:       audit,
		tx:          tx,
		lock:        lock,
	}
}

// NewPGStore wires a Store onto a pgx pool: repositories resolve the active
// transaction from the context, units of work run under db.RunInTx, and
// identity locks are Postgres advisory locks.
func NewPGStore(pool *pgxpool.Pool, log zerolog.Logger) *Store {
	return &Store{
		Patients:    patient.NewRepo(pool),
		Dossiers:    dossier.NewRepo(pool),
		Venues:      venue.NewRepo(pool),
		Mouvements:  mouvement.NewRepo(pool),
		Identifiers: identifier.NewRepo(pool),
		Audit:       auditevent.NewService(auditevent.NewRepo(pool), log),
		tx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.RunInTx(ctx, pool, fn)
		},
		lock: db.AdvisoryLock,
	}
}

// InTx runs fn as one atomic unit of work. Without a configured runner it is
// a pass-through, which is what the in-memory test store uses.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx(ctx, fn)
}

// LockIdentity serializes the current unit of work against others touching
// the same patient.
func (s *Store) LockIdentity(ctx context.Context, patientID uuid.UUID) error {
	if s.lock == nil {
		return nil
	}
	return s.lock(ctx, "patient:"+patientID.String())
}
