package pam

import (
	"github.com/rs/zerolog"

	"github.com/pam/pam/internal/domain/identifier"
	"github.com/pam/pam/internal/platform/metrics"
)

// Result is the outcome of processing one trigger event or query. Expected
// negative outcomes, an unsupported trigger, a patient that cannot be
// resolved, a malformed merge instruction, are reported here rather than as
// errors; errors are reserved for store and infrastructure faults.
type Result struct {
	OK     bool
	Detail string
}

func ok(detail string) Result   { return Result{OK: true, Detail: detail} }
func fail(detail string) Result { return Result{OK: false, Detail: detail} }

// Engine is the identity resolution and merge engine. It owns the resolver,
// the authority-scoped uniqueness validator and the trigger-event router.
type Engine struct {
	store     *Store
	resolver  *Resolver
	validator *identifier.Validator
	log       zerolog.Logger
	metrics   *metrics.Registry

	// Assigning authority applied when an inbound identifier carries none.
	system string
	oid    string
}

func NewEngine(store *Store, log zerolog.Logger, reg *metrics.Registry, system, oid string) *Engine {
	if reg == nil {
		reg = metrics.New()
	}
	return &Engine{
		store:     store,
		resolver:  NewResolver(store),
		validator: identifier.NewValidator(store.Identifiers),
		log:       log,
		metrics:   reg,
		system:    system,
		oid:       oid,
	}
}

func (e *Engine) Resolver() *Resolver { return e.resolver }
