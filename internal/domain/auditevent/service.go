package auditevent

import (
	"context"

	"github.com/rs/zerolog"
)

// Service records audit events. Recording failures are logged but never
// propagated: the audited operation must not fail because its trace could
// not be written.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Record appends one audit record.
func (s *Service) Record(ctx context.Context, direction, kind, correlationID, status, detail string) {
	e := &AuditEvent{
		Direction:     direction,
		Kind:          kind,
		CorrelationID: correlationID,
		Status:        status,
		Detail:        detail,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		s.log.Error().Err(err).
			Str("kind", kind).
			Str("correlation_id", correlationID).
			Msg("failed to write audit record")
	}
}

// List returns audit records, newest first, optionally filtered by kind.
func (s *Service) List(ctx context.Context, kind string, limit, offset int) ([]*AuditEvent, int, error) {
	return s.repo.List(ctx, kind, limit, offset)
}
