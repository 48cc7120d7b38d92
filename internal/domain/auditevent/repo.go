package auditevent

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, e *AuditEvent) error
	List(ctx context.Context, kind string, limit, offset int) ([]*AuditEvent, int, error)
}
