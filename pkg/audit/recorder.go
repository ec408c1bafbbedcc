// Package audit records data-access events. Recording is best-effort: a
// failed write is logged and swallowed so it never blocks or fails the
// operation being audited.
package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/models"
	"github.com/rowgate-io/rowgate/pkg/repositories"
)

// Recorder writes audit log entries for data-access operations.
type Recorder interface {
	// Record writes one entry. details is serialized to JSON; a nil map
	// records an empty details payload.
	Record(ctx context.Context, userID uuid.UUID, action, db, table string, details map[string]any)
}

type recorder struct {
	repo   repositories.AuditRepository
	logger *zap.Logger
}

// NewRecorder creates a Recorder over the audit repository.
func NewRecorder(repo repositories.AuditRepository, logger *zap.Logger) Recorder {
	return &recorder{
		repo:   repo,
		logger: logger.Named("audit"),
	}
}

var _ Recorder = (*recorder)(nil)

func (r *recorder) Record(ctx context.Context, userID uuid.UUID, action, db, table string, details map[string]any) {
	var payload string
	if len(details) > 0 {
		encoded, err := json.Marshal(details)
		if err != nil {
			r.logger.Warn("Failed to encode audit details",
				zap.String("action", action),
				zap.Error(err))
		} else {
			payload = string(encoded)
		}
	}

	entry := &models.AuditLogEntry{
		UserID:    userID,
		Action:    action,
		Database:  db,
		TableName: table,
		Details:   payload,
	}

	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Error("Failed to write audit log entry",
			zap.String("action", action),
			zap.String("database", db),
			zap.String("table", table),
			zap.Error(err))
	}
}
