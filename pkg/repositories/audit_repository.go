package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rowgate-io/rowgate/pkg/database"
	"github.com/rowgate-io/rowgate/pkg/models"
)

// AuditRepository provides data access for the data-access audit log.
type AuditRepository interface {
	// Create inserts a new audit log entry.
	Create(ctx context.Context, entry *models.AuditLogEntry) error

	// ListRecent returns the newest entries, most recent first.
	ListRecent(ctx context.Context, limit int) ([]*models.AuditLogEntry, error)

	// ListByUser returns entries for one user, most recent first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AuditLogEntry, error)
}

type auditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) AuditRepository {
	return &auditRepository{db: db}
}

var _ AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO rowgate_audit_log (id, user_id, action, database, table_name, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		entry.ID, entry.UserID, entry.Action, entry.Database, entry.TableName,
		entry.Details, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}
	return nil
}

func (r *auditRepository) ListRecent(ctx context.Context, limit int) ([]*models.AuditLogEntry, error) {
	query := `
		SELECT id, user_id, action, database, table_name, details, created_at
		FROM rowgate_audit_log
		ORDER BY created_at DESC
		LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *auditRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AuditLogEntry, error) {
	query := `
		SELECT id, user_id, action, database, table_name, details, created_at
		FROM rowgate_audit_log
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	return r.list(ctx, query, userID, limit)
}

func (r *auditRepository) list(ctx context.Context, query string, args ...any) ([]*models.AuditLogEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Database, &e.TableName, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit log entries: %w", err)
	}
	return entries, nil
}
