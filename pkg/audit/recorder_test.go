package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/models"
)

type fakeAuditRepo struct {
	entries []*models.AuditLogEntry
	err     error
}

func (f *fakeAuditRepo) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) ListRecent(ctx context.Context, limit int) ([]*models.AuditLogEntry, error) {
	return f.entries, nil
}

func (f *fakeAuditRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AuditLogEntry, error) {
	return f.entries, nil
}

func TestRecorder_Record(t *testing.T) {
	repo := &fakeAuditRepo{}
	rec := NewRecorder(repo, zap.NewNop())
	userID := uuid.New()

	rec.Record(context.Background(), userID, models.AuditActionBrowse, "billing", "invoices",
		map[string]any{"row_count": 42})

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, userID, entry.UserID)
	assert.Equal(t, models.AuditActionBrowse, entry.Action)
	assert.Equal(t, "billing", entry.Database)
	assert.Equal(t, "invoices", entry.TableName)
	assert.JSONEq(t, `{"row_count":42}`, entry.Details)
}

func TestRecorder_RecordWithoutDetails(t *testing.T) {
	repo := &fakeAuditRepo{}
	rec := NewRecorder(repo, zap.NewNop())

	rec.Record(context.Background(), uuid.New(), models.AuditActionExport, "billing", "invoices", nil)

	require.Len(t, repo.entries, 1)
	assert.Empty(t, repo.entries[0].Details)
}

func TestRecorder_RepositoryFailureDoesNotPanic(t *testing.T) {
	repo := &fakeAuditRepo{err: errors.New("connection refused")}
	rec := NewRecorder(repo, zap.NewNop())

	// Must swallow the failure.
	rec.Record(context.Background(), uuid.New(), models.AuditActionBrowse, "billing", "invoices", nil)
	assert.Empty(t, repo.entries)
}
