package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of data access being audited.
const (
	AuditActionBrowse      = "browse"
	AuditActionExportCheck = "export_check"
	AuditActionExport      = "export"
	AuditActionReportRun   = "report_run"
)

// AuditLogEntry represents a single data-access record.
// Stored in rowgate_audit_log table. One entry is written per data-access
// or export operation; a failed write never blocks the response.
type AuditLogEntry struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Action    string    `json:"action"` // 'browse', 'export_check', 'export', 'report_run'
	Database  string    `json:"database"`
	TableName string    `json:"table_name"`
	Details   string    `json:"details,omitempty"` // free-form JSON: filters, row counts, refusals
	CreatedAt time.Time `json:"created_at"`
}
