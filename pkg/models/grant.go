package models

import (
	"time"

	"github.com/google/uuid"
)

// TableGrant is an explicit per-table permission row for a restricted user.
// Absence of a grant is a hard deny for the restricted role regardless of
// any visibility setting.
type TableGrant struct {
	UserID    uuid.UUID `json:"user_id"`
	Database  string    `json:"database"`
	TableName string    `json:"table_name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableVisibility controls whether a table appears in the default browse
// path. Visibility is cosmetic for non-restricted roles; it is orthogonal
// to permission and collaborators such as the report engine bypass it.
type TableVisibility struct {
	Database  string    `json:"database"`
	TableName string    `json:"table_name"`
	Visible   bool      `json:"visible"`
	UpdatedAt time.Time `json:"updated_at"`
}
