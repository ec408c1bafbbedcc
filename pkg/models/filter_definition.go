package models

import (
	"time"

	"github.com/google/uuid"
)

// FilterDefinition is an admin-authored, reusable filter persisted per table.
// Definitions are re-validated and re-compiled on every use; the stored form
// is never trusted as pre-validated.
type FilterDefinition struct {
	ID        uuid.UUID `json:"id"`
	Database  string    `json:"database"`
	TableName string    `json:"table_name"`
	Name      string    `json:"name"`
	Column    string    `json:"column"`
	Operator  string    `json:"operator"`
	Value     any       `json:"value"` // scalar or array, stored as JSONB
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
