package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report block kinds.
const (
	BlockKindTable  = "table"
	BlockKindChart  = "chart"
	BlockKindMetric = "metric"
)

// ReportBlock is a persisted block configuration (table, chart or metric)
// executed through the same query compiler as ad-hoc browsing, including
// join and sub-join resolution. Filters and Join are stored as JSONB and
// decoded into query types at run time.
type ReportBlock struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"` // 'table', 'chart', 'metric'
	Database  string          `json:"database"`
	TableName string          `json:"table_name"`
	Filters   json.RawMessage `json:"filters,omitempty"`
	Join      json.RawMessage `json:"join,omitempty"`
	SortBy    string          `json:"sort_by,omitempty"`
	SortDesc  bool            `json:"sort_desc"`
	CreatedBy uuid.UUID       `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
