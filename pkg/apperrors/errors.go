package apperrors

import "errors"

var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrNotFound          = errors.New("not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrInvalidColumn     = errors.New("invalid column")
	ErrInvalidOperator   = errors.New("invalid operator")
	ErrInvalidValue      = errors.New("invalid value")
	ErrInvalidJoin       = errors.New("invalid join")
	ErrInvalidRole       = errors.New("invalid role")
	ErrExportTooLarge    = errors.New("export exceeds maximum row count")
	ErrQueryFailed       = errors.New("query failed")
	ErrStreamInterrupted = errors.New("stream interrupted")
)
