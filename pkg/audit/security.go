// Security event logging for SIEM consumption. Events go to a dedicated
// logger namespace as structured JSON so they can be filtered and alerted
// on independently of application logs.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection flags a filter value.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventIdentifierRejected is logged when a request carries a malformed identifier.
	EventIdentifierRejected SecurityEventType = "identifier_rejected"
)

// SecurityEvent is one auditable security event with the context a SIEM
// needs to correlate it.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	UserID    uuid.UUID         `json:"user_id,omitempty"`
	Database  string            `json:"database,omitempty"`
	TableName string            `json:"table_name,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// SQLInjectionDetails contains specifics of a flagged filter value.
// The value itself is included: it already failed the screen, and the
// pattern is what the analyst needs.
type SQLInjectionDetails struct {
	Column      string `json:"column"`
	Value       string `json:"value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a security auditor on the "security_audit"
// logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogInjectionAttempt records a filter value that matched an injection
// pattern. Values travel as bound parameters so the request itself is not
// rejected; the event is telemetry, logged at WARN with "warning"
// severity.
func (a *SecurityAuditor) LogInjectionAttempt(userID uuid.UUID, db, table string, details SQLInjectionDetails) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventSQLInjectionAttempt,
		UserID:    userID,
		Database:  db,
		TableName: table,
		Details:   details,
		Severity:  "warning",
	}

	// Marshaling known types does not fail.
	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Filter value matched injection pattern",
		zap.String("event_json", string(eventJSON)),
		zap.String("user_id", userID.String()),
		zap.String("database", db),
		zap.String("table", table),
		zap.String("column", details.Column),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("severity", "warning"),
	)
}

// LogIdentifierRejected records a request that carried an identifier the
// syntactic validator refused. These are almost always probes, so they
// are logged at WARN for alerting.
func (a *SecurityAuditor) LogIdentifierRejected(userID uuid.UUID, db string, reason string) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventIdentifierRejected,
		UserID:    userID,
		Database:  db,
		Details:   reason,
		Severity:  "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Malformed identifier rejected",
		zap.String("event_json", string(eventJSON)),
		zap.String("user_id", userID.String()),
		zap.String("database", db),
		zap.String("severity", "warning"),
	)
}
