package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of a compiled SQL statement to log
	MaxQueryLogLength = 200
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Matches password=xxx, pwd=xxx, pass=xxx in keyword/value connection strings
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches user:pass@host credentials in URL-style connection strings
	connStringPattern = regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`)
)

// SanitizeConnectionString removes credentials from a datasource connection
// string before it is logged.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages from database operations, which can
// echo connection details back in their text.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()
	sanitized := passwordPattern.ReplaceAllString(errStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeQuery truncates a compiled SQL statement for logging. Statement
// text contains only validated identifiers (values travel as bound
// parameters), so truncation is about log volume, not secrecy.
func SanitizeQuery(query string) string {
	if len(query) > MaxQueryLogLength {
		return query[:MaxQueryLogLength] + "..."
	}
	return query
}
