package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on a
// filter value.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Column      string // Column the value was filtering on
	Value       any    // The value that was checked
}

// CheckFilterValue uses libinjection to detect SQL injection patterns in a
// filter value. Values always reach the database as bound parameters, so a
// hit here cannot execute - this check exists for telemetry: a positive is
// a strong signal the requester is probing, and it is logged as such.
//
// Only string values are checked; numbers and booleans cannot carry
// injection patterns and return nil.
func CheckFilterValue(column string, value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
			Column:      column,
			Value:       value,
		}
	}

	return nil
}

// CheckFilterValues screens every value in a column->value map and returns
// a result per flagged value. An empty slice means all values are clean.
func CheckFilterValues(values map[string]any) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for column, value := range values {
		if result := CheckFilterValue(column, value); result != nil {
			results = append(results, result)
		}
	}
	return results
}
